package server

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"max=255"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
}

type queryRequest struct {
	Query string `json:"query" validate:"required,min=1,max=2000"`
}

type taskRequest struct {
	Title string     `json:"title" validate:"required,max=512"`
	Notes string     `json:"notes" validate:"max=4096"`
	Due   *time.Time `json:"due"`
}

type webhookRequest struct {
	URL    string   `json:"url" validate:"required,url,max=2048"`
	Events []string `json:"events" validate:"required,min=1,dive,min=1"`
}

// webhookCreatedResponse carries the signing secret exactly once, at
// creation time.
type webhookCreatedResponse struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}
