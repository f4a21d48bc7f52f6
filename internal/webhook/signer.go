package webhook

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// Delivery request headers.
const (
	HeaderSignature = "X-Clavr-Signature"
	HeaderEvent     = "X-Clavr-Event"
	HeaderDelivery  = "X-Clavr-Delivery"
)

// Sign computes the delivery signature for a payload: an HMAC-SHA256 over the
// body keyed with the subscription secret, in the form "sha256=<hex>".
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature against the body in constant
// time. Receivers use this to authenticate deliveries.
func VerifySignature(secret string, body []byte, signature string) bool {
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// NewSecret generates a random subscription secret (64 hex characters).
func NewSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("webhook: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}
