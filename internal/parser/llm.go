package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// TextGenerator produces a completion for a prompt. The concrete
// implementation talks to Gemini; tests swap in a fake.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenAIGenerator generates text using Google's Gemini API in JSON mode.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

// NewGenAIGenerator creates a generator backed by the Gemini API.
func NewGenAIGenerator(ctx context.Context, apiKey, model string) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIGenerator{
		client: client,
		model:  model,
	}, nil
}

// Generate sends the prompt and returns the raw completion text.
func (g *GenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx,
		g.model,
		contents,
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("empty completion returned")
	}

	return text, nil
}

// LLMClassifier is the final stage: a JSON-mode classification prompt.
type LLMClassifier struct {
	generator TextGenerator
}

// NewLLMClassifier returns a classifier over the given generator.
func NewLLMClassifier(generator TextGenerator) *LLMClassifier {
	return &LLMClassifier{generator: generator}
}

// llmResponse is the JSON shape the prompt asks for.
type llmResponse struct {
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Slots      map[string]string `json:"slots"`
}

// Classify asks the model for {intent, confidence, slots}. A non-empty hint
// is embedded in the prompt; the router uses it to feed back a validation
// error on the single correction retry.
func (l *LLMClassifier) Classify(ctx context.Context, query, hint string) (Classification, error) {
	prompt := buildClassificationPrompt(query, hint)

	raw, err := l.generator.Generate(ctx, prompt)
	if err != nil {
		return Classification{}, err
	}

	return parseClassification(raw, query)
}

func buildClassificationPrompt(query, hint string) string {
	var b strings.Builder

	b.WriteString("Classify the user's request into exactly one intent and extract slots.\n\n")
	b.WriteString("Intents:\n")
	for _, intent := range AllIntents() {
		b.WriteString("- ")
		b.WriteString(string(intent))
		if req := requiredSlots[intent]; len(req) > 0 {
			b.WriteString(" (required slots: ")
			b.WriteString(strings.Join(req, ", "))
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	b.WriteString("- unknown (use when no intent fits)\n\n")

	b.WriteString("Slot keys: query, to, subject, body, date, title, duration, attendees, event, task, label, state.\n")
	b.WriteString("Date slots must be a phrase like \"tomorrow\", \"friday\", \"next week\", ")
	b.WriteString("\"in 3 days\" or an ISO date, optionally with \"at 3pm\".\n\n")

	if hint != "" {
		b.WriteString("A previous attempt was rejected: ")
		b.WriteString(hint)
		b.WriteString("\nCorrect the mistake.\n\n")
	}

	b.WriteString("Respond with JSON only: {\"intent\": \"...\", \"confidence\": 0.0, \"slots\": {}}\n")
	b.WriteString("Confidence is your own estimate between 0 and 1.\n\n")

	b.WriteString("Request: ")
	b.WriteString(query)

	return b.String()
}

// parseClassification parses the model output defensively: code fences are
// stripped, the first JSON object is used, confidence is clamped, and
// unrecognized intents degrade to unknown.
func parseClassification(raw, query string) (Classification, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if start := strings.Index(cleaned, "{"); start > 0 {
		cleaned = cleaned[start:]
	}
	if end := strings.LastIndex(cleaned, "}"); end >= 0 && end < len(cleaned)-1 {
		cleaned = cleaned[:end+1]
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return Classification{}, fmt.Errorf("failed to parse classification response: %w", err)
	}

	intent := Intent(resp.Intent)
	if !intent.Known() {
		intent = IntentUnknown
	}

	confidence := resp.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	slots := resp.Slots
	if intent != IntentUnknown {
		slots = mergeSlots(slots, extractSlots(intent, query))
	}

	return Classification{
		Intent:     intent,
		Confidence: confidence,
		Slots:      slots,
		Stage:      StageLLM,
	}, nil
}
