package parser

import (
	"context"
	"fmt"
	"math"
	"sync"

	"google.golang.org/genai"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings
	Dimensions() int
}

// GenAIEmbedder generates embeddings using Google's Gemini API.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
}

// NewGenAIEmbedder creates an embedder backed by the Gemini embedding API.
func NewGenAIEmbedder(ctx context.Context, apiKey, model string) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIEmbedder{
		client: client,
		model:  model,
	}, nil
}

// Embed generates an embedding for a single text.
func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		contents,
		&genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}

	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}

	return result.Embeddings[0].Values, nil
}

// EmbedBatch generates embeddings for multiple texts.
// GenAI has native batch support.
func (e *GenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		contents,
		&genai.EmbedContentConfig{
			TaskType: "SEMANTIC_SIMILARITY",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("GenAI batch embed failed: %w", err)
	}

	embeddings := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		embeddings[i] = emb.Values
	}

	return embeddings, nil
}

// Dimensions returns the dimensionality of embeddings.
// gemini-embedding-001 produces 768-dimensional vectors.
func (e *GenAIEmbedder) Dimensions() int {
	return 768
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dotProduct, aMagnitude, bMagnitude float64
	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i] * b[i])
		aMagnitude += float64(a[i] * a[i])
		bMagnitude += float64(b[i] * b[i])
	}

	if aMagnitude == 0 || bMagnitude == 0 {
		return 0, nil
	}

	return dotProduct / (math.Sqrt(aMagnitude) * math.Sqrt(bMagnitude)), nil
}

// canonicalExamples are the reference utterances embedded once per process.
// Each incoming query is scored against all of them; the best match's intent
// wins with the similarity as confidence.
var canonicalExamples = map[Intent][]string{
	IntentEmailSearch: {
		"show me my unread emails",
		"find emails from my manager",
		"search my inbox for the invoice",
		"do I have any new mail",
	},
	IntentEmailArchive: {
		"archive all newsletters",
		"clean up emails from notifications",
		"archive everything from that sender",
	},
	IntentEmailSend: {
		"send an email to alice about the meeting",
		"write a message to the team",
	},
	IntentEmailReply: {
		"reply to bob saying I'll be there",
		"answer the last email with a confirmation",
	},
	IntentEmailLabel: {
		"label the newsletters as reading list",
		"tag emails from the bank as finance",
	},
	IntentEmailMarkRead: {
		"mark the newsletters as read",
		"mark emails from recruiting unread",
	},
	IntentCalendarList: {
		"what's on my calendar tomorrow",
		"show my schedule for next week",
		"list my meetings today",
	},
	IntentCalendarCreate: {
		"schedule a meeting with the design team on friday",
		"book a call with alice tomorrow at 3pm",
		"set up a one on one next monday",
	},
	IntentCalendarReschedule: {
		"move the standup to 10am",
		"reschedule my dentist appointment to next week",
	},
	IntentCalendarCancel: {
		"cancel the budget review",
		"drop my friday afternoon meeting",
	},
	IntentCalendarAvailability: {
		"when am I free this week",
		"find an open slot for a one hour meeting",
		"am I available thursday afternoon",
	},
	IntentTaskCreate: {
		"remind me to file the expense report friday",
		"add a task to renew my passport",
		"I need to buy a birthday present",
	},
	IntentTaskList: {
		"show my open tasks",
		"what's due this week",
		"list my todos",
	},
	IntentTaskComplete: {
		"mark the expense report as done",
		"I finished the passport renewal",
	},
	IntentTaskDue: {
		"push the tax filing to next month",
		"postpone that task until monday",
	},
}

// SemanticClassifier is the second stage: embedding similarity against
// canonical example utterances.
type SemanticClassifier struct {
	embedder Embedder
	examples map[Intent][]string

	mu      sync.Mutex
	vectors []exampleVector
}

type exampleVector struct {
	intent Intent
	vector []float32
}

// NewSemanticClassifier returns a classifier over the built-in canonical
// examples. Example embeddings are computed lazily on first use and cached.
func NewSemanticClassifier(embedder Embedder) *SemanticClassifier {
	return &SemanticClassifier{
		embedder: embedder,
		examples: canonicalExamples,
	}
}

// Prime embeds the canonical examples. It is called implicitly by Classify
// but can be invoked at startup to front-load the API calls.
func (s *SemanticClassifier) Prime(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.primeLocked(ctx)
}

func (s *SemanticClassifier) primeLocked(ctx context.Context) error {
	if s.vectors != nil {
		return nil
	}

	var texts []string
	var intents []Intent
	for _, intent := range AllIntents() {
		for _, example := range s.examples[intent] {
			texts = append(texts, example)
			intents = append(intents, intent)
		}
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed canonical examples: %w", err)
	}
	if len(embeddings) != len(texts) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(embeddings), len(texts))
	}

	vectors := make([]exampleVector, len(texts))
	for i := range texts {
		vectors[i] = exampleVector{intent: intents[i], vector: embeddings[i]}
	}
	s.vectors = vectors
	return nil
}

// Classify embeds the query and returns the intent of the most similar
// canonical example, with the cosine similarity as confidence.
func (s *SemanticClassifier) Classify(ctx context.Context, query string) (Classification, error) {
	s.mu.Lock()
	if err := s.primeLocked(ctx); err != nil {
		s.mu.Unlock()
		return Classification{}, err
	}
	vectors := s.vectors
	s.mu.Unlock()

	queryVec, err := s.embedder.Embed(ctx, normalizeQuery(query))
	if err != nil {
		return Classification{}, fmt.Errorf("failed to embed query: %w", err)
	}

	best := Classification{Intent: IntentUnknown, Stage: StageSemantic}
	for _, ev := range vectors {
		sim, err := CosineSimilarity(queryVec, ev.vector)
		if err != nil {
			continue
		}
		if sim > best.Confidence {
			best.Intent = ev.intent
			best.Confidence = sim
		}
	}

	// Semantic matching yields the intent only; slots come from the shared
	// extractors so downstream validation has something to work with.
	if best.Intent != IntentUnknown {
		best.Slots = extractSlots(best.Intent, query)
	}

	return best, nil
}
