package parser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clavrr/clavr/internal/config"
)

func testClassifierConfig() config.ClassifierConfig {
	return config.ClassifierConfig{
		PatternThreshold:  0.85,
		SemanticThreshold: 0.75,
		LLMThreshold:      0.5,
	}
}

func newTestRouter(emb Embedder, gen TextGenerator) *Router {
	var semantic *SemanticClassifier
	if emb != nil {
		semantic = NewSemanticClassifier(emb)
	}
	var llm *LLMClassifier
	if gen != nil {
		llm = NewLLMClassifier(gen)
	}
	return NewRouter(testClassifierConfig(), semantic, llm, nil)
}

func TestRouterPatternAccepted(t *testing.T) {
	// Later stages would fail loudly if consulted.
	emb := newFakeEmbedder()
	emb.err = errors.New("semantic stage must not run")
	gen := &fakeGenerator{err: errors.New("llm stage must not run")}
	r := newTestRouter(emb, gen)

	c, err := r.Classify(context.Background(), "show my tasks", ref)
	require.NoError(t, err)
	assert.Equal(t, IntentTaskList, c.Intent)
	assert.Equal(t, StagePattern, c.Stage)
}

func TestRouterFallsThroughToSemantic(t *testing.T) {
	emb := newFakeEmbedder()
	emb.queries["how is my week looking"] = mix(IntentCalendarList, 0.9)
	gen := &fakeGenerator{err: errors.New("llm stage must not run")}
	r := newTestRouter(emb, gen)

	// No pattern rule matches this phrasing.
	c, err := r.Classify(context.Background(), "How is my week looking?", ref)
	require.NoError(t, err)
	assert.Equal(t, StageSemantic, c.Stage)
	assert.Equal(t, IntentCalendarList, c.Intent)
}

func TestRouterSemanticBelowThresholdGoesToLLM(t *testing.T) {
	emb := newFakeEmbedder()
	// Similar to archive but below the 0.75 acceptance threshold.
	emb.queries["deal with the mail situation"] = mix(IntentEmailArchive, 0.6)
	gen := &fakeGenerator{responses: []string{
		`{"intent": "email.archive", "confidence": 0.8, "slots": {"query": "category:promotions"}}`,
	}}
	r := newTestRouter(emb, gen)

	c, err := r.Classify(context.Background(), "deal with the mail situation", ref)
	require.NoError(t, err)
	assert.Equal(t, StageLLM, c.Stage)
	assert.Equal(t, IntentEmailArchive, c.Intent)
	assert.Equal(t, "category:promotions", c.Slot(SlotQuery))
}

func TestRouterSemanticValidationFailureGoesToLLM(t *testing.T) {
	emb := newFakeEmbedder()
	// Confident match for an intent whose required slots cannot be extracted
	// from this phrasing: email.send needs "to" and "subject".
	emb.queries["fire off that note we discussed"] = mix(IntentEmailSend, 0.95)
	gen := &fakeGenerator{responses: []string{
		`{"intent": "email.send", "confidence": 0.7, "slots": {"to": "alice@example.com", "subject": "the note"}}`,
	}}
	r := newTestRouter(emb, gen)

	c, err := r.Classify(context.Background(), "fire off that note we discussed", ref)
	require.NoError(t, err)
	assert.Equal(t, StageLLM, c.Stage)
	assert.Equal(t, "alice@example.com", c.Slot(SlotTo))
}

func TestRouterLLMCorrectionRetry(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		// First answer misses the required date slot.
		`{"intent": "task.due", "confidence": 0.9, "slots": {"task": "taxes"}}`,
		// Correction supplies it.
		`{"intent": "task.due", "confidence": 0.9, "slots": {"task": "taxes", "date": "next month"}}`,
	}}
	r := newTestRouter(newFakeEmbedder(), gen)

	c, err := r.Classify(context.Background(), "handle the taxes thing later", ref)
	require.NoError(t, err)
	assert.Equal(t, IntentTaskDue, c.Intent)
	assert.Equal(t, "next month", c.Slot(SlotDate))

	// The retry prompt carried the validation error.
	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[1], "A previous attempt was rejected")
	assert.Contains(t, gen.prompts[1], `requires slot "date"`)
}

func TestRouterLLMSecondRejectionIsUnknown(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"intent": "task.due", "confidence": 0.9, "slots": {"task": "taxes"}}`,
		`{"intent": "task.due", "confidence": 0.9, "slots": {"task": "taxes"}}`,
	}}
	r := newTestRouter(newFakeEmbedder(), gen)

	c, err := r.Classify(context.Background(), "handle the taxes thing later", ref)
	require.NoError(t, err)
	assert.Equal(t, IntentUnknown, c.Intent)
	assert.Equal(t, StageNone, c.Stage)
}

func TestRouterLLMLowConfidenceRetriesThenUnknown(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"intent": "task.list", "confidence": 0.2}`,
		`{"intent": "task.list", "confidence": 0.3}`,
	}}
	r := newTestRouter(newFakeEmbedder(), gen)

	c, err := r.Classify(context.Background(), "hmm maybe the things", ref)
	require.NoError(t, err)
	assert.Equal(t, IntentUnknown, c.Intent)
	assert.Equal(t, StageNone, c.Stage)
	assert.Len(t, gen.prompts, 2)
}

func TestRouterPatternOnlyMode(t *testing.T) {
	r := newTestRouter(nil, nil)

	c, err := r.Classify(context.Background(), "show my tasks", ref)
	require.NoError(t, err)
	assert.Equal(t, IntentTaskList, c.Intent)

	c, err = r.Classify(context.Background(), "what is the meaning of life", ref)
	require.NoError(t, err)
	assert.Equal(t, IntentUnknown, c.Intent)
	assert.Equal(t, StageNone, c.Stage)
}

func TestRouterSemanticFailureStillTriesLLM(t *testing.T) {
	emb := newFakeEmbedder()
	emb.err = errors.New("embedding service down")
	gen := &fakeGenerator{responses: []string{
		`{"intent": "task.list", "confidence": 0.9}`,
	}}
	r := newTestRouter(emb, gen)

	c, err := r.Classify(context.Background(), "things to do please", ref)
	require.NoError(t, err)
	assert.Equal(t, IntentTaskList, c.Intent)
	assert.Equal(t, StageLLM, c.Stage)
}

type stageCapture struct {
	outcomes map[string][]string
}

func (s *stageCapture) RecordClassifierStage(_ context.Context, stage, result string, _ time.Duration) {
	if s.outcomes == nil {
		s.outcomes = make(map[string][]string)
	}
	s.outcomes[stage] = append(s.outcomes[stage], result)
}

func TestRouterRecordsStageOutcomes(t *testing.T) {
	emb := newFakeEmbedder()
	emb.queries["how is my week looking"] = mix(IntentCalendarList, 0.9)
	r := newTestRouter(emb, nil)
	rec := &stageCapture{}
	r.SetMetrics(rec)

	_, err := r.Classify(context.Background(), "show my tasks", ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"accepted"}, rec.outcomes[StagePattern])

	_, err = r.Classify(context.Background(), "How is my week looking?", ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"accepted", "rejected"}, rec.outcomes[StagePattern])
	assert.Equal(t, []string{"accepted"}, rec.outcomes[StageSemantic])
}

func TestRouterAllStagesFailReturnsError(t *testing.T) {
	emb := newFakeEmbedder()
	emb.err = errors.New("embedding service down")
	gen := &fakeGenerator{err: errors.New("llm down")}
	r := newTestRouter(emb, gen)

	c, err := r.Classify(context.Background(), "things to do please", ref)
	require.Error(t, err)
	assert.Equal(t, IntentUnknown, c.Intent)
}
