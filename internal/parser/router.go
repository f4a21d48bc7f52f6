package parser

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/clavrr/clavr/internal/config"
	"github.com/clavrr/clavr/internal/logging"
)

var (
	errUnknownIntent = errors.New("model returned unknown intent")
	errLowConfidence = errors.New("confidence below acceptance threshold")
)

// StageRecorder receives per-stage classification outcomes.
// *instrumentation.Metrics satisfies it.
type StageRecorder interface {
	RecordClassifierStage(ctx context.Context, stage, result string, duration time.Duration)
}

// Stage outcome labels.
const (
	stageResultAccepted = "accepted"
	stageResultRejected = "rejected"
	stageResultError    = "error"
)

// Router runs the classification stages in order and applies the confidence
// thresholds and self-validation policy.
//
// A stage result is accepted when its confidence clears the stage threshold
// AND it survives slot validation. A pattern or semantic result that fails
// either check falls through to the next stage. An LLM result that fails
// validation is retried once with the validation error embedded in the
// prompt; a second failure falls through to unknown.
type Router struct {
	pattern  *PatternClassifier
	semantic *SemanticClassifier
	llm      *LLMClassifier

	patternThreshold  float64
	semanticThreshold float64
	llmThreshold      float64

	logger  *slog.Logger
	metrics StageRecorder
}

// SetMetrics attaches a per-stage outcome recorder.
func (r *Router) SetMetrics(m StageRecorder) {
	r.metrics = m
}

func (r *Router) recordStage(ctx context.Context, stage, result string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordClassifierStage(ctx, stage, result, time.Since(start))
	}
}

// NewRouter assembles the pipeline. The semantic and LLM stages may be nil,
// in which case they are skipped; this keeps the router usable without API
// credentials (pattern-only mode) and in tests.
func NewRouter(cfg config.ClassifierConfig, semantic *SemanticClassifier, llm *LLMClassifier, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		pattern:           NewPatternClassifier(),
		semantic:          semantic,
		llm:               llm,
		patternThreshold:  cfg.PatternThreshold,
		semanticThreshold: cfg.SemanticThreshold,
		llmThreshold:      cfg.LLMThreshold,
		logger:            logger,
	}
}

// Classify routes a query through the pipeline and returns the accepted
// classification. The returned classification always carries the stage that
// produced it; when every stage passes, the result is IntentUnknown with
// StageNone. Errors are returned only for infrastructure failures after all
// stages are exhausted.
func (r *Router) Classify(ctx context.Context, query string, ref time.Time) (Classification, error) {
	log := r.logger.With(logging.KeyOperation, "classify")

	// Stage 1: patterns.
	patternStart := time.Now()
	if c, ok := r.pattern.Classify(query); ok && c.Confidence >= r.patternThreshold {
		if err := Validate(c, ref); err == nil {
			r.recordStage(ctx, StagePattern, stageResultAccepted, patternStart)
			log.Debug("query classified",
				logging.Intent(string(c.Intent)),
				logging.Stage(c.Stage),
				slog.Float64("confidence", c.Confidence))
			return c, nil
		} else {
			log.Debug("pattern result rejected by validation", logging.Err(err))
		}
	}
	r.recordStage(ctx, StagePattern, stageResultRejected, patternStart)

	// Stage 2: semantic similarity.
	var semErr error
	if r.semantic != nil {
		semanticStart := time.Now()
		c, err := r.semantic.Classify(ctx, query)
		if err != nil {
			semErr = err
			r.recordStage(ctx, StageSemantic, stageResultError, semanticStart)
			log.Warn("semantic stage failed", logging.Err(err))
		} else if c.Confidence >= r.semanticThreshold {
			if verr := Validate(c, ref); verr == nil {
				r.recordStage(ctx, StageSemantic, stageResultAccepted, semanticStart)
				log.Debug("query classified",
					logging.Intent(string(c.Intent)),
					logging.Stage(c.Stage),
					slog.Float64("confidence", c.Confidence))
				return c, nil
			} else {
				r.recordStage(ctx, StageSemantic, stageResultRejected, semanticStart)
				log.Debug("semantic result rejected by validation", logging.Err(verr))
			}
		} else {
			r.recordStage(ctx, StageSemantic, stageResultRejected, semanticStart)
		}
	}

	// Stage 3: LLM, with one correction retry on validation failure.
	if r.llm != nil {
		llmStart := time.Now()
		c, err := r.classifyLLM(ctx, query, ref, log)
		if err == nil {
			result := stageResultAccepted
			if c.Intent == IntentUnknown {
				result = stageResultRejected
			}
			r.recordStage(ctx, StageLLM, result, llmStart)
			return c, nil
		}
		r.recordStage(ctx, StageLLM, stageResultError, llmStart)
		log.Warn("llm stage failed", logging.Err(err))
		if semErr == nil {
			semErr = err
		}
	}

	// Everything fell through.
	unknown := Classification{Intent: IntentUnknown, Stage: StageNone}
	if r.semantic == nil && r.llm == nil {
		// Pattern-only mode: an unmatched query is a normal outcome.
		return unknown, nil
	}
	return unknown, semErr
}

func (r *Router) classifyLLM(ctx context.Context, query string, ref time.Time, log *slog.Logger) (Classification, error) {
	c, err := r.llm.Classify(ctx, query, "")
	if err != nil {
		return Classification{}, err
	}

	verr := validateLLMResult(c, ref, r.llmThreshold)
	if verr == nil {
		log.Debug("query classified",
			logging.Intent(string(c.Intent)),
			logging.Stage(c.Stage),
			slog.Float64("confidence", c.Confidence))
		return c, nil
	}

	// One correction attempt with the validation error fed back.
	log.Debug("llm result rejected, retrying with correction hint", logging.Err(verr))
	c, err = r.llm.Classify(ctx, query, verr.Error())
	if err != nil {
		return Classification{}, err
	}
	if verr := validateLLMResult(c, ref, r.llmThreshold); verr != nil {
		log.Debug("llm correction rejected", logging.Err(verr))
		return Classification{Intent: IntentUnknown, Stage: StageNone}, nil
	}

	log.Debug("query classified after correction",
		logging.Intent(string(c.Intent)),
		logging.Stage(c.Stage),
		slog.Float64("confidence", c.Confidence))
	return c, nil
}

func validateLLMResult(c Classification, ref time.Time, threshold float64) error {
	if c.Intent == IntentUnknown {
		return errUnknownIntent
	}
	if c.Confidence < threshold {
		return errLowConfidence
	}
	return Validate(c, ref)
}
