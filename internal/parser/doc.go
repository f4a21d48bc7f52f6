// Package parser turns natural-language queries into typed assistant actions.
//
// Classification runs in three stages of increasing cost:
//
//  1. Pattern matching: anchored regular expressions with per-rule
//     confidence. Free and deterministic; handles the common phrasings.
//  2. Semantic similarity: the query is embedded and scored by cosine
//     similarity against canonical example utterances per intent.
//  3. LLM classification: a JSON-mode prompt to Gemini returns intent,
//     confidence, and slots, parsed defensively.
//
// The Router applies confidence thresholds to each stage and validates every
// accepted result against the intent's slot schema. A pattern or semantic
// result that fails validation falls through to the next stage; an LLM
// result is retried once with the validation error embedded in the prompt
// before the query is given up as unknown.
//
// Accepted classifications are turned into typed actions (EmailAction,
// CalendarAction, TaskAction) with relative date phrases resolved against a
// reference clock, so executors only ever see absolute times.
package parser
