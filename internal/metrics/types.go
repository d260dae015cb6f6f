// internal/metrics/types.go
// Package metrics normalizes raw provider statistics into canonical generation metrics.
package metrics

import (
	"encoding/json"
	"time"
)

// RawStats carries the statistics a provider reported for one generation step or
// one finished generation. Every field is optional; absent fields are estimated
// or defaulted by Correct rather than treated as errors.
type RawStats struct {
	// EvalCount is the provider-reported number of generated tokens.
	EvalCount *int
	// EvalDuration is the generation time in nanoseconds, excluding load and prompt evaluation.
	EvalDuration *int64
	// PromptEvalCount is the provider-reported prompt token count. Some providers
	// report this inclusive of generated tokens; Correct untangles both forms.
	PromptEvalCount *int
	// PromptEvalDuration is the prompt evaluation time in nanoseconds.
	PromptEvalDuration *int64
	// TotalDuration is the provider-reported end-to-end time in nanoseconds.
	TotalDuration *int64
}

// Metrics is the canonical record for one measurement of a model run.
// Values are never mutated after construction; every update is a fresh record.
type Metrics struct {
	ResponseTime     time.Duration
	TokensPerSecond  float64
	TotalTokens      int
	PromptTokens     int
	CompletionTokens int
	ProcessingTime   time.Duration
	ContextSize      int
	// Estimated reports that at least one token count came from the
	// characters/4 heuristic rather than provider-reported usage.
	Estimated bool
}

// MarshalJSON emits durations in the units the dashboard consumes:
// milliseconds for response time, seconds for processing time.
func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ResponseTimeMs    float64 `json:"response_time_ms"`
		TokensPerSecond   float64 `json:"tokens_per_second"`
		TotalTokens       int     `json:"total_tokens"`
		PromptTokens      int     `json:"prompt_tokens"`
		CompletionTokens  int     `json:"completion_tokens"`
		ProcessingTimeSec float64 `json:"processing_time_sec"`
		ContextSize       int     `json:"context_size,omitempty"`
		Estimated         bool    `json:"estimated,omitempty"`
	}{
		ResponseTimeMs:    float64(m.ResponseTime) / float64(time.Millisecond),
		TokensPerSecond:   m.TokensPerSecond,
		TotalTokens:       m.TotalTokens,
		PromptTokens:      m.PromptTokens,
		CompletionTokens:  m.CompletionTokens,
		ProcessingTimeSec: m.ProcessingTime.Seconds(),
		ContextSize:       m.ContextSize,
		Estimated:         m.Estimated,
	})
}
