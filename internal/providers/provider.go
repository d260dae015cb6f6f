// internal/providers/provider.go

// Package providers defines the interface for running one generation against a
// model endpoint. It provides a common abstraction for issuing the request,
// normalizing streamed or single-shot statistics, and reporting progress,
// regardless of the underlying provider implementation (e.g., Ollama, OpenAI).
package providers

import (
	"context"
	"time"

	"github.com/mwiater/gollamadash/internal/appconfig"
	"github.com/mwiater/gollamadash/internal/metrics"
)

const (
	// ProgressMinInterval is the minimum wall-clock spacing between progress
	// callbacks while a stream is in flight. The first and final reports are
	// exempt so the consumer always sees the run start and finish.
	ProgressMinInterval = 50 * time.Millisecond
	// FirstProgressFraction is the nominal fraction reported as soon as the
	// first chunk arrives.
	FirstProgressFraction = 0.10
	// MaxStreamingFraction caps the reported fraction before the terminal
	// record arrives, so a run never looks done while still streaming.
	MaxStreamingFraction = 0.99
)

// ProgressFunc receives one in-flight measurement for a run. The fraction is
// in [0,1] and reaches 1.0 only with the authoritative final metrics.
type ProgressFunc func(fraction float64, m metrics.Metrics)

// GenerateRequest encapsulates one generation run against one configured model.
type GenerateRequest struct {
	Prompt string
	Config appconfig.ModelConfig
}

// GenerateResult holds the generated text and the final, authoritative metrics
// for one completed run.
type GenerateResult struct {
	Text    string
	Metrics metrics.Metrics
}

// Provider is the interface all model providers implement.
type Provider interface {
	// Generate runs one prompt to completion, invoking onProgress (when non-nil)
	// with rate-limited partial metrics along the way.
	Generate(ctx context.Context, req GenerateRequest, onProgress ProgressFunc) (GenerateResult, error)
	// Close cleans up any resources used by the provider.
	Close() error
}

// ProgressLimiter enforces the minimum spacing between progress reports.
// The zero value emits the first report unconditionally.
type ProgressLimiter struct {
	lastEmit time.Time
	emitted  bool
}

// Emitted reports whether any progress callback has fired yet.
func (l *ProgressLimiter) Emitted() bool {
	return l.emitted
}

// Allow reports whether a progress callback may fire now, recording the
// emission time when it may. Final reports bypass the limiter entirely.
func (l *ProgressLimiter) Allow(now time.Time) bool {
	if l.emitted && now.Sub(l.lastEmit) < ProgressMinInterval {
		return false
	}
	l.lastEmit = now
	l.emitted = true
	return true
}
