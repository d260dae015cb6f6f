// internal/comparison/comparison.go
// Package comparison fans one prompt out to every enabled model and collects
// independent per-model outcomes.
package comparison

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mwiater/gollamadash/internal/appconfig"
	"github.com/mwiater/gollamadash/internal/logging"
	"github.com/mwiater/gollamadash/internal/metrics"
	"github.com/mwiater/gollamadash/internal/providers"
	"github.com/mwiater/gollamadash/internal/timeseries"
)

// ModelResult is the terminal outcome for one model in one comparison. A
// failed run carries zeroed metrics and the error message; siblings are
// unaffected.
type ModelResult struct {
	ModelID string          `json:"model_id"`
	Name    string          `json:"name"`
	Text    string          `json:"text,omitempty"`
	Metrics metrics.Metrics `json:"metrics"`
	Error   string          `json:"error,omitempty"`
}

// Result aggregates every model's outcome plus a side-channel error list for
// the UI. The comparison itself always completes.
type Result struct {
	Prompt    string        `json:"prompt"`
	Responses []ModelResult `json:"responses"`
	Errors    []string      `json:"errors"`
}

// RunProgress is the latest known state of one model's run within a
// comparison. It is replaced wholesale on every progress event.
type RunProgress struct {
	ModelID    string          `json:"model_id"`
	Name       string          `json:"name"`
	StartTime  time.Time       `json:"start_time"`
	IsComplete bool            `json:"is_complete"`
	Progress   float64         `json:"progress"` // 0..100
	Metrics    metrics.Metrics `json:"metrics"`
}

// ProgressEvent is delivered to the caller's sink for every progress report of
// every model in the active comparison.
type ProgressEvent struct {
	ModelID  string
	Name     string
	Fraction float64
	Metrics  metrics.Metrics
	Done     bool
	Err      error
}

// EventFunc receives progress events for one comparison. It is invoked from
// the model runs' goroutines.
type EventFunc func(ProgressEvent)

// Comparer orchestrates comparisons. Construct one per dashboard; there is no
// package-level instance.
type Comparer struct {
	provider   providers.Provider
	aggregator *timeseries.Aggregator
	stats      *metrics.SessionStats

	mutex      sync.Mutex
	runSeq     uint64
	cancelPrev context.CancelFunc
	progress   map[string]*RunProgress
	lastResult *Result
}

// NewComparer wires a comparer to its provider, time-series aggregator, and
// session stats accumulator.
func NewComparer(provider providers.Provider, aggregator *timeseries.Aggregator, stats *metrics.SessionStats) *Comparer {
	return &Comparer{
		provider:   provider,
		aggregator: aggregator,
		stats:      stats,
		progress:   make(map[string]*RunProgress),
	}
}

// CompareModels runs the prompt against every given config concurrently and
// blocks until all runs resolve. Per-model failures are converted into
// error-tagged results; the call itself only errors when there is nothing to
// fan out to. Submitting a new comparison cancels any runs still in flight
// from the previous one and resets the chart buffer.
func (c *Comparer) CompareModels(ctx context.Context, prompt string, configs []appconfig.ModelConfig, onEvent EventFunc) (*Result, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no models selected for comparison")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.mutex.Lock()
	if c.cancelPrev != nil {
		c.cancelPrev()
	}
	c.cancelPrev = cancel
	c.runSeq++
	seq := c.runSeq
	c.progress = make(map[string]*RunProgress, len(configs))
	now := time.Now()
	for _, cfg := range configs {
		c.progress[cfg.ID] = &RunProgress{ModelID: cfg.ID, Name: cfg.DisplayName(), StartTime: now}
	}
	c.mutex.Unlock()

	c.aggregator.Start(configs)
	// A newer submission takes over the aggregator and cancel slot; only the
	// current run may release them.
	defer func() {
		c.mutex.Lock()
		current := c.runSeq == seq
		if current {
			c.cancelPrev = nil
		}
		c.mutex.Unlock()
		cancel()
		if current {
			c.aggregator.Stop()
		}
	}()

	// Anchor point so the chart has a timestamp before any model reports.
	c.aggregator.Baseline()

	logging.LogEvent("[COMPARE] fanning prompt out to %d models", len(configs))

	results := make([]ModelResult, len(configs))
	var wg sync.WaitGroup
	for i, cfg := range configs {
		wg.Add(1)
		go func(i int, cfg appconfig.ModelConfig) {
			defer wg.Done()
			results[i] = c.runModel(runCtx, prompt, cfg, onEvent)
		}(i, cfg)
	}
	wg.Wait()

	result := &Result{Prompt: prompt, Responses: results}
	for _, r := range results {
		if r.Error != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", r.Name, r.Error))
		}
	}

	c.mutex.Lock()
	if c.runSeq == seq {
		c.lastResult = result
	}
	c.mutex.Unlock()

	return result, nil
}

// runModel executes one model's run, routing progress to the aggregator, the
// progress snapshots, and the caller's sink.
func (c *Comparer) runModel(ctx context.Context, prompt string, cfg appconfig.ModelConfig, onEvent EventFunc) ModelResult {
	name := cfg.DisplayName()
	onProgress := func(fraction float64, m metrics.Metrics) {
		c.updateProgress(cfg.ID, fraction, m)
		c.aggregator.Record(cfg.ID, fraction, m)
		if onEvent != nil {
			onEvent(ProgressEvent{ModelID: cfg.ID, Name: name, Fraction: fraction, Metrics: m, Done: fraction >= 1})
		}
	}

	res, err := c.provider.Generate(ctx, providers.GenerateRequest{Prompt: prompt, Config: cfg}, onProgress)
	if err != nil {
		logging.LogEvent("[COMPARE] %s failed: %v", name, err)
		c.markComplete(cfg.ID)
		if onEvent != nil {
			onEvent(ProgressEvent{ModelID: cfg.ID, Name: name, Fraction: 1, Done: true, Err: err})
		}
		return ModelResult{ModelID: cfg.ID, Name: name, Error: err.Error()}
	}

	if c.stats != nil {
		c.stats.Record(name, res.Metrics)
	}
	return ModelResult{ModelID: cfg.ID, Name: name, Text: res.Text, Metrics: res.Metrics}
}

func (c *Comparer) updateProgress(modelID string, fraction float64, m metrics.Metrics) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	prev, ok := c.progress[modelID]
	if !ok {
		return
	}
	c.progress[modelID] = &RunProgress{
		ModelID:    modelID,
		Name:       prev.Name,
		StartTime:  prev.StartTime,
		IsComplete: fraction >= 1,
		Progress:   fraction * 100,
		Metrics:    m,
	}
}

func (c *Comparer) markComplete(modelID string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if prev, ok := c.progress[modelID]; ok {
		next := *prev
		next.IsComplete = true
		next.Progress = 100
		c.progress[modelID] = &next
	}
}

// Snapshot returns the current per-model progress records.
func (c *Comparer) Snapshot() []RunProgress {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := make([]RunProgress, 0, len(c.progress))
	for _, p := range c.progress {
		out = append(out, *p)
	}
	return out
}

// LastResult returns the most recently completed comparison, or nil.
func (c *Comparer) LastResult() *Result {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lastResult
}
