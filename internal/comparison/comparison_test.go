// internal/comparison/comparison_test.go
package comparison

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mwiater/gollamadash/internal/appconfig"
	"github.com/mwiater/gollamadash/internal/metrics"
	"github.com/mwiater/gollamadash/internal/providers"
	"github.com/mwiater/gollamadash/internal/providers/ollama"
	"github.com/mwiater/gollamadash/internal/timeseries"
)

// scriptedProvider succeeds or fails per model ID with deterministic metrics.
type scriptedProvider struct {
	failIDs map[string]error
}

func (s *scriptedProvider) Generate(ctx context.Context, req providers.GenerateRequest, onProgress providers.ProgressFunc) (providers.GenerateResult, error) {
	if err, ok := s.failIDs[req.Config.ID]; ok {
		return providers.GenerateResult{}, err
	}
	m := metrics.Metrics{TokensPerSecond: 10, CompletionTokens: 5, TotalTokens: 5, ResponseTime: time.Second}
	if onProgress != nil {
		onProgress(0.1, metrics.Metrics{TokensPerSecond: 4, CompletionTokens: 1, TotalTokens: 1})
		onProgress(1.0, m)
	}
	return providers.GenerateResult{Text: "done", Metrics: m}, nil
}

func (s *scriptedProvider) Close() error { return nil }

func newTestComparer(provider providers.Provider) (*Comparer, *timeseries.Aggregator) {
	aggregator := timeseries.NewAggregator(100)
	return NewComparer(provider, aggregator, metrics.NewSessionStats()), aggregator
}

// TestCompareModelsPartialFailure verifies one model's failure is converted
// into an error-tagged result without affecting its sibling, and that the
// aggregate call resolves with a populated error list.
func TestCompareModelsPartialFailure(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{failIDs: map[string]error{
		"bad": &providers.HTTPError{Status: http.StatusInternalServerError, Body: "boom"},
	}}
	comparer, _ := newTestComparer(provider)

	configs := []appconfig.ModelConfig{
		{ID: "good", Name: "Good", Type: "ollama", URL: "http://x", Model: "a"},
		{ID: "bad", Name: "Bad", Type: "ollama", URL: "http://y", Model: "b"},
	}
	result, err := comparer.CompareModels(context.Background(), "prompt", configs, nil)
	if err != nil {
		t.Fatalf("CompareModels returned error: %v", err)
	}

	if len(result.Responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(result.Responses))
	}
	byID := map[string]ModelResult{}
	for _, r := range result.Responses {
		byID[r.ModelID] = r
	}
	good, bad := byID["good"], byID["bad"]
	if good.Error != "" || good.Metrics.TokensPerSecond != 10 {
		t.Fatalf("good model: %+v", good)
	}
	if bad.Error == "" || bad.Metrics != (metrics.Metrics{}) {
		t.Fatalf("failed model should carry zeroed metrics and an error: %+v", bad)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 aggregated error, got %v", result.Errors)
	}
}

// TestCompareModelsNoConfigs verifies an empty fan-out is the only way the
// call itself errors.
func TestCompareModelsNoConfigs(t *testing.T) {
	t.Parallel()

	comparer, _ := newTestComparer(&scriptedProvider{})
	if _, err := comparer.CompareModels(context.Background(), "p", nil, nil); err == nil {
		t.Fatal("expected error for empty config set")
	}
}

// TestCompareModelsEmitsBaseline verifies the aggregator receives an anchor
// point before any model reports and retains the buffer afterwards.
func TestCompareModelsEmitsBaseline(t *testing.T) {
	t.Parallel()

	comparer, aggregator := newTestComparer(&scriptedProvider{})
	configs := []appconfig.ModelConfig{{ID: "good", Name: "Good", Type: "ollama", URL: "http://x", Model: "a"}}
	if _, err := comparer.CompareModels(context.Background(), "p", configs, nil); err != nil {
		t.Fatalf("CompareModels: %v", err)
	}

	points := aggregator.Points()
	if len(points) < 3 {
		t.Fatalf("expected baseline plus progress points, got %d", len(points))
	}
	if points[0].Values["Good"] != nil {
		t.Fatal("baseline point should carry no value yet")
	}
	if aggregator.Collecting() {
		t.Fatal("aggregator should be idle after the comparison resolves")
	}
}

// TestCompareModelsProgressEvents verifies events reach the caller's sink with
// per-model completion flags.
func TestCompareModelsProgressEvents(t *testing.T) {
	t.Parallel()

	comparer, _ := newTestComparer(&scriptedProvider{failIDs: map[string]error{
		"bad": &providers.NetworkError{Err: context.DeadlineExceeded},
	}})
	configs := []appconfig.ModelConfig{
		{ID: "good", Name: "Good", Type: "ollama", URL: "http://x", Model: "a"},
		{ID: "bad", Name: "Bad", Type: "ollama", URL: "http://y", Model: "b"},
	}

	var mu sync.Mutex
	var events []ProgressEvent
	_, err := comparer.CompareModels(context.Background(), "p", configs, func(ev ProgressEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("CompareModels: %v", err)
	}

	var goodDone, badFailed bool
	var lastGoodFraction float64
	for _, ev := range events {
		if ev.ModelID == "good" {
			if ev.Fraction < lastGoodFraction {
				t.Fatalf("per-model progress went backwards: %v", events)
			}
			lastGoodFraction = ev.Fraction
			if ev.Done {
				goodDone = true
			}
		}
		if ev.ModelID == "bad" && ev.Done && ev.Err != nil {
			badFailed = true
		}
	}
	if !goodDone || !badFailed {
		t.Fatalf("missing terminal events: goodDone=%v badFailed=%v", goodDone, badFailed)
	}

	snapshot := comparer.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 progress records, got %d", len(snapshot))
	}
	for _, p := range snapshot {
		if !p.IsComplete || p.Progress != 100 {
			t.Fatalf("run not marked complete: %+v", p)
		}
	}
}

// TestCompareModelsAgainstHTTP exercises the orchestrator end to end with a
// real streaming endpoint and a failing one.
func TestCompareModelsAgainstHTTP(t *testing.T) {
	t.Parallel()

	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"hi","done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"response":"!","done":true,"eval_count":3,"eval_duration":1000000000,"prompt_eval_count":10,"prompt_eval_duration":200000000}` + "\n"))
	}))
	defer okServer.Close()

	badServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer badServer.Close()

	provider := ollama.New(&appconfig.Config{TimeoutSeconds: 5})
	comparer, _ := newTestComparer(provider)

	configs := []appconfig.ModelConfig{
		{ID: "ok", Name: "OK", Type: "ollama", URL: okServer.URL, Model: "a", MaxTokens: 50},
		{ID: "down", Name: "Down", Type: "ollama", URL: badServer.URL, Model: "b", MaxTokens: 50},
	}
	result, err := comparer.CompareModels(context.Background(), "prompt", configs, nil)
	if err != nil {
		t.Fatalf("CompareModels: %v", err)
	}

	byID := map[string]ModelResult{}
	for _, r := range result.Responses {
		byID[r.ModelID] = r
	}
	if byID["ok"].Error != "" || byID["ok"].Metrics.CompletionTokens != 3 {
		t.Fatalf("ok model: %+v", byID["ok"])
	}
	if byID["down"].Error == "" {
		t.Fatalf("down model should carry error: %+v", byID["down"])
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", result.Errors)
	}
}
