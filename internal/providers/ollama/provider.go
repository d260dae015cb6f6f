// internal/providers/ollama/provider.go
// Package ollama provides a streaming Provider backed by Ollama-compatible HTTP endpoints.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/gollamadash/internal/appconfig"
	"github.com/mwiater/gollamadash/internal/logging"
	"github.com/mwiater/gollamadash/internal/metrics"
	"github.com/mwiater/gollamadash/internal/providers"
)

// Provider implements providers.Provider using Ollama's /api/generate endpoint.
type Provider struct {
	client  *http.Client
	timeout time.Duration
	debug   bool
}

// New constructs a Provider configured with the application's request timeout.
func New(cfg *appconfig.Config) *Provider {
	timeout := cfg.RequestTimeout()
	return &Provider{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		timeout: timeout,
		debug:   cfg.Debug,
	}
}

// generateChunk defines the structure of a single line in a streaming response.
// Statistics fields are pointers so absent fields stay distinguishable from zero.
type generateChunk struct {
	Model              string `json:"model"`
	Response           string `json:"response"`
	Done               bool   `json:"done"`
	TotalDuration      *int64 `json:"total_duration"`
	LoadDuration       *int64 `json:"load_duration"`
	PromptEvalCount    *int   `json:"prompt_eval_count"`
	PromptEvalDuration *int64 `json:"prompt_eval_duration"`
	EvalCount          *int   `json:"eval_count"`
	EvalDuration       *int64 `json:"eval_duration"`
}

func (c generateChunk) rawStats() metrics.RawStats {
	return metrics.RawStats{
		EvalCount:          c.EvalCount,
		EvalDuration:       c.EvalDuration,
		PromptEvalCount:    c.PromptEvalCount,
		PromptEvalDuration: c.PromptEvalDuration,
		TotalDuration:      c.TotalDuration,
	}
}

// Generate streams one prompt through /api/generate, normalizing every parsed
// line into metrics and reporting rate-limited progress until the terminal record.
func (p *Provider) Generate(ctx context.Context, req providers.GenerateRequest, onProgress providers.ProgressFunc) (providers.GenerateResult, error) {
	cfg := req.Config
	payload := map[string]any{
		"model":   cfg.Model,
		"prompt":  req.Prompt,
		"stream":  true,
		"options": buildOptions(cfg),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return providers.GenerateResult{}, err
	}
	logging.LogRequest("DASH->LLM", cfg.URL, cfg.Model, body)

	streamCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, cfg.URL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return providers.GenerateResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return providers.GenerateResult{}, &providers.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		logging.LogRequest("LLM->DASH", cfg.URL, cfg.Model, respBody)
		return providers.GenerateResult{}, &providers.HTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var (
		text     strings.Builder
		limiter  providers.ProgressLimiter
		final    *generateChunk
		maxToken = cfg.MaxTokensOrDefault()
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			logging.LogWarning("ollama: skipping malformed chunk from %s: %v", cfg.URL, err)
			continue
		}
		if p.debug {
			logging.LogRequest("LLM->DASH", cfg.URL, cfg.Model, line)
		}

		text.WriteString(chunk.Response)

		if chunk.Done {
			final = &chunk
			break
		}

		if onProgress == nil {
			continue
		}
		m := metrics.Correct(chunk.rawStats(), time.Since(start), req.Prompt, text.String())
		m.ContextSize = cfg.ContextSize
		fraction := streamingFraction(m.CompletionTokens, maxToken, !limiter.Emitted())
		if limiter.Allow(time.Now()) {
			onProgress(fraction, m)
		}
	}
	if err := scanner.Err(); err != nil {
		return providers.GenerateResult{}, &providers.StreamReadError{Err: err}
	}
	if final == nil {
		return providers.GenerateResult{}, &providers.StreamReadError{Err: io.ErrUnexpectedEOF}
	}

	// The terminal record carries the provider's own totals, so this final
	// correction supersedes every partial value.
	m := metrics.Correct(final.rawStats(), time.Since(start), req.Prompt, text.String())
	m.ContextSize = cfg.ContextSize
	if onProgress != nil {
		onProgress(1.0, m)
	}

	return providers.GenerateResult{Text: text.String(), Metrics: m}, nil
}

// streamingFraction derives the in-flight progress fraction from generated
// tokens against the configured cap, never reporting completion early.
func streamingFraction(completionTokens, maxTokens int, first bool) float64 {
	fraction := 0.0
	if maxTokens > 0 {
		fraction = float64(completionTokens) / float64(maxTokens)
	}
	if first && fraction < providers.FirstProgressFraction {
		fraction = providers.FirstProgressFraction
	}
	if fraction > providers.MaxStreamingFraction {
		fraction = providers.MaxStreamingFraction
	}
	return fraction
}

func buildOptions(cfg appconfig.ModelConfig) map[string]any {
	options := map[string]any{
		"num_predict": cfg.MaxTokensOrDefault(),
	}
	if cfg.Temperature != nil {
		options["temperature"] = *cfg.Temperature
	}
	if cfg.ContextSize > 0 {
		options["num_ctx"] = cfg.ContextSize
	}
	if cfg.Threads > 0 {
		options["num_thread"] = cfg.Threads
	}
	return options
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}

var _ providers.Provider = (*Provider)(nil)

// EnsureReachable issues a cheap request so connection problems surface before
// a comparison starts.
func (p *Provider) EnsureReachable(ctx context.Context, cfg appconfig.ModelConfig) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return &providers.NetworkError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: /api/tags returned %s", resp.Status)
	}
	return nil
}
