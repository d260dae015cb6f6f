// internal/providers/openai/provider.go
// Package openai provides a single-shot Provider backed by OpenAI-compatible
// chat-completions endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/mwiater/gollamadash/internal/appconfig"
	"github.com/mwiater/gollamadash/internal/logging"
	"github.com/mwiater/gollamadash/internal/metrics"
	"github.com/mwiater/gollamadash/internal/providers"
)

// Provider implements providers.Provider using the /chat/completions API.
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

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     *int `json:"prompt_tokens"`
		CompletionTokens *int `json:"completion_tokens"`
		TotalTokens      *int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate issues one chat-completions request and derives metrics from the
// reported usage, falling back to wall-clock timing since the API reports no
// compute durations.
func (p *Provider) Generate(ctx context.Context, req providers.GenerateRequest, onProgress providers.ProgressFunc) (providers.GenerateResult, error) {
	cfg := req.Config
	payload := chatRequest{
		Model:       cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokensOrDefault(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return providers.GenerateResult{}, err
	}
	logging.LogRequest("DASH->LLM", cfg.URL, cfg.Model, body)

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, cfg.URL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return providers.GenerateResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	start := time.Now()
	if onProgress != nil {
		// No interim chunks arrive from this API, so report the run as started
		// with an empty measurement.
		m := metrics.Correct(metrics.RawStats{}, 0, req.Prompt, "")
		m.ContextSize = cfg.ContextSize
		onProgress(providers.FirstProgressFraction, m)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return providers.GenerateResult{}, &providers.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.GenerateResult{}, &providers.StreamReadError{Err: err}
	}
	if p.debug {
		logging.LogRequest("LLM->DASH", cfg.URL, cfg.Model, respBody)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return providers.GenerateResult{}, &providers.HTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return providers.GenerateResult{}, &providers.StreamReadError{Err: err}
	}

	var text string
	if len(result.Choices) > 0 {
		text = result.Choices[0].Message.Content
	}

	raw := metrics.RawStats{
		EvalCount:       result.Usage.CompletionTokens,
		PromptEvalCount: result.Usage.PromptTokens,
	}
	m := metrics.Correct(raw, time.Since(start), req.Prompt, text)
	m.ContextSize = cfg.ContextSize
	if onProgress != nil {
		onProgress(1.0, m)
	}

	return providers.GenerateResult{Text: text, Metrics: m}, nil
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}

var _ providers.Provider = (*Provider)(nil)
