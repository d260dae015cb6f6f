// internal/providers/multiplex/provider.go
// Package multiplex routes provider calls based on the model config's provider kind.
package multiplex

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwiater/gollamadash/internal/providers"
)

// Provider delegates calls to an underlying provider based on provider kind.
type Provider struct {
	providers map[string]providers.Provider
}

// New constructs a Provider from a map of provider kind to implementation.
func New(providerMap map[string]providers.Provider) *Provider {
	normalized := make(map[string]providers.Provider, len(providerMap))
	for key, provider := range providerMap {
		normalized[normalizeType(key)] = provider
	}
	return &Provider{providers: normalized}
}

// Generate routes the run to the provider registered for the config's kind.
func (p *Provider) Generate(ctx context.Context, req providers.GenerateRequest, onProgress providers.ProgressFunc) (providers.GenerateResult, error) {
	provider, err := p.providerForKind(req.Config.Type)
	if err != nil {
		return providers.GenerateResult{}, err
	}
	return provider.Generate(ctx, req, onProgress)
}

// Close cleans up every registered provider, reporting the first failure.
func (p *Provider) Close() error {
	var firstErr error
	seen := map[providers.Provider]struct{}{}
	for _, provider := range p.providers {
		if _, ok := seen[provider]; ok {
			continue
		}
		seen[provider] = struct{}{}
		if err := provider.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Provider) providerForKind(kind string) (providers.Provider, error) {
	normalized := normalizeType(kind)
	if provider, ok := p.providers[normalized]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("no provider registered for kind %q", kind)
}

func normalizeType(kind string) string {
	normalized := strings.ToLower(strings.TrimSpace(kind))
	switch normalized {
	case "", "ollama":
		return "ollama"
	case "openai", "openai-compatible":
		return "openai"
	default:
		return normalized
	}
}

var _ providers.Provider = (*Provider)(nil)
