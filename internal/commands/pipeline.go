// internal/commands/pipeline.go
package gollamadash

import (
	"github.com/mwiater/gollamadash/internal/appconfig"
	"github.com/mwiater/gollamadash/internal/comparison"
	"github.com/mwiater/gollamadash/internal/metrics"
	"github.com/mwiater/gollamadash/internal/providers"
	"github.com/mwiater/gollamadash/internal/providers/multiplex"
	"github.com/mwiater/gollamadash/internal/providers/ollama"
	"github.com/mwiater/gollamadash/internal/providers/openai"
	"github.com/mwiater/gollamadash/internal/timeseries"
)

// pipeline bundles the comparison stack a command needs: the routed provider,
// the chart aggregator, session stats, and the comparer on top of them.
type pipeline struct {
	provider   providers.Provider
	aggregator *timeseries.Aggregator
	stats      *metrics.SessionStats
	comparer   *comparison.Comparer
}

// newPipeline wires the full comparison stack from the loaded configuration.
func newPipeline(cfg *appconfig.Config) *pipeline {
	provider := multiplex.New(map[string]providers.Provider{
		"ollama": ollama.New(cfg),
		"openai": openai.New(cfg),
	})
	aggregator := timeseries.NewAggregator(cfg.MaxPoints())
	stats := metrics.NewSessionStats()
	return &pipeline{
		provider:   provider,
		aggregator: aggregator,
		stats:      stats,
		comparer:   comparison.NewComparer(provider, aggregator, stats),
	}
}

// Close releases provider resources.
func (p *pipeline) Close() {
	_ = p.provider.Close()
}
