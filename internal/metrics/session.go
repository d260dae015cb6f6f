// internal/metrics/session.go
package metrics

import (
	"math"
	"sync"
	"time"
)

// SessionStats accumulates per-model statistics across the comparisons run in
// one process. Callers construct their own instance; there is no shared global.
type SessionStats struct {
	mutex  sync.Mutex
	models map[string]*ModelStats
}

// ModelStats is the running statistical summary for one model.
type ModelStats struct {
	ModelName      string      `json:"model_name"`
	LastUpdatedUTC time.Time   `json:"last_updated_utc"`
	TotalRuns      int64       `json:"total_runs"`
	TokensPerSec   RunningStat `json:"tokens_per_second"`
	OutputTokens   RunningStat `json:"output_tokens"`
	ResponseMillis RunningStat `json:"response_time_ms"`
}

// RunningStat holds the values needed for online calculation of mean, variance, and stddev.
type RunningStat struct {
	Count int64   `json:"-"`
	Mean  float64 `json:"mean"`
	M2    float64 `json:"-"` // Sum of squares of differences from the current mean
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// NewSessionStats creates an empty session accumulator.
func NewSessionStats() *SessionStats {
	return &SessionStats{models: make(map[string]*ModelStats)}
}

// Record folds one completed run's metrics into the model's running stats.
func (s *SessionStats) Record(modelName string, m Metrics) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stats, exists := s.models[modelName]
	if !exists {
		stats = &ModelStats{ModelName: modelName}
		s.models[modelName] = stats
	}

	stats.LastUpdatedUTC = time.Now().UTC()
	stats.TotalRuns++
	updateRunningStat(&stats.TokensPerSec, m.TokensPerSecond)
	updateRunningStat(&stats.OutputTokens, float64(m.CompletionTokens))
	updateRunningStat(&stats.ResponseMillis, float64(m.ResponseTime)/float64(time.Millisecond))
}

// Snapshot returns a copy of every model's current stats.
func (s *SessionStats) Snapshot() []ModelStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make([]ModelStats, 0, len(s.models))
	for _, stats := range s.models {
		out = append(out, *stats)
	}
	return out
}

// StdDev derives the sample standard deviation from the running values.
func (rs RunningStat) StdDev() float64 {
	if rs.Count < 2 {
		return 0
	}
	return math.Sqrt(rs.M2 / float64(rs.Count-1))
}

// updateRunningStat updates a single running statistic using Welford's online algorithm.
func updateRunningStat(rs *RunningStat, value float64) {
	rs.Count++
	if rs.Count == 1 {
		rs.Min = value
		rs.Max = value
	} else {
		if value < rs.Min {
			rs.Min = value
		}
		if value > rs.Max {
			rs.Max = value
		}
	}

	delta := value - rs.Mean
	rs.Mean += delta / float64(rs.Count)
	delta2 := value - rs.Mean
	rs.M2 += delta * delta2
}
