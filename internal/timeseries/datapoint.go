// internal/timeseries/datapoint.go
// Package timeseries maintains the bounded multi-model throughput series
// consumed by the live chart.
package timeseries

import (
	"encoding/json"
	"time"
)

// DataPoint is one timestamped snapshot of every tracked model's latest known
// throughput. A nil value marks a model with no measurement yet at that
// instant. Points are immutable once appended.
type DataPoint struct {
	Timestamp time.Time
	Values    map[string]*float64
}

// MarshalJSON flattens the point into a single object with an ISO-8601
// timestamp and one key per model, as the chart consumes it.
func (p DataPoint) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(p.Values)+1)
	flat["timestamp"] = p.Timestamp.Format(time.RFC3339Nano)
	for name, value := range p.Values {
		if value == nil {
			flat[name] = nil
		} else {
			flat[name] = *value
		}
	}
	return json.Marshal(flat)
}

// Clone returns a deep copy so callers can hold points without aliasing the
// aggregator's buffer.
func (p DataPoint) Clone() DataPoint {
	values := make(map[string]*float64, len(p.Values))
	for name, value := range p.Values {
		if value == nil {
			values[name] = nil
			continue
		}
		v := *value
		values[name] = &v
	}
	return DataPoint{Timestamp: p.Timestamp, Values: values}
}
