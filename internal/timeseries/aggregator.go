// internal/timeseries/aggregator.go
package timeseries

import (
	"sync"
	"time"

	"github.com/mwiater/gollamadash/internal/appconfig"
	"github.com/mwiater/gollamadash/internal/metrics"
)

// TickInterval is the wall-clock cadence at which the aggregator appends a
// point while a comparison is collecting, independent of progress events.
const TickInterval = 50 * time.Millisecond

// Aggregator owns the bounded, append-only buffer of comparison data points.
// It is idle until Start and appends from both progress events and a periodic
// tick until Stop; the buffer survives Stop for display and resets on the next
// Start.
type Aggregator struct {
	mutex      sync.Mutex
	maxPoints  int
	points     []DataPoint
	names      map[string]string
	latest     map[string]*float64
	collecting bool
	stopTick   chan struct{}
	now        func() time.Time
}

// NewAggregator creates an idle aggregator holding at most maxPoints points.
func NewAggregator(maxPoints int) *Aggregator {
	if maxPoints <= 0 {
		maxPoints = appconfig.DefaultChartMaxPoints
	}
	return &Aggregator{
		maxPoints: maxPoints,
		names:     make(map[string]string),
		latest:    make(map[string]*float64),
		now:       time.Now,
	}
}

// Start resets the buffer for a new comparison, tracks the given configs, and
// begins the periodic tick. A comparison already collecting is stopped first;
// the handover happens under one lock so concurrent Starts cannot leak a tick
// loop.
func (a *Aggregator) Start(configs []appconfig.ModelConfig) {
	a.mutex.Lock()
	if a.stopTick != nil {
		close(a.stopTick)
		a.stopTick = nil
	}
	a.points = nil
	a.names = make(map[string]string, len(configs))
	a.latest = make(map[string]*float64, len(configs))
	for _, cfg := range configs {
		name := cfg.DisplayName()
		a.names[cfg.ID] = name
		a.latest[name] = nil
	}
	a.collecting = true
	stop := make(chan struct{})
	a.stopTick = stop
	a.mutex.Unlock()

	go a.tickLoop(stop)
}

// Stop ends collection, halting the tick loop. The buffer is retained.
func (a *Aggregator) Stop() {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if !a.collecting {
		return
	}
	a.collecting = false
	close(a.stopTick)
	a.stopTick = nil
}

// Record folds one progress event into the series. Events for models no longer
// in the active config set are dropped.
func (a *Aggregator) Record(modelID string, progress float64, m metrics.Metrics) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if !a.collecting {
		return
	}
	name, ok := a.names[modelID]
	if !ok {
		return
	}
	tps := m.TokensPerSecond
	a.latest[name] = &tps
	a.appendSnapshotLocked()
}

// Baseline appends an empty anchor point so the chart has a starting timestamp
// before any model reports.
func (a *Aggregator) Baseline() {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if !a.collecting {
		return
	}
	a.appendSnapshotLocked()
}

// Points returns a chronological copy of the current buffer.
func (a *Aggregator) Points() []DataPoint {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	out := make([]DataPoint, len(a.points))
	for i, p := range a.points {
		out[i] = p.Clone()
	}
	return out
}

// Collecting reports whether a comparison is currently feeding the buffer.
func (a *Aggregator) Collecting() bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.collecting
}

func (a *Aggregator) tickLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.mutex.Lock()
			if a.collecting {
				a.appendSnapshotLocked()
			}
			a.mutex.Unlock()
		}
	}
}

// appendSnapshotLocked appends a carry-forward snapshot of every tracked
// model's latest throughput, evicting the oldest point past capacity.
func (a *Aggregator) appendSnapshotLocked() {
	values := make(map[string]*float64, len(a.latest))
	for name, value := range a.latest {
		if value == nil {
			values[name] = nil
			continue
		}
		v := *value
		values[name] = &v
	}
	a.points = append(a.points, DataPoint{Timestamp: a.now(), Values: values})
	if len(a.points) > a.maxPoints {
		a.points = a.points[len(a.points)-a.maxPoints:]
	}
}
