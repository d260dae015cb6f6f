// internal/chart/preprocess_test.go
package chart

import (
	"testing"
	"time"

	"github.com/mwiater/gollamadash/internal/timeseries"
)

func fp(v float64) *float64 { return &v }

func point(ts time.Time, values map[string]*float64) timeseries.DataPoint {
	return timeseries.DataPoint{Timestamp: ts, Values: values}
}

var t0 = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

// TestPreprocessEmpty verifies an empty buffer produces no output.
func TestPreprocessEmpty(t *testing.T) {
	t.Parallel()

	if got := Preprocess(nil, Options{}); got != nil {
		t.Fatalf("expected nil output, got %v", got)
	}
}

// TestPreprocessSinglePoint verifies a one-point buffer is duplicated 100ms
// later so a visible segment renders.
func TestPreprocessSinglePoint(t *testing.T) {
	t.Parallel()

	out := Preprocess([]timeseries.DataPoint{
		point(t0, map[string]*float64{"Alpha": fp(4)}),
	}, Options{})

	if len(out) != 2 {
		t.Fatalf("expected 2 points, got %d", len(out))
	}
	if got := out[1].Timestamp.Sub(out[0].Timestamp); got != 100*time.Millisecond {
		t.Fatalf("duplicate offset: got %v", got)
	}
	if *out[0].Values["Alpha"] != 4 || *out[1].Values["Alpha"] != 4 {
		t.Fatalf("duplicate should carry identical values: %v", out)
	}
}

// TestPreprocessNormalizesKeys verifies every output point carries the union
// of model keys with explicit nils as gap markers.
func TestPreprocessNormalizesKeys(t *testing.T) {
	t.Parallel()

	out := Preprocess([]timeseries.DataPoint{
		point(t0, map[string]*float64{"A": fp(1)}),
		point(t0.Add(50*time.Millisecond), map[string]*float64{"B": fp(2)}),
		point(t0.Add(100*time.Millisecond), map[string]*float64{"A": fp(3)}),
	}, Options{})

	if len(out) != 3 {
		t.Fatalf("expected 3 points, got %d", len(out))
	}
	for i, p := range out {
		if _, ok := p.Values["A"]; !ok {
			t.Fatalf("point %d missing key A", i)
		}
		if _, ok := p.Values["B"]; !ok {
			t.Fatalf("point %d missing key B", i)
		}
	}
	if out[0].Values["B"] != nil || out[2].Values["B"] != nil {
		t.Fatalf("B should be nil at t0 and t2")
	}
	if out[1].Values["A"] != nil {
		t.Fatalf("A should be nil at t1")
	}
}

// TestPreprocessSortsByTimestamp verifies out-of-order input is re-sorted
// before processing.
func TestPreprocessSortsByTimestamp(t *testing.T) {
	t.Parallel()

	out := Preprocess([]timeseries.DataPoint{
		point(t0.Add(100*time.Millisecond), map[string]*float64{"A": fp(3)}),
		point(t0, map[string]*float64{"A": fp(1)}),
		point(t0.Add(50*time.Millisecond), map[string]*float64{"A": fp(2)}),
	}, Options{})

	for i := 1; i < len(out); i++ {
		if out[i].Timestamp.Before(out[i-1].Timestamp) {
			t.Fatalf("output not chronological at %d", i)
		}
	}
	if *out[0].Values["A"] != 1 {
		t.Fatalf("earliest value should come first, got %v", *out[0].Values["A"])
	}
}

// TestPreprocessInterpolatesWideGaps verifies synthetic eased points fill gaps
// wider than twice the time step without overshooting the endpoint range.
func TestPreprocessInterpolatesWideGaps(t *testing.T) {
	t.Parallel()

	out := Preprocess([]timeseries.DataPoint{
		point(t0, map[string]*float64{"A": fp(0)}),
		point(t0.Add(500*time.Millisecond), map[string]*float64{"A": fp(100)}),
	}, Options{})

	// 500ms gap at 50ms step yields 9 synthetic points between the 2 real ones.
	if len(out) != 11 {
		t.Fatalf("expected 11 points, got %d", len(out))
	}
	prev := -1.0
	for i, p := range out {
		v := p.Values["A"]
		if v == nil {
			t.Fatalf("point %d lost its value", i)
		}
		if *v < 0 || *v > 100 {
			t.Fatalf("interpolated value overshoots: %v", *v)
		}
		if *v < prev {
			t.Fatalf("eased values not monotonic at %d: %v < %v", i, *v, prev)
		}
		prev = *v
	}
}

// TestPreprocessInterpolationCap verifies a single gap never produces more
// than 20 synthetic points.
func TestPreprocessInterpolationCap(t *testing.T) {
	t.Parallel()

	out := Preprocess([]timeseries.DataPoint{
		point(t0, map[string]*float64{"A": fp(0)}),
		point(t0.Add(10*time.Second), map[string]*float64{"A": fp(1)}),
	}, Options{})

	if len(out) != 22 {
		t.Fatalf("expected 2 real + 20 synthetic points, got %d", len(out))
	}
}

// TestPreprocessInterpolationSkipsGapsWithNil verifies synthetic points mark a
// gap rather than inventing values when either endpoint is unknown.
func TestPreprocessInterpolationSkipsGapsWithNil(t *testing.T) {
	t.Parallel()

	out := Preprocess([]timeseries.DataPoint{
		point(t0, map[string]*float64{"A": fp(1), "B": nil}),
		point(t0.Add(300*time.Millisecond), map[string]*float64{"A": fp(2), "B": fp(5)}),
	}, Options{})

	for i := 1; i < len(out)-1; i++ {
		if out[i].Values["B"] != nil {
			t.Fatalf("synthetic point %d fabricated a value for B", i)
		}
		if out[i].Values["A"] == nil {
			t.Fatalf("synthetic point %d lost A", i)
		}
	}
}

// TestPreprocessSmoothing verifies the centered moving average levels spikes
// while leaving nils out of the averages.
func TestPreprocessSmoothing(t *testing.T) {
	t.Parallel()

	step := 50 * time.Millisecond
	points := []timeseries.DataPoint{
		point(t0, map[string]*float64{"A": fp(10)}),
		point(t0.Add(step), map[string]*float64{"A": fp(10)}),
		point(t0.Add(2*step), map[string]*float64{"A": fp(100)}),
		point(t0.Add(3*step), map[string]*float64{"A": fp(10)}),
		point(t0.Add(4*step), map[string]*float64{"A": fp(10)}),
	}

	out := Preprocess(points, Options{SmoothingPercent: 60})
	spike := out[2].Values["A"]
	if spike == nil || *spike >= 100 {
		t.Fatalf("spike not smoothed: %v", spike)
	}

	unsmoothed := Preprocess(points, Options{})
	if *unsmoothed[2].Values["A"] != 100 {
		t.Fatalf("smoothing applied without opt-in: %v", *unsmoothed[2].Values["A"])
	}
}
