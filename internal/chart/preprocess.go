// internal/chart/preprocess.go
// Package chart turns the raw aggregator buffer into a renderable, gap-free,
// optionally smoothed series.
package chart

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/mwiater/gollamadash/internal/timeseries"
)

const (
	// DefaultTimeStep is the nominal spacing between points; gaps wider than
	// twice this are filled with synthetic points.
	DefaultTimeStep = 50 * time.Millisecond
	// maxGapPoints caps how many synthetic points a single gap may produce.
	maxGapPoints = 20
	// singlePointOffset spaces the duplicate appended for a one-point buffer,
	// so a zero-length line still renders as a visible segment.
	singlePointOffset = 100 * time.Millisecond
)

// Options controls preprocessing.
type Options struct {
	// TimeStep overrides DefaultTimeStep when positive.
	TimeStep time.Duration
	// SmoothingPercent sizes the centered moving-average window as a percentage
	// of the point count; zero disables smoothing.
	SmoothingPercent int
}

func (o Options) timeStep() time.Duration {
	if o.TimeStep > 0 {
		return o.TimeStep
	}
	return DefaultTimeStep
}

// Preprocess re-sorts the buffer chronologically, normalizes every point to
// carry the union of model keys (nil as an explicit gap marker), interpolates
// across wide gaps with a monotonic cubic ease, and optionally smooths each
// model's series.
func Preprocess(points []timeseries.DataPoint, opts Options) []timeseries.DataPoint {
	if len(points) == 0 {
		return nil
	}

	sorted := make([]timeseries.DataPoint, len(points))
	for i, p := range points {
		sorted[i] = p.Clone()
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	keys := unionKeys(sorted)
	for _, p := range sorted {
		for _, key := range keys {
			if _, ok := p.Values[key]; !ok {
				p.Values[key] = nil
			}
		}
	}

	if len(sorted) == 1 {
		only := sorted[0]
		twin := only.Clone()
		twin.Timestamp = only.Timestamp.Add(singlePointOffset)
		return []timeseries.DataPoint{only, twin}
	}

	filled := interpolate(sorted, keys, opts.timeStep())

	if opts.SmoothingPercent > 0 {
		smooth(filled, keys, opts.SmoothingPercent)
	}

	return filled
}

// unionKeys collects every model key that appears anywhere in the buffer.
func unionKeys(points []timeseries.DataPoint) []string {
	keys := lo.Uniq(lo.FlatMap(points, func(p timeseries.DataPoint, _ int) []string {
		return lo.Keys(p.Values)
	}))
	sort.Strings(keys)
	return keys
}

// interpolate fills gaps wider than 2x the time step with synthetic points,
// easing values with t'=t²(3−2t). The ease is monotonic, so synthetic values
// never overshoot the [start,end] range.
func interpolate(points []timeseries.DataPoint, keys []string, step time.Duration) []timeseries.DataPoint {
	out := make([]timeseries.DataPoint, 0, len(points))
	for i := 0; i < len(points)-1; i++ {
		a, b := points[i], points[i+1]
		out = append(out, a)

		gap := b.Timestamp.Sub(a.Timestamp)
		if gap <= 2*step {
			continue
		}
		n := int(gap/step) - 1
		if n > maxGapPoints {
			n = maxGapPoints
		}
		for j := 1; j <= n; j++ {
			t := float64(j) / float64(n+1)
			eased := t * t * (3 - 2*t)
			values := make(map[string]*float64, len(keys))
			for _, key := range keys {
				va, vb := a.Values[key], b.Values[key]
				if va == nil || vb == nil {
					values[key] = nil
					continue
				}
				v := *va + (*vb-*va)*eased
				values[key] = &v
			}
			out = append(out, timeseries.DataPoint{
				Timestamp: a.Timestamp.Add(time.Duration(float64(gap) * t)),
				Values:    values,
			})
		}
	}
	return append(out, points[len(points)-1])
}

// smooth applies a centered moving average per model key in place, excluding
// nil values from each window's average.
func smooth(points []timeseries.DataPoint, keys []string, percent int) {
	window := len(points) * percent / 100
	if window < 2 {
		window = 2
	}
	half := window / 2

	for _, key := range keys {
		original := make([]*float64, len(points))
		for i, p := range points {
			original[i] = p.Values[key]
		}
		for i := range points {
			if original[i] == nil {
				continue
			}
			first := i - half
			if first < 0 {
				first = 0
			}
			last := i + half
			if last > len(points)-1 {
				last = len(points) - 1
			}
			var sum float64
			var count int
			for j := first; j <= last; j++ {
				if original[j] == nil {
					continue
				}
				sum += *original[j]
				count++
			}
			if count > 0 {
				avg := sum / float64(count)
				points[i].Values[key] = &avg
			}
		}
	}
}
