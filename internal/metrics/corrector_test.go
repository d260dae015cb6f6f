// internal/metrics/corrector_test.go
package metrics

import (
	"math"
	"strings"
	"testing"
	"time"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

// TestCorrectInvariants verifies that corrected metrics always satisfy the
// token-sum invariant with non-negative counts and a finite throughput.
func TestCorrectInvariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  RawStats
	}{
		{name: "empty raw"},
		{name: "only eval count", raw: RawStats{EvalCount: intPtr(8)}},
		{name: "inverted prompt count", raw: RawStats{PromptEvalCount: intPtr(5), EvalCount: intPtr(8)}},
		{name: "inclusive prompt count", raw: RawStats{PromptEvalCount: intPtr(20), EvalCount: intPtr(8)}},
		{name: "negative eval count", raw: RawStats{EvalCount: intPtr(-3), PromptEvalCount: intPtr(-7)}},
		{name: "zero durations", raw: RawStats{EvalCount: intPtr(8), EvalDuration: int64Ptr(0), PromptEvalDuration: int64Ptr(0)}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := Correct(tt.raw, 250*time.Millisecond, "prompt text", "generated text")
			if m.PromptTokens < 0 || m.CompletionTokens < 0 {
				t.Fatalf("negative token counts: %+v", m)
			}
			if m.TotalTokens != m.PromptTokens+m.CompletionTokens {
				t.Fatalf("sum invariant violated: %+v", m)
			}
			if math.IsNaN(m.TokensPerSecond) || math.IsInf(m.TokensPerSecond, 0) || m.TokensPerSecond < 0 {
				t.Fatalf("throughput not finite and non-negative: %v", m.TokensPerSecond)
			}
		})
	}
}

// TestCorrectPromptCountQuirk exercises both forms of the prompt-count field:
// the inverted case where it is smaller than the completion count, and the
// inclusive case where it already contains the generated tokens.
func TestCorrectPromptCountQuirk(t *testing.T) {
	t.Parallel()

	inverted := Correct(RawStats{PromptEvalCount: intPtr(5), EvalCount: intPtr(8)}, time.Second, "", "")
	if inverted.PromptTokens != 5 || inverted.CompletionTokens != 8 || inverted.TotalTokens != 13 {
		t.Fatalf("inverted case: got prompt=%d completion=%d total=%d",
			inverted.PromptTokens, inverted.CompletionTokens, inverted.TotalTokens)
	}

	inclusive := Correct(RawStats{PromptEvalCount: intPtr(20), EvalCount: intPtr(8)}, time.Second, "", "")
	if inclusive.PromptTokens != 12 || inclusive.TotalTokens != 20 {
		t.Fatalf("inclusive case: got prompt=%d total=%d", inclusive.PromptTokens, inclusive.TotalTokens)
	}
}

// TestCorrectIsPure verifies that correcting the same terminal stats twice
// yields identical metrics.
func TestCorrectIsPure(t *testing.T) {
	t.Parallel()

	raw := RawStats{
		EvalCount:          intPtr(42),
		EvalDuration:       int64Ptr(2_000_000_000),
		PromptEvalCount:    intPtr(100),
		PromptEvalDuration: int64Ptr(500_000_000),
		TotalDuration:      int64Ptr(3_000_000_000),
	}
	first := Correct(raw, 3*time.Second, "prompt", "generated")
	second := Correct(raw, 3*time.Second, "prompt", "generated")
	if first != second {
		t.Fatalf("corrector not deterministic:\nfirst  %+v\nsecond %+v", first, second)
	}
}

// TestCorrectEstimation verifies the characters/4 fallback kicks in when the
// provider reports no usage, and is flagged as estimated.
func TestCorrectEstimation(t *testing.T) {
	t.Parallel()

	prompt := strings.Repeat("p", 40)    // 10 estimated tokens
	generated := strings.Repeat("g", 17) // ceil(17/4) = 5 estimated tokens
	m := Correct(RawStats{}, 2*time.Second, prompt, generated)

	if !m.Estimated {
		t.Fatal("expected estimated flag")
	}
	if m.PromptTokens != 10 || m.CompletionTokens != 5 || m.TotalTokens != 15 {
		t.Fatalf("unexpected estimates: %+v", m)
	}
	if got, want := m.TokensPerSecond, 2.5; math.Abs(got-want) > 1e-9 {
		t.Fatalf("wall-clock throughput: got %v want %v", got, want)
	}
	if m.ProcessingTime != 2*time.Second {
		t.Fatalf("expected elapsed fallback for processing time, got %v", m.ProcessingTime)
	}
}

// TestCorrectPrefersEvalDuration verifies that provider-reported generation
// time is preferred over wall time as the throughput denominator.
func TestCorrectPrefersEvalDuration(t *testing.T) {
	t.Parallel()

	raw := RawStats{
		EvalCount:          intPtr(50),
		EvalDuration:       int64Ptr(2_000_000_000),
		PromptEvalCount:    intPtr(10),
		PromptEvalDuration: int64Ptr(1_000_000_000),
	}
	m := Correct(raw, 10*time.Second, "", "")
	if got, want := m.TokensPerSecond, 25.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("throughput: got %v want %v", got, want)
	}
	if m.ProcessingTime != 3*time.Second {
		t.Fatalf("processing time: got %v want 3s", m.ProcessingTime)
	}
	if m.Estimated {
		t.Fatal("measured counts flagged as estimated")
	}
}

// TestCorrectZeroElapsed verifies that a zero denominator degrades to zero
// throughput instead of infinity.
func TestCorrectZeroElapsed(t *testing.T) {
	t.Parallel()

	m := Correct(RawStats{EvalCount: intPtr(10)}, 0, "", "")
	if m.TokensPerSecond != 0 {
		t.Fatalf("expected clamped throughput, got %v", m.TokensPerSecond)
	}
}

// TestEstimateTokens verifies the rounding of the characters/4 heuristic.
func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.in); got != tt.want {
			t.Fatalf("EstimateTokens(%q)=%d want %d", tt.in, got, tt.want)
		}
	}
}
