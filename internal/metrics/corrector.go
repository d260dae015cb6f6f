// internal/metrics/corrector.go
package metrics

import (
	"math"
	"time"
)

// Correct converts raw provider statistics into a canonical Metrics record.
//
// Some providers report the prompt token count inclusive of generated tokens,
// others report it standalone. When the reported prompt count is at least the
// completion count it is treated as the inclusive form and the completion
// tokens are subtracted back out; otherwise it is taken at face value. Missing
// counts fall back to the characters/4 estimate, and missing durations fall
// back to elapsed wall time. The result always satisfies
// TotalTokens == PromptTokens + CompletionTokens with every count >= 0 and a
// finite, non-negative throughput.
func Correct(raw RawStats, elapsed time.Duration, prompt, generated string) Metrics {
	estimated := false

	completionTokens := 0
	if raw.EvalCount != nil {
		completionTokens = *raw.EvalCount
	} else {
		completionTokens = EstimateTokens(generated)
		estimated = true
	}
	if completionTokens < 0 {
		completionTokens = 0
	}

	promptTokens := 0
	if raw.PromptEvalCount != nil {
		reported := *raw.PromptEvalCount
		if reported >= completionTokens {
			// Inclusive form: the prompt count already contains the generated tokens.
			promptTokens = reported - completionTokens
		} else {
			promptTokens = reported
		}
	} else {
		promptTokens = EstimateTokens(prompt)
		estimated = true
	}
	if promptTokens < 0 {
		promptTokens = 0
	}

	processing := elapsed
	if raw.EvalDuration != nil && raw.PromptEvalDuration != nil {
		processing = time.Duration(*raw.EvalDuration + *raw.PromptEvalDuration)
	}

	// Prefer pure generation time as the throughput denominator so load and
	// prompt evaluation do not dilute the rate.
	rateSeconds := elapsed.Seconds()
	if raw.EvalDuration != nil {
		rateSeconds = float64(*raw.EvalDuration) / 1e9
	}
	tokensPerSecond := float64(completionTokens) / rateSeconds
	if math.IsNaN(tokensPerSecond) || math.IsInf(tokensPerSecond, 0) || tokensPerSecond < 0 {
		tokensPerSecond = 0
	}

	return Metrics{
		ResponseTime:     elapsed,
		TokensPerSecond:  tokensPerSecond,
		TotalTokens:      promptTokens + completionTokens,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		ProcessingTime:   processing,
		Estimated:        estimated,
	}
}

// EstimateTokens approximates a token count for providers that report no usage,
// at the conventional four characters per token.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}
