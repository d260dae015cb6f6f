// internal/commands/compare.go
package gollamadash

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"github.com/mwiater/gollamadash/internal/comparison"
	"github.com/mwiater/gollamadash/internal/metrics"
	"github.com/mwiater/gollamadash/internal/tui"
	"github.com/mwiater/gollamadash/internal/util"
)

var (
	modelHeading = color.New(color.FgCyan, color.Bold).SprintFunc()
	successLine  = color.New(color.FgGreen).SprintFunc()
	failureLine  = color.New(color.FgRed).SprintFunc()
)

var compareTUI bool

// compareCmd fans a prompt out to every enabled model and prints the outcomes.
var compareCmd = &cobra.Command{
	Use:   "compare \"prompt\"",
	Short: "Send one prompt to every enabled model and compare the results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		configs := cfg.EnabledModels()
		if len(configs) == 0 {
			return fmt.Errorf("no enabled models in %s", cfg.ConfigPath)
		}

		stack := newPipeline(cfg)
		defer stack.Close()

		prompt := args[0]
		var result *comparison.Result
		var err error
		if compareTUI {
			result, err = tui.Run(context.Background(), stack.comparer, prompt, configs)
		} else {
			result, err = stack.comparer.CompareModels(context.Background(), prompt, configs, nil)
		}
		if err != nil {
			return err
		}

		printResult(cmd, result)
		summarizeStats(cmd, stack.stats.Snapshot())

		if cfg.Debug {
			pp.Println(result)
		}
		return nil
	},
}

// printResult writes one block per model, coloring success and failure.
func printResult(cmd *cobra.Command, result *comparison.Result) {
	out := cmd.OutOrStdout()
	for _, resp := range result.Responses {
		fmt.Fprintln(out, modelHeading(resp.Name))
		if resp.Error != "" {
			fmt.Fprintln(out, failureLine("  error: "+resp.Error))
			continue
		}
		m := resp.Metrics
		fmt.Fprintln(out, successLine(fmt.Sprintf("  %.1f tok/s  %d tokens (%d prompt / %d completion)  %.2fs",
			m.TokensPerSecond, m.TotalTokens, m.PromptTokens, m.CompletionTokens, m.ProcessingTime.Seconds())))
		if m.Estimated {
			fmt.Fprintln(out, "  (token counts estimated)")
		}
		fmt.Fprintln(out, util.WrapToWidth(resp.Text, 100))
		fmt.Fprintln(out)
	}
	if len(result.Errors) > 0 {
		fmt.Fprintln(out, failureLine(fmt.Sprintf("%d of %d models failed", len(result.Errors), len(result.Responses))))
	}
}

// summarizeStats prints the session summary for each model that has runs.
func summarizeStats(cmd *cobra.Command, stats []metrics.ModelStats) {
	out := cmd.OutOrStdout()
	for _, s := range stats {
		fmt.Fprintf(out, "%s: %d runs, %.1f tok/s mean (min %.1f / max %.1f)\n",
			s.ModelName, s.TotalRuns, s.TokensPerSec.Mean, s.TokensPerSec.Min, s.TokensPerSec.Max)
	}
}

func init() {
	compareCmd.Flags().BoolVar(&compareTUI, "tui", false, "render the comparison in a live terminal view")
	rootCmd.AddCommand(compareCmd)
}
