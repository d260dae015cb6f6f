// internal/commands/serve.go
package gollamadash

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mwiater/gollamadash/internal/dashboard"
	"github.com/mwiater/gollamadash/internal/logging"
	"github.com/mwiater/gollamadash/internal/providers/ollama"
)

// serveCmd runs the dashboard HTTP API until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the comparison dashboard API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		stack := newPipeline(cfg)
		defer stack.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Surface unreachable endpoints at startup rather than on the first comparison.
		preflight := ollama.New(cfg)
		for _, m := range cfg.EnabledModels() {
			if !strings.EqualFold(strings.TrimSpace(m.Type), "ollama") && m.Type != "" {
				continue
			}
			if err := preflight.EnsureReachable(ctx, m); err != nil {
				logging.LogWarning("%s is not reachable: %v", m.DisplayName(), err)
			}
		}

		server := dashboard.NewServer(cfg, stack.comparer, stack.aggregator, stack.stats)
		return server.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
