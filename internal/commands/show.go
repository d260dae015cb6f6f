// internal/commands/show.go
package gollamadash

import (
	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// showCmd groups the informational subcommands.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show application state",
}

// showConfigCmd displays the effective configuration after flag overrides.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the JSON config is loaded properly and overridden by flags accordingly.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("config file: %s\n", viper.ConfigFileUsed())
		pp.Println(GetConfig())
	},
}

func init() {
	showCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(showCmd)
}
