package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the goquartzd root command with every subcommand
// registered.
func NewRootCmd(version string) *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:   "goquartzd",
		Short: "goquartzd - an in-process Quartz-style job scheduler",
		Long: `goquartzd is an operator CLI over an embedded job scheduler.

Examples:
  goquartzd list
  goquartzd load bundle.yaml
  goquartzd job create
  goquartzd trigger-now myjob
  goquartzd shell`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config.yaml")

	rootCmd.AddCommand(
		newListCmd(&cfgPath),
		newPauseCmd(&cfgPath),
		newResumeCmd(&cfgPath),
		newTriggerNowCmd(&cfgPath),
		newLoadCmd(&cfgPath),
		newJobCmd(&cfgPath),
		newShellCmd(&cfgPath),
	)

	return rootCmd
}
