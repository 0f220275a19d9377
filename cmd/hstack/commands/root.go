// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers
// package.
package commands

import (
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/imamik/hstack/internal/logging"
)

// Root returns the root command for the hstack CLI.
//
// Its persistent flags configure the logger that every subcommand finds in
// its context.
func Root() *cobra.Command {
	var (
		verbose bool
		logJSON bool
		flush   = func() {}
	)

	cmd := &cobra.Command{
		Use:           "hstack",
		Short:         "Provision cluster stacks on Hetzner Cloud",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			var log logr.Logger
			log, flush = logging.New(logging.Options{
				Verbose: verbose,
				JSON:    logJSON,
				Output:  cmd.ErrOrStderr(),
			})
			cmd.SetContext(logr.NewContext(cmd.Context(), log))
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			flush()
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON even on a terminal")

	cmd.AddCommand(Render())
	cmd.AddCommand(Apply())
	cmd.AddCommand(Provision())
	cmd.AddCommand(Addresses())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

// addTopologyFlags binds the flags shared by commands that read a topology.
func addTopologyFlags(cmd *cobra.Command, topologyPath, configPath, userData *string) {
	cmd.Flags().StringVarP(topologyPath, "topology", "t", "", "Path to the topology YAML file")
	cmd.Flags().StringVarP(configPath, "config", "c", "", "Path to the hstack configuration file (default: built-in defaults)")
	cmd.Flags().StringVar(userData, "user-data", "cloud-config", "User data format: cloud-config or script")
	_ = cmd.MarkFlagRequired("topology")
}
