package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hstack/cmd/hstack/handlers"
)

// Addresses returns the command that resolves the addresses of an instance.
func Addresses() *cobra.Command {
	var opts handlers.AddressesOptions

	cmd := &cobra.Command{
		Use:   "addresses <instance-id>",
		Short: "Resolve and record the addresses of an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.InstanceID = args[0]
			return handlers.Addresses(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to the hstack configuration file")
	cmd.Flags().BoolVarP(&opts.Wait, "wait", "w", false, "Poll until both addresses are known")

	return cmd
}
