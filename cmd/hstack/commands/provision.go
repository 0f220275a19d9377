package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hstack/cmd/hstack/handlers"
)

// Provision returns the command that creates instances through the bounded
// provisioning pool.
func Provision() *cobra.Command {
	var opts handlers.ProvisionOptions

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the instances of a topology through the provisioning pool",
		Long: `Create every instance of a topology directly, without a stack.

Node groups are stored as node templates and instances are created with at
most pool_size creations in flight. Node records are persisted only when
every creation succeeded.

Examples:
  # Dry run with simulated instances
  hstack provision -t cluster.yaml --simulate

  # Create real servers
  hstack provision -t cluster.yaml -c hstack.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Provision(cmd.Context(), opts)
		},
	}

	addTopologyFlags(cmd, &opts.TopologyPath, &opts.ConfigPath, &opts.UserData)
	cmd.Flags().BoolVar(&opts.Simulate, "simulate", false, "Simulate instance creation")
	cmd.Flags().StringVar(&opts.MetricsTextfile, "metrics-textfile", "", "Write metrics in Prometheus text format to this file")

	return cmd
}
