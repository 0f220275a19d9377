package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hstack/cmd/hstack/handlers"
)

// Apply returns the command that creates or updates a cluster stack.
//
// Environment variables:
//
//	HCLOUD_TOKEN: Hetzner Cloud API token (required)
func Apply() *cobra.Command {
	var opts handlers.ApplyOptions

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update the cluster stack",
		Long: `Create or update the stack of a cluster.

The topology is validated, synthesized into a stack template and submitted.
apply waits until the stack is active and every instance has an internal
and a management address. On a terminal progress is rendered as a live
view; --plain or a redirected stdout falls back to log lines.

Examples:
  # Create the stack
  hstack apply -t cluster.yaml

  # Converge an existing stack after changing the topology
  hstack apply -t cluster.yaml --update

  # Generate and upload the topology key pair
  hstack apply -t cluster.yaml --generate-key`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), opts)
		},
	}

	addTopologyFlags(cmd, &opts.TopologyPath, &opts.ConfigPath, &opts.UserData)
	cmd.Flags().BoolVar(&opts.Update, "update", false, "Update the existing stack instead of creating one")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip the update confirmation")
	cmd.Flags().StringVar(&opts.PublicKeyPath, "public-key", "", "Upload this public key as the topology key pair")
	cmd.Flags().BoolVar(&opts.GenerateKey, "generate-key", false, "Generate an RSA key pair and upload its public key")
	cmd.Flags().StringVar(&opts.KeyOutputDir, "key-dir", ".", "Directory the generated key pair is written to")
	cmd.Flags().StringVar(&opts.MetricsTextfile, "metrics-textfile", "", "Write metrics in Prometheus text format to this file")
	cmd.Flags().BoolVar(&opts.Plain, "plain", false, "Log progress instead of rendering the live view")
	cmd.MarkFlagsMutuallyExclusive("public-key", "generate-key")

	return cmd
}
