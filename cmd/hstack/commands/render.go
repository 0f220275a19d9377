package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hstack/cmd/hstack/handlers"
)

// Render returns the command that prints the synthesized stack template.
func Render() *cobra.Command {
	var opts handlers.RenderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the stack template of a topology",
		Long: `Synthesize the stack template of a topology and print it.

Nothing is created. Use it to review what apply would submit.

Examples:
  # Print the JSON template
  hstack render -t cluster.yaml

  # Print YAML with script user data
  hstack render -t cluster.yaml -o yaml --user-data script`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Render(cmd.Context(), opts)
		},
	}

	addTopologyFlags(cmd, &opts.TopologyPath, &opts.ConfigPath, &opts.UserData)
	cmd.Flags().StringVarP(&opts.Format, "output", "o", handlers.FormatJSON, "Output format: json or yaml")

	return cmd
}
