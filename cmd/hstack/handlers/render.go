package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/hstack/internal/template"
)

// Output formats of the render command.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// RenderOptions holds the inputs of the render command.
type RenderOptions struct {
	TopologyPath string
	ConfigPath   string
	UserData     string
	Format       string
}

// Render synthesizes the stack template of a topology and prints it
// without touching the cloud.
func Render(ctx context.Context, opts RenderOptions) error {
	cfg, topo, err := loadInputs(opts.ConfigPath, opts.TopologyPath)
	if err != nil {
		return err
	}
	userData, err := userDataProvider(opts.UserData, topo, nil)
	if err != nil {
		return err
	}

	synth := template.NewSynthesizer(topo, template.WithNetworkBackend(cfg.UseNetworkBackend))
	synth.AddNodeGroups(userData)
	tmpl, err := synth.Synthesize(ctx)
	if err != nil {
		return err
	}

	var doc []byte
	switch opts.Format {
	case "", FormatJSON:
		doc, err = template.Render(tmpl)
	case FormatYAML:
		doc, err = template.RenderYAML(tmpl)
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", opts.Format, FormatJSON, FormatYAML)
	}
	if err != nil {
		return err
	}

	if _, err := stdout.Write(doc); err != nil {
		return err
	}
	if len(doc) > 0 && doc[len(doc)-1] != '\n' {
		_, err = fmt.Fprintln(stdout)
	}
	return err
}
