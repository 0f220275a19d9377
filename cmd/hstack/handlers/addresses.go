package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/hstack/internal/network"
	"github.com/imamik/hstack/internal/platform/hcloud"
)

// AddressesOptions holds the inputs of the addresses command.
type AddressesOptions struct {
	ConfigPath string
	InstanceID string
	// Wait polls until both addresses are known or the configured address
	// timeout expires.
	Wait bool
}

// Addresses resolves the internal and management addresses of one instance
// and persists them.
func Addresses(ctx context.Context, opts AddressesOptions) error {
	cfg, err := loadConfigFile(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := requireToken(cfg); err != nil {
		return err
	}

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	client := newInfraClient(cfg.HCloudToken)
	resolverOpts := []network.Option{network.WithFloatingIPs(cfg.UseFloatingIPs)}
	if cfg.UseNetworkBackend {
		resolverOpts = append(resolverOpts, network.WithNetworkBackend(hcloud.NewNetworking(client)))
	}
	resolver := network.NewResolver(hcloud.NewCompute(client), st, resolverOpts...)

	var (
		addr     network.ResolvedAddress
		resolved bool
	)
	if opts.Wait {
		addr, err = resolver.AwaitAddresses(ctx, opts.InstanceID, cfg.Addresses.Timeout, cfg.Addresses.Interval)
		resolved = err == nil
	} else {
		addr, resolved, err = resolver.InitInstanceIPs(ctx, opts.InstanceID)
	}
	if err != nil {
		return err
	}

	fmt.Fprint(stdout, renderTable("Addresses", []string{"INSTANCE", "INTERNAL", "MANAGEMENT", "RESOLVED"}, [][]string{
		{opts.InstanceID, orMissing(addr.InternalIP), orMissing(addr.ManagementIP), resolvedMark(resolved)},
	}))
	return nil
}
