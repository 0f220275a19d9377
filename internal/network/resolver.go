package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/siderolabs/go-retry/retry"

	"github.com/imamik/hstack/internal/metrics"
)

// ErrNetworkBackendDisabled is returned by operations that need the network
// backend when none is configured.
var ErrNetworkBackendDisabled = errors.New("network backend is not enabled")

// Option configures a Resolver.
type Option func(*Resolver)

// WithNetworkBackend enables the network-backend fallback.
func WithNetworkBackend(nb NetworkBackend) Option {
	return func(r *Resolver) {
		r.networks = nb
	}
}

// WithFloatingIPs sets whether management addresses come from floating
// addresses. Enabled by default.
func WithFloatingIPs(enabled bool) Option {
	return func(r *Resolver) {
		r.useFloatingIPs = enabled
	}
}

// WithMetrics records resolution outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// Resolver determines and persists instance addresses.
type Resolver struct {
	compute        ComputeBackend
	networks       NetworkBackend
	recorder       AddressRecorder
	useFloatingIPs bool
	metrics        *metrics.Metrics
}

// NewResolver creates a resolver.
func NewResolver(compute ComputeBackend, recorder AddressRecorder, opts ...Option) *Resolver {
	r := &Resolver{
		compute:        compute,
		recorder:       recorder,
		useFloatingIPs: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// InitInstanceIPs runs one resolution pass for an instance and persists the
// result. The boolean reports whether both addresses were found.
func (r *Resolver) InitInstanceIPs(ctx context.Context, instanceID string) (ResolvedAddress, bool, error) {
	info, err := r.compute.GetInstance(ctx, instanceID)
	if err != nil {
		return ResolvedAddress{}, false, fmt.Errorf("failed to get instance %s: %w", instanceID, err)
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("instance", info.Name)

	addr := fromInterfaces(info.Networks)
	if !r.useFloatingIPs {
		addr.ManagementIP = addr.InternalIP
	}

	if r.networks != nil && !addr.Resolved() {
		log.V(1).Info("addresses incomplete, asking the network backend",
			"internal", addr.InternalIP, "management", addr.ManagementIP)
		if err := r.fromNetworkBackend(ctx, info.ID, &addr); err != nil {
			return ResolvedAddress{}, false, err
		}
	}

	if err := r.recorder.UpdateInstanceAddresses(ctx, instanceID, addr.InternalIP, addr.ManagementIP); err != nil {
		return ResolvedAddress{}, false, fmt.Errorf("failed to persist addresses of %s: %w", instanceID, err)
	}

	resolved := addr.Resolved()
	r.metrics.RecordAddressResolution(resolved)
	return addr, resolved, nil
}

// fromInterfaces picks the first fixed address as internal and the first
// other address as management. Untyped addresses are candidates for both.
func fromInterfaces(networks []NetworkAddresses) ResolvedAddress {
	var addr ResolvedAddress
	for _, nw := range networks {
		for _, a := range nw.Addresses {
			switch {
			case a.Type == "":
				addr.InternalIP = firstNonEmpty(addr.InternalIP, a.Addr)
				addr.ManagementIP = firstNonEmpty(addr.ManagementIP, a.Addr)
			case a.Type == AddressTypeFixed:
				addr.InternalIP = firstNonEmpty(addr.InternalIP, a.Addr)
			default:
				addr.ManagementIP = firstNonEmpty(addr.ManagementIP, a.Addr)
			}
		}
	}
	return addr
}

func (r *Resolver) fromNetworkBackend(ctx context.Context, deviceID string, addr *ResolvedAddress) error {
	ports, err := r.networks.ListPortsByDevice(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("failed to list ports of %s: %w", deviceID, err)
	}
	if len(ports) == 0 {
		return nil
	}

	floating, err := r.networks.ListFloatingAddressesByPort(ctx, ports[0].ID)
	if err != nil {
		return fmt.Errorf("failed to list floating addresses of port %s: %w", ports[0].ID, err)
	}
	if len(floating) == 0 {
		return nil
	}

	fl := floating[0]
	addr.InternalIP = firstNonEmpty(addr.InternalIP, fl.FixedIP)
	if !r.useFloatingIPs {
		addr.ManagementIP = addr.InternalIP
	} else {
		addr.ManagementIP = firstNonEmpty(addr.ManagementIP, fl.FloatingIP)
	}
	return nil
}

func firstNonEmpty(current, candidate string) string {
	if current != "" {
		return current
	}
	return candidate
}

// AwaitAddresses repeats InitInstanceIPs every interval until both addresses
// are resolved or timeout expires.
func (r *Resolver) AwaitAddresses(ctx context.Context, instanceID string, timeout, interval time.Duration) (ResolvedAddress, error) {
	var addr ResolvedAddress

	err := retry.Constant(timeout, retry.WithUnits(interval)).RetryWithContext(ctx, func(ctx context.Context) error {
		var (
			resolved bool
			err      error
		)
		addr, resolved, err = r.InitInstanceIPs(ctx, instanceID)
		if err != nil {
			return err
		}
		if !resolved {
			return retry.ExpectedError(fmt.Errorf("addresses of %s not resolved yet", instanceID))
		}
		return nil
	})
	if err != nil {
		return addr, fmt.Errorf("failed to resolve addresses of %s: %w", instanceID, err)
	}
	return addr, nil
}

// AssignFloatingIP creates a floating address in pool and attaches it to the
// instance.
func (r *Resolver) AssignFloatingIP(ctx context.Context, instanceID, pool string) (*FloatingAddress, error) {
	fl, err := r.compute.CreateFloatingAddress(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to create floating address in pool %s: %w", pool, err)
	}
	if err := r.compute.AttachFloatingAddress(ctx, instanceID, fl.ID); err != nil {
		return nil, fmt.Errorf("failed to attach floating address %s to %s: %w", fl.FloatingIP, instanceID, err)
	}
	fl.InstanceID = instanceID
	return fl, nil
}

// DeleteFloatingIPs deletes every floating address owned by the instance.
func (r *Resolver) DeleteFloatingIPs(ctx context.Context, instanceID string) error {
	floating, err := r.compute.ListFloatingAddresses(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("failed to list floating addresses of %s: %w", instanceID, err)
	}
	for _, fl := range floating {
		if err := r.compute.DeleteFloatingAddress(ctx, fl.ID); err != nil {
			return fmt.Errorf("failed to delete floating address %s: %w", fl.FloatingIP, err)
		}
	}
	return nil
}

// ListNetworks lists the networks of the network backend.
func (r *Resolver) ListNetworks(ctx context.Context) ([]Network, error) {
	if r.networks == nil {
		return nil, ErrNetworkBackendDisabled
	}
	networks, err := r.networks.ListNetworks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}
	return networks, nil
}
