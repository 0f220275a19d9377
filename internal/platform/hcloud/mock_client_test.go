package hcloud

import (
	"context"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// MockClient is a mock implementation of InfrastructureManager. Unset
// functions succeed with minimal results.
type MockClient struct {
	// Server
	CreateServerFunc func(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error)
	GetServerFunc    func(ctx context.Context, idOrName string) (*hcloud.Server, error)
	ListServersFunc  func(ctx context.Context, labelSelector string) ([]*hcloud.Server, error)
	DeleteServerFunc func(ctx context.Context, idOrName string) error

	// FloatingIP
	CreateFloatingIPFunc func(ctx context.Context, name, homeLocation string, labels map[string]string) (*hcloud.FloatingIP, error)
	EnsureFloatingIPFunc func(ctx context.Context, name, homeLocation string, labels map[string]string) (*hcloud.FloatingIP, bool, error)
	AssignFloatingIPFunc func(ctx context.Context, fip *hcloud.FloatingIP, serverID int64) error
	GetFloatingIPFunc    func(ctx context.Context, idOrName string) (*hcloud.FloatingIP, error)
	DeleteFloatingIPFunc func(ctx context.Context, idOrName string) error

	// Volume
	EnsureVolumeFunc func(ctx context.Context, name string, sizeGB int, location string, labels map[string]string) (*hcloud.Volume, bool, error)
	AttachVolumeFunc func(ctx context.Context, volume *hcloud.Volume, serverID int64) error
	DeleteVolumeFunc func(ctx context.Context, idOrName string) error

	// PlacementGroup
	EnsurePlacementGroupFunc func(ctx context.Context, name string, labels map[string]string) (*hcloud.PlacementGroup, bool, error)
	DeletePlacementGroupFunc func(ctx context.Context, name string) error

	// Network
	EnsureNetworkFunc func(ctx context.Context, name, ipRange, zone string, labels map[string]string) (*hcloud.Network, error)
	GetNetworkFunc    func(ctx context.Context, idOrName string) (*hcloud.Network, error)
	ListNetworksFunc  func(ctx context.Context) ([]*hcloud.Network, error)

	// Firewall
	GetFirewallFunc func(ctx context.Context, idOrName string) (*hcloud.Firewall, error)

	// SSHKey
	EnsureSSHKeyFunc func(ctx context.Context, name, publicKey string, labels map[string]string) (*hcloud.SSHKey, error)
	DeleteSSHKeyFunc func(ctx context.Context, name string) error
}

// Ensure interface compliance
var _ InfrastructureManager = (*MockClient)(nil)

// CreateServer mocks server creation.
func (m *MockClient) CreateServer(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error) {
	if m.CreateServerFunc != nil {
		return m.CreateServerFunc(ctx, opts)
	}
	return &hcloud.Server{ID: 1, Name: opts.Name, Labels: opts.Labels}, nil
}

// GetServer mocks server lookup.
func (m *MockClient) GetServer(ctx context.Context, idOrName string) (*hcloud.Server, error) {
	if m.GetServerFunc != nil {
		return m.GetServerFunc(ctx, idOrName)
	}
	return nil, nil
}

// ListServers mocks server listing.
func (m *MockClient) ListServers(ctx context.Context, labelSelector string) ([]*hcloud.Server, error) {
	if m.ListServersFunc != nil {
		return m.ListServersFunc(ctx, labelSelector)
	}
	return nil, nil
}

// DeleteServer mocks server deletion.
func (m *MockClient) DeleteServer(ctx context.Context, idOrName string) error {
	if m.DeleteServerFunc != nil {
		return m.DeleteServerFunc(ctx, idOrName)
	}
	return nil
}

// CreateFloatingIP mocks floating IP creation.
func (m *MockClient) CreateFloatingIP(ctx context.Context, name, homeLocation string, labels map[string]string) (*hcloud.FloatingIP, error) {
	if m.CreateFloatingIPFunc != nil {
		return m.CreateFloatingIPFunc(ctx, name, homeLocation, labels)
	}
	return &hcloud.FloatingIP{ID: 1, Name: name, HomeLocation: &hcloud.Location{Name: homeLocation}, Labels: labels}, nil
}

// EnsureFloatingIP mocks floating IP get-or-create.
func (m *MockClient) EnsureFloatingIP(ctx context.Context, name, homeLocation string, labels map[string]string) (*hcloud.FloatingIP, bool, error) {
	if m.EnsureFloatingIPFunc != nil {
		return m.EnsureFloatingIPFunc(ctx, name, homeLocation, labels)
	}
	return &hcloud.FloatingIP{ID: 1, Name: name, HomeLocation: &hcloud.Location{Name: homeLocation}, Labels: labels}, true, nil
}

// AssignFloatingIP mocks floating IP assignment.
func (m *MockClient) AssignFloatingIP(ctx context.Context, fip *hcloud.FloatingIP, serverID int64) error {
	if m.AssignFloatingIPFunc != nil {
		return m.AssignFloatingIPFunc(ctx, fip, serverID)
	}
	return nil
}

// GetFloatingIP mocks floating IP lookup.
func (m *MockClient) GetFloatingIP(ctx context.Context, idOrName string) (*hcloud.FloatingIP, error) {
	if m.GetFloatingIPFunc != nil {
		return m.GetFloatingIPFunc(ctx, idOrName)
	}
	return nil, nil
}

// DeleteFloatingIP mocks floating IP deletion.
func (m *MockClient) DeleteFloatingIP(ctx context.Context, idOrName string) error {
	if m.DeleteFloatingIPFunc != nil {
		return m.DeleteFloatingIPFunc(ctx, idOrName)
	}
	return nil
}

// EnsureVolume mocks volume get-or-create.
func (m *MockClient) EnsureVolume(ctx context.Context, name string, sizeGB int, location string, labels map[string]string) (*hcloud.Volume, bool, error) {
	if m.EnsureVolumeFunc != nil {
		return m.EnsureVolumeFunc(ctx, name, sizeGB, location, labels)
	}
	return &hcloud.Volume{ID: 1, Name: name, Size: sizeGB, Labels: labels}, true, nil
}

// AttachVolume mocks volume attachment.
func (m *MockClient) AttachVolume(ctx context.Context, volume *hcloud.Volume, serverID int64) error {
	if m.AttachVolumeFunc != nil {
		return m.AttachVolumeFunc(ctx, volume, serverID)
	}
	return nil
}

// DeleteVolume mocks volume deletion.
func (m *MockClient) DeleteVolume(ctx context.Context, idOrName string) error {
	if m.DeleteVolumeFunc != nil {
		return m.DeleteVolumeFunc(ctx, idOrName)
	}
	return nil
}

// EnsurePlacementGroup mocks placement group get-or-create.
func (m *MockClient) EnsurePlacementGroup(ctx context.Context, name string, labels map[string]string) (*hcloud.PlacementGroup, bool, error) {
	if m.EnsurePlacementGroupFunc != nil {
		return m.EnsurePlacementGroupFunc(ctx, name, labels)
	}
	return &hcloud.PlacementGroup{ID: 1, Name: name, Type: hcloud.PlacementGroupTypeSpread, Labels: labels}, true, nil
}

// DeletePlacementGroup mocks placement group deletion.
func (m *MockClient) DeletePlacementGroup(ctx context.Context, name string) error {
	if m.DeletePlacementGroupFunc != nil {
		return m.DeletePlacementGroupFunc(ctx, name)
	}
	return nil
}

// EnsureNetwork mocks network get-or-create.
func (m *MockClient) EnsureNetwork(ctx context.Context, name, ipRange, zone string, labels map[string]string) (*hcloud.Network, error) {
	if m.EnsureNetworkFunc != nil {
		return m.EnsureNetworkFunc(ctx, name, ipRange, zone, labels)
	}
	return &hcloud.Network{ID: 1, Name: name, Labels: labels}, nil
}

// GetNetwork mocks network lookup.
func (m *MockClient) GetNetwork(ctx context.Context, idOrName string) (*hcloud.Network, error) {
	if m.GetNetworkFunc != nil {
		return m.GetNetworkFunc(ctx, idOrName)
	}
	return nil, nil
}

// ListNetworks mocks network listing.
func (m *MockClient) ListNetworks(ctx context.Context) ([]*hcloud.Network, error) {
	if m.ListNetworksFunc != nil {
		return m.ListNetworksFunc(ctx)
	}
	return nil, nil
}

// GetFirewall mocks firewall lookup.
func (m *MockClient) GetFirewall(ctx context.Context, idOrName string) (*hcloud.Firewall, error) {
	if m.GetFirewallFunc != nil {
		return m.GetFirewallFunc(ctx, idOrName)
	}
	return nil, nil
}

// EnsureSSHKey mocks SSH key get-or-create.
func (m *MockClient) EnsureSSHKey(ctx context.Context, name, publicKey string, labels map[string]string) (*hcloud.SSHKey, error) {
	if m.EnsureSSHKeyFunc != nil {
		return m.EnsureSSHKeyFunc(ctx, name, publicKey, labels)
	}
	return &hcloud.SSHKey{ID: 1, Name: name, PublicKey: publicKey, Labels: labels}, nil
}

// DeleteSSHKey mocks SSH key deletion.
func (m *MockClient) DeleteSSHKey(ctx context.Context, name string) error {
	if m.DeleteSSHKeyFunc != nil {
		return m.DeleteSSHKeyFunc(ctx, name)
	}
	return nil
}
