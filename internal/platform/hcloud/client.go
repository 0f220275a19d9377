package hcloud

import (
	"context"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// ServerCreateOpts holds all parameters for creating an HCloud server.
type ServerCreateOpts struct {
	Name             string
	Image            string
	ServerType       string
	Location         string
	SSHKeys          []string
	Firewalls        []string
	Labels           map[string]string
	UserData         string
	PlacementGroupID *int64
	NetworkID        int64
}

// ServerProvisioner manages servers.
type ServerProvisioner interface {
	CreateServer(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error)
	// GetServer returns the server with the given id or name, or nil if it does not exist.
	GetServer(ctx context.Context, idOrName string) (*hcloud.Server, error)
	ListServers(ctx context.Context, labelSelector string) ([]*hcloud.Server, error)
	DeleteServer(ctx context.Context, idOrName string) error
}

// FloatingIPManager manages floating IPs.
type FloatingIPManager interface {
	CreateFloatingIP(ctx context.Context, name, homeLocation string, labels map[string]string) (*hcloud.FloatingIP, error)
	EnsureFloatingIP(ctx context.Context, name, homeLocation string, labels map[string]string) (*hcloud.FloatingIP, bool, error)
	AssignFloatingIP(ctx context.Context, fip *hcloud.FloatingIP, serverID int64) error
	GetFloatingIP(ctx context.Context, idOrName string) (*hcloud.FloatingIP, error)
	DeleteFloatingIP(ctx context.Context, idOrName string) error
}

// VolumeManager manages volumes.
type VolumeManager interface {
	EnsureVolume(ctx context.Context, name string, sizeGB int, location string, labels map[string]string) (*hcloud.Volume, bool, error)
	AttachVolume(ctx context.Context, volume *hcloud.Volume, serverID int64) error
	DeleteVolume(ctx context.Context, idOrName string) error
}

// PlacementGroupManager manages spread placement groups.
type PlacementGroupManager interface {
	EnsurePlacementGroup(ctx context.Context, name string, labels map[string]string) (*hcloud.PlacementGroup, bool, error)
	DeletePlacementGroup(ctx context.Context, name string) error
}

// NetworkManager manages private networks.
type NetworkManager interface {
	EnsureNetwork(ctx context.Context, name, ipRange, zone string, labels map[string]string) (*hcloud.Network, error)
	GetNetwork(ctx context.Context, idOrName string) (*hcloud.Network, error)
	ListNetworks(ctx context.Context) ([]*hcloud.Network, error)
}

// FirewallManager resolves firewalls, which back security groups.
type FirewallManager interface {
	GetFirewall(ctx context.Context, idOrName string) (*hcloud.Firewall, error)
}

// SSHKeyManager manages SSH keys.
type SSHKeyManager interface {
	EnsureSSHKey(ctx context.Context, name, publicKey string, labels map[string]string) (*hcloud.SSHKey, error)
	DeleteSSHKey(ctx context.Context, name string) error
}

// InfrastructureManager combines all infrastructure interfaces.
type InfrastructureManager interface {
	ServerProvisioner
	FloatingIPManager
	VolumeManager
	PlacementGroupManager
	NetworkManager
	FirewallManager
	SSHKeyManager
}
