package hcloud

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/hstack/internal/network"
	"github.com/imamik/hstack/internal/provisioning/pool"
	"github.com/imamik/hstack/internal/util/labels"
)

// PublicNetworkLabel labels the public addresses of a server.
const PublicNetworkLabel = "public"

// Compute is the compute backend over Hetzner servers and floating IPs.
// It serves the address resolver and the provisioning pool.
type Compute struct {
	client   InfrastructureManager
	location string
	sshKeys  []string
}

var (
	_ network.ComputeBackend = (*Compute)(nil)
	_ pool.InstanceCreator   = (*Compute)(nil)
)

// ComputeOption configures a Compute backend.
type ComputeOption func(*Compute)

// WithDefaultLocation sets the location used when a template has none.
func WithDefaultLocation(location string) ComputeOption {
	return func(c *Compute) {
		c.location = location
	}
}

// WithSSHKeys sets the SSH keys injected into created servers.
func WithSSHKeys(keys ...string) ComputeOption {
	return func(c *Compute) {
		c.sshKeys = keys
	}
}

// NewCompute creates a compute backend.
func NewCompute(client InfrastructureManager, opts ...ComputeOption) *Compute {
	c := &Compute{client: client}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetInstance returns a server's addresses. Private networks come first with
// fixed addresses, followed by the public label holding floating IPs and the
// primary IPv4. The primary IPv4 is untyped when the server has no private
// network, so it serves as both internal and management address.
func (c *Compute) GetInstance(ctx context.Context, instanceID string) (*network.InstanceInfo, error) {
	server, err := c.client.GetServer(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, instanceID)
	}

	info := &network.InstanceInfo{
		ID:   strconv.FormatInt(server.ID, 10),
		Name: server.Name,
	}
	for _, pn := range server.PrivateNet {
		if pn.IP == nil {
			continue
		}
		info.Networks = append(info.Networks, network.NetworkAddresses{
			Label:     privateNetworkLabel(pn),
			Addresses: []network.Address{{Addr: pn.IP.String(), Type: network.AddressTypeFixed}},
		})
	}

	floating, err := c.serverFloatingIPs(ctx, server)
	if err != nil {
		return nil, err
	}
	public := network.NetworkAddresses{Label: PublicNetworkLabel}
	for _, fip := range floating {
		public.Addresses = append(public.Addresses, network.Address{Addr: fip.IP.String(), Type: network.AddressTypeFloating})
	}
	if ip := ServerIPv4(server); ip != "" {
		addrType := network.AddressTypeFloating
		if len(server.PrivateNet) == 0 {
			addrType = ""
		}
		public.Addresses = append(public.Addresses, network.Address{Addr: ip, Type: addrType})
	}
	if len(public.Addresses) > 0 {
		info.Networks = append(info.Networks, public)
	}
	return info, nil
}

func privateNetworkLabel(pn hcloud.ServerPrivateNet) string {
	if pn.Network == nil {
		return "private"
	}
	if pn.Network.Name != "" {
		return pn.Network.Name
	}
	return strconv.FormatInt(pn.Network.ID, 10)
}

// serverFloatingIPs loads the floating IPs assigned to a server. The server
// object only carries their ids.
func (c *Compute) serverFloatingIPs(ctx context.Context, server *hcloud.Server) ([]*hcloud.FloatingIP, error) {
	var out []*hcloud.FloatingIP
	for _, ref := range server.PublicNet.FloatingIPs {
		if ref == nil {
			continue
		}
		fip := ref
		if fip.IP == nil {
			loaded, err := c.client.GetFloatingIP(ctx, strconv.FormatInt(ref.ID, 10))
			if err != nil {
				return nil, err
			}
			if loaded == nil {
				continue
			}
			fip = loaded
		}
		out = append(out, fip)
	}
	return out, nil
}

// CreateFloatingAddress creates a floating IP whose home location is pool.
func (c *Compute) CreateFloatingAddress(ctx context.Context, pool string) (*network.FloatingAddress, error) {
	if pool == "" {
		pool = c.location
	}
	fip, err := c.client.CreateFloatingIP(ctx, "", pool, map[string]string{
		labels.KeyManagedBy: labels.ManagedByPool,
	})
	if err != nil {
		return nil, err
	}
	return toFloatingAddress(fip), nil
}

// AttachFloatingAddress assigns a floating IP to a server.
func (c *Compute) AttachFloatingAddress(ctx context.Context, instanceID, floatingID string) error {
	serverID, err := parseID(instanceID)
	if err != nil {
		return err
	}
	fip, err := c.client.GetFloatingIP(ctx, floatingID)
	if err != nil {
		return err
	}
	if fip == nil {
		return fmt.Errorf("floating IP %s not found", floatingID)
	}
	return c.client.AssignFloatingIP(ctx, fip, serverID)
}

// ListFloatingAddresses lists the floating IPs assigned to a server.
func (c *Compute) ListFloatingAddresses(ctx context.Context, instanceID string) ([]network.FloatingAddress, error) {
	server, err := c.client.GetServer(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, instanceID)
	}
	floating, err := c.serverFloatingIPs(ctx, server)
	if err != nil {
		return nil, err
	}

	out := make([]network.FloatingAddress, 0, len(floating))
	for _, fip := range floating {
		fa := toFloatingAddress(fip)
		fa.InstanceID = strconv.FormatInt(server.ID, 10)
		if len(server.PrivateNet) > 0 && server.PrivateNet[0].IP != nil {
			fa.FixedIP = server.PrivateNet[0].IP.String()
		}
		out = append(out, *fa)
	}
	return out, nil
}

// DeleteFloatingAddress deletes a floating IP.
func (c *Compute) DeleteFloatingAddress(ctx context.Context, floatingID string) error {
	return c.client.DeleteFloatingIP(ctx, floatingID)
}

// CreateInstance creates a server from a node template for the direct
// provisioning path.
func (c *Compute) CreateInstance(ctx context.Context, req pool.CreateRequest) (*pool.CreatedInstance, error) {
	location := req.Template.Location
	if location == "" {
		location = c.location
	}

	server, err := c.client.CreateServer(ctx, ServerCreateOpts{
		Name:       req.Name,
		Image:      req.Template.Image,
		ServerType: req.Template.Flavor,
		Location:   location,
		SSHKeys:    c.sshKeys,
		UserData:   req.Template.UserData,
		Labels: labels.NewLabelBuilder(req.ClusterID).
			WithManagedBy(labels.ManagedByPool).
			WithNodeGroup(req.Template.Name).
			Build(),
	})
	if err != nil {
		return nil, err
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("created server", "name", server.Name, "id", server.ID)

	return &pool.CreatedInstance{
		ID:      strconv.FormatInt(server.ID, 10),
		Address: ServerIPv4(server),
	}, nil
}

func toFloatingAddress(fip *hcloud.FloatingIP) *network.FloatingAddress {
	fa := &network.FloatingAddress{ID: strconv.FormatInt(fip.ID, 10)}
	if fip.IP != nil {
		fa.FloatingIP = fip.IP.String()
	}
	if fip.HomeLocation != nil {
		fa.Pool = fip.HomeLocation.Name
	}
	if fip.Server != nil {
		fa.InstanceID = strconv.FormatInt(fip.Server.ID, 10)
	}
	return fa
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return n, nil
}
