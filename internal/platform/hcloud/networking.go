package hcloud

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/imamik/hstack/internal/network"
)

// Networking is the network backend over Hetzner private networks. A
// server's attachment to a private network is exposed as a port whose id is
// "<server id>-<network id>".
type Networking struct {
	client  InfrastructureManager
	compute *Compute
}

var _ network.NetworkBackend = (*Networking)(nil)

// NewNetworking creates a network backend.
func NewNetworking(client InfrastructureManager) *Networking {
	return &Networking{client: client, compute: NewCompute(client)}
}

// ListNetworks lists the project's private networks.
func (n *Networking) ListNetworks(ctx context.Context) ([]network.Network, error) {
	networks, err := n.client.ListNetworks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]network.Network, 0, len(networks))
	for _, nw := range networks {
		entry := network.Network{ID: strconv.FormatInt(nw.ID, 10), Name: nw.Name}
		if nw.IPRange != nil {
			entry.IPRange = nw.IPRange.String()
		}
		out = append(out, entry)
	}
	return out, nil
}

// ListPortsByDevice lists the private network attachments of a server.
func (n *Networking) ListPortsByDevice(ctx context.Context, deviceID string) ([]network.Port, error) {
	server, err := n.client.GetServer(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, deviceID)
	}

	var ports []network.Port
	for _, pn := range server.PrivateNet {
		if pn.Network == nil {
			continue
		}
		port := network.Port{
			ID:        portID(server.ID, pn.Network.ID),
			DeviceID:  strconv.FormatInt(server.ID, 10),
			NetworkID: strconv.FormatInt(pn.Network.ID, 10),
		}
		if pn.IP != nil {
			port.FixedIPs = append(port.FixedIPs, pn.IP.String())
		}
		for _, alias := range pn.Aliases {
			port.FixedIPs = append(port.FixedIPs, alias.String())
		}
		ports = append(ports, port)
	}
	return ports, nil
}

// ListFloatingAddressesByPort lists the floating IPs of the port's server.
// FixedIP carries the port's private address.
func (n *Networking) ListFloatingAddressesByPort(ctx context.Context, id string) ([]network.FloatingAddress, error) {
	serverID, networkID, err := parsePortID(id)
	if err != nil {
		return nil, err
	}
	ports, err := n.ListPortsByDevice(ctx, serverID)
	if err != nil {
		return nil, err
	}

	var fixedIP string
	found := false
	for _, p := range ports {
		if p.NetworkID == networkID {
			found = true
			if len(p.FixedIPs) > 0 {
				fixedIP = p.FixedIPs[0]
			}
			break
		}
	}
	if !found {
		return nil, nil
	}

	floating, err := n.compute.ListFloatingAddresses(ctx, serverID)
	if err != nil {
		return nil, err
	}
	for i := range floating {
		floating[i].FixedIP = fixedIP
		floating[i].PortID = id
	}
	return floating, nil
}

func portID(serverID, networkID int64) string {
	return fmt.Sprintf("%d-%d", serverID, networkID)
}

func parsePortID(id string) (serverID, networkID string, err error) {
	serverID, networkID, ok := strings.Cut(id, "-")
	if !ok {
		return "", "", fmt.Errorf("%w: port %q", ErrInvalidID, id)
	}
	if _, err := parseID(serverID); err != nil {
		return "", "", err
	}
	if _, err := parseID(networkID); err != nil {
		return "", "", err
	}
	return serverID, networkID, nil
}
