package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// GetFirewall returns the firewall with the given id or name, or nil.
// Security groups of a template refer to firewalls by name.
func (c *RealClient) GetFirewall(ctx context.Context, idOrName string) (*hcloud.Firewall, error) {
	fw, _, err := c.client.Firewall.Get(ctx, idOrName)
	if err != nil {
		return nil, fmt.Errorf("failed to get firewall %s: %w", idOrName, err)
	}
	return fw, nil
}
