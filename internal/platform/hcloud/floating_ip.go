package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// floatingIPCreateParams holds parameters for creating a floating IP.
type floatingIPCreateParams struct {
	name         string
	homeLocation string
	labels       map[string]string
}

// CreateFloatingIP creates an IPv4 floating IP in the home location. An empty
// name lets the API pick one.
func (c *RealClient) CreateFloatingIP(ctx context.Context, name, homeLocation string, labels map[string]string) (*hcloud.FloatingIP, error) {
	res, _, err := c.createFloatingIPWithDeps(ctx, floatingIPCreateParams{
		name:         name,
		homeLocation: homeLocation,
		labels:       labels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create floating IP: %w", err)
	}
	if err := waitForActionResult(ctx, c.client, res); err != nil {
		return nil, fmt.Errorf("failed to wait for floating IP creation: %w", err)
	}
	return res.Resource, nil
}

// EnsureFloatingIP ensures that a floating IP with the given name exists and
// reports whether it was created.
func (c *RealClient) EnsureFloatingIP(ctx context.Context, name, homeLocation string, labels map[string]string) (*hcloud.FloatingIP, bool, error) {
	params := floatingIPCreateParams{
		name:         name,
		homeLocation: homeLocation,
		labels:       labels,
	}

	return (&EnsureOperation[*hcloud.FloatingIP, floatingIPCreateParams, any]{
		Name:         name,
		ResourceType: "floating IP",
		Get:          c.client.FloatingIP.Get,
		Create:       c.createFloatingIPWithDeps,
		CreateOptsMapper: func() floatingIPCreateParams {
			return params
		},
	}).ExecuteCreated(ctx, c)
}

// createFloatingIPWithDeps resolves the home location and creates a floating IP.
func (c *RealClient) createFloatingIPWithDeps(ctx context.Context, params floatingIPCreateParams) (*CreateResult[*hcloud.FloatingIP], *hcloud.Response, error) {
	loc, err := c.resolveLocation(ctx, params.homeLocation)
	if err != nil {
		return nil, nil, err
	}

	opts := hcloud.FloatingIPCreateOpts{
		Type:         hcloud.FloatingIPTypeIPv4,
		HomeLocation: loc,
		Labels:       params.labels,
	}
	if params.name != "" {
		opts.Name = hcloud.Ptr(params.name)
	}

	res, resp, err := c.client.FloatingIP.Create(ctx, opts)
	if err != nil {
		return nil, resp, err
	}
	return &CreateResult[*hcloud.FloatingIP]{Resource: res.FloatingIP, Action: res.Action}, resp, nil
}

// AssignFloatingIP assigns the floating IP to a server unless it already is.
func (c *RealClient) AssignFloatingIP(ctx context.Context, fip *hcloud.FloatingIP, serverID int64) error {
	if fip.Server != nil && fip.Server.ID == serverID {
		return nil
	}
	action, _, err := c.client.FloatingIP.Assign(ctx, fip, &hcloud.Server{ID: serverID})
	if err != nil {
		return fmt.Errorf("failed to assign floating IP %s: %w", fip.Name, err)
	}
	if err := waitForActions(ctx, c.client, action); err != nil {
		return fmt.Errorf("failed to wait for floating IP assignment: %w", err)
	}
	fip.Server = &hcloud.Server{ID: serverID}
	return nil
}

// GetFloatingIP returns the floating IP with the given id or name, or nil.
func (c *RealClient) GetFloatingIP(ctx context.Context, idOrName string) (*hcloud.FloatingIP, error) {
	fip, _, err := c.client.FloatingIP.Get(ctx, idOrName)
	if err != nil {
		return nil, fmt.Errorf("failed to get floating IP %s: %w", idOrName, err)
	}
	return fip, nil
}

// DeleteFloatingIP deletes the floating IP with the given id or name.
func (c *RealClient) DeleteFloatingIP(ctx context.Context, idOrName string) error {
	return (&DeleteOperation[*hcloud.FloatingIP]{
		Name:         idOrName,
		ResourceType: "floating IP",
		Get:          c.client.FloatingIP.Get,
		Delete:       c.client.FloatingIP.Delete,
	}).Execute(ctx, c)
}
