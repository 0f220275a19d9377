package hcloud

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/hstack/internal/util/retry"
)

// CreateServer creates a server and waits until it is running.
func (c *RealClient) CreateServer(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.ServerCreate)
	defer cancel()

	createOpts, err := c.buildServerCreateOpts(ctx, opts)
	if err != nil {
		return nil, err
	}

	var result hcloud.ServerCreateResult
	err = retry.Do(ctx, func(ctx context.Context) error {
		res, _, err := c.client.Server.Create(ctx, createOpts)
		if err != nil {
			if isInvalidParameter(err) {
				return retry.Fatal(err)
			}
			return err
		}
		result = res
		return nil
	}, c.retryOptions(ctx, "server")...)
	if err != nil {
		return nil, fmt.Errorf("failed to create server %s: %w", opts.Name, err)
	}

	actions := append([]*hcloud.Action{result.Action}, result.NextActions...)
	if err := waitForActions(ctx, c.client, actions...); err != nil {
		return nil, fmt.Errorf("failed to wait for server %s creation: %w", opts.Name, err)
	}

	// Refresh so the result carries its network attachments and addresses.
	server, _, err := c.client.Server.GetByID(ctx, result.Server.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh server %s: %w", opts.Name, err)
	}
	if server == nil {
		return result.Server, nil
	}
	return server, nil
}

// buildServerCreateOpts resolves all dependencies and builds server creation options.
func (c *RealClient) buildServerCreateOpts(ctx context.Context, opts ServerCreateOpts) (hcloud.ServerCreateOpts, error) {
	serverType, _, err := c.client.ServerType.Get(ctx, opts.ServerType)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get server type: %w", err)
	}
	if serverType == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("server type not found: %s", opts.ServerType)
	}

	image, err := c.resolveImage(ctx, opts.Image, serverType)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	sshKeys, err := c.resolveSSHKeys(ctx, opts.SSHKeys)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	location, err := c.resolveLocation(ctx, opts.Location)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	firewalls, err := c.resolveFirewalls(ctx, opts.Firewalls)
	if err != nil {
		return hcloud.ServerCreateOpts{}, err
	}

	createOpts := hcloud.ServerCreateOpts{
		Name:       opts.Name,
		ServerType: serverType,
		Image:      image,
		SSHKeys:    sshKeys,
		Location:   location,
		UserData:   opts.UserData,
		Labels:     opts.Labels,
		Firewalls:  firewalls,
	}
	if opts.PlacementGroupID != nil {
		createOpts.PlacementGroup = &hcloud.PlacementGroup{ID: *opts.PlacementGroupID}
	}
	if opts.NetworkID != 0 {
		createOpts.Networks = []*hcloud.Network{{ID: opts.NetworkID}}
	}
	return createOpts, nil
}

// resolveImage resolves an image by name for the server type's architecture
// and waits for it to become available.
func (c *RealClient) resolveImage(ctx context.Context, name string, serverType *hcloud.ServerType) (*hcloud.Image, error) {
	image, _, err := c.client.Image.GetForArchitecture(ctx, name, serverType.Architecture)
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	if image == nil {
		return nil, fmt.Errorf("image not found: %s", name)
	}

	if image.Status != "" && image.Status != hcloud.ImageStatusAvailable {
		if err := c.waitForImageAvailability(ctx, image); err != nil {
			return nil, err
		}
	}
	return image, nil
}

// waitForImageAvailability waits for an image to become available.
func (c *RealClient) waitForImageAvailability(ctx context.Context, image *hcloud.Image) error {
	log := logr.FromContextOrDiscard(ctx)
	log.Info("waiting for image to become available", "image", image.Name, "id", image.ID, "status", image.Status)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	timeout := time.After(c.timeouts.ImageWait)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("timeout waiting for image %d to become available", image.ID)
		case <-ticker.C:
			img, _, err := c.client.Image.GetByID(ctx, image.ID)
			if err != nil {
				return fmt.Errorf("failed to get image status: %w", err)
			}
			if img.Status == hcloud.ImageStatusAvailable {
				return nil
			}
			log.V(1).Info("still waiting for image", "id", image.ID, "status", img.Status)
		}
	}
}

// resolveSSHKeys resolves SSH key names/IDs to SSH key objects.
func (c *RealClient) resolveSSHKeys(ctx context.Context, names []string) ([]*hcloud.SSHKey, error) {
	var keys []*hcloud.SSHKey
	for _, name := range names {
		key, _, err := c.client.SSHKey.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to get ssh key %s: %w", name, err)
		}
		if key == nil {
			return nil, fmt.Errorf("ssh key not found: %s", name)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// resolveLocation resolves a location name to a location object.
func (c *RealClient) resolveLocation(ctx context.Context, location string) (*hcloud.Location, error) {
	if location == "" {
		return nil, nil
	}

	loc, _, err := c.client.Location.Get(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to get location %s: %w", location, err)
	}
	if loc == nil {
		return nil, fmt.Errorf("location not found: %s", location)
	}
	return loc, nil
}

// resolveFirewalls resolves firewall names to server create firewall references.
func (c *RealClient) resolveFirewalls(ctx context.Context, names []string) ([]*hcloud.ServerCreateFirewall, error) {
	var firewalls []*hcloud.ServerCreateFirewall
	for _, name := range names {
		fw, err := c.GetFirewall(ctx, name)
		if err != nil {
			return nil, err
		}
		if fw == nil {
			return nil, fmt.Errorf("firewall not found: %s", name)
		}
		firewalls = append(firewalls, &hcloud.ServerCreateFirewall{Firewall: hcloud.Firewall{ID: fw.ID}})
	}
	return firewalls, nil
}

// GetServer returns the server with the given id or name, or nil if not found.
func (c *RealClient) GetServer(ctx context.Context, idOrName string) (*hcloud.Server, error) {
	server, _, err := c.client.Server.Get(ctx, idOrName)
	if err != nil {
		return nil, fmt.Errorf("failed to get server %s: %w", idOrName, err)
	}
	return server, nil
}

// ListServers returns all servers matching the label selector.
func (c *RealClient) ListServers(ctx context.Context, labelSelector string) ([]*hcloud.Server, error) {
	servers, err := c.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: labelSelector},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	return servers, nil
}

// DeleteServer deletes the server with the given id or name.
func (c *RealClient) DeleteServer(ctx context.Context, idOrName string) error {
	return (&DeleteOperation[*hcloud.Server]{
		Name:         idOrName,
		ResourceType: "server",
		Get:          c.client.Server.Get,
		Delete: func(ctx context.Context, server *hcloud.Server) (*hcloud.Response, error) {
			res, resp, err := c.client.Server.DeleteWithResult(ctx, server)
			if err != nil {
				return resp, err
			}
			return resp, c.client.Action.WaitFor(ctx, res.Action)
		},
	}).Execute(ctx, c)
}

// ServerIPv4 extracts the public IPv4 address from a server, or empty string if not set.
func ServerIPv4(s *hcloud.Server) string {
	if s != nil && s.PublicNet.IPv4.IP != nil && !s.PublicNet.IPv4.IP.IsUnspecified() {
		return s.PublicNet.IPv4.IP.String()
	}
	return ""
}
