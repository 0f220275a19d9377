package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// EnsureVolume ensures that a volume with the given name exists. Existing
// volumes must not be smaller than requested. The boolean reports whether
// the volume was created.
func (c *RealClient) EnsureVolume(ctx context.Context, name string, sizeGB int, location string, labels map[string]string) (*hcloud.Volume, bool, error) {
	return (&EnsureOperation[*hcloud.Volume, hcloud.VolumeCreateOpts, any]{
		Name:         name,
		ResourceType: "volume",
		Get:          c.client.Volume.Get,
		Create:       c.createVolume,
		Validate: func(v *hcloud.Volume) error {
			if v.Size < sizeGB {
				return fmt.Errorf("volume %s exists with size %d GB (expected %d GB)", name, v.Size, sizeGB)
			}
			return nil
		},
		CreateOptsMapper: func() hcloud.VolumeCreateOpts {
			opts := hcloud.VolumeCreateOpts{
				Name:   name,
				Size:   sizeGB,
				Labels: labels,
			}
			if location != "" {
				opts.Location = &hcloud.Location{Name: location}
			}
			return opts
		},
	}).ExecuteCreated(ctx, c)
}

func (c *RealClient) createVolume(ctx context.Context, opts hcloud.VolumeCreateOpts) (*CreateResult[*hcloud.Volume], *hcloud.Response, error) {
	res, resp, err := c.client.Volume.Create(ctx, opts)
	if err != nil {
		return nil, resp, err
	}
	return &CreateResult[*hcloud.Volume]{
		Resource: res.Volume,
		Action:   res.Action,
		Actions:  res.NextActions,
	}, resp, nil
}

// AttachVolume attaches the volume to a server. Volumes attached elsewhere
// are detached first.
func (c *RealClient) AttachVolume(ctx context.Context, volume *hcloud.Volume, serverID int64) error {
	if volume.Server != nil {
		if volume.Server.ID == serverID {
			return nil
		}
		action, _, err := c.client.Volume.Detach(ctx, volume)
		if err != nil {
			return fmt.Errorf("failed to detach volume %s: %w", volume.Name, err)
		}
		if err := waitForActions(ctx, c.client, action); err != nil {
			return fmt.Errorf("failed to wait for volume detach: %w", err)
		}
	}

	action, _, err := c.client.Volume.Attach(ctx, volume, &hcloud.Server{ID: serverID})
	if err != nil {
		return fmt.Errorf("failed to attach volume %s: %w", volume.Name, err)
	}
	if err := waitForActions(ctx, c.client, action); err != nil {
		return fmt.Errorf("failed to wait for volume attach: %w", err)
	}
	volume.Server = &hcloud.Server{ID: serverID}
	return nil
}

// DeleteVolume detaches and deletes the volume with the given id or name.
func (c *RealClient) DeleteVolume(ctx context.Context, idOrName string) error {
	return (&DeleteOperation[*hcloud.Volume]{
		Name:         idOrName,
		ResourceType: "volume",
		Get:          c.client.Volume.Get,
		Delete: func(ctx context.Context, v *hcloud.Volume) (*hcloud.Response, error) {
			if v.Server != nil {
				action, resp, err := c.client.Volume.Detach(ctx, v)
				if err != nil {
					return resp, err
				}
				if err := waitForActions(ctx, c.client, action); err != nil {
					return resp, err
				}
			}
			return c.client.Volume.Delete(ctx, v)
		},
	}).Execute(ctx, c)
}
