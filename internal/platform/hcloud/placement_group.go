package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// MaxSpreadGroupSize is the number of servers Hetzner admits to one spread
// placement group.
const MaxSpreadGroupSize = 10

// EnsurePlacementGroup returns the spread placement group backing an
// anti-affinity set, creating it when missing. A group of the same name but
// another type is an error. The boolean reports whether the group was created.
func (c *RealClient) EnsurePlacementGroup(ctx context.Context, name string, labels map[string]string) (*hcloud.PlacementGroup, bool, error) {
	return (&EnsureOperation[*hcloud.PlacementGroup, hcloud.PlacementGroupCreateOpts, any]{
		Name:         name,
		ResourceType: "placement group",
		Get:          c.client.PlacementGroup.Get,
		Create: func(ctx context.Context, opts hcloud.PlacementGroupCreateOpts) (*CreateResult[*hcloud.PlacementGroup], *hcloud.Response, error) {
			res, resp, err := c.client.PlacementGroup.Create(ctx, opts)
			if err != nil {
				return nil, resp, err
			}
			return &CreateResult[*hcloud.PlacementGroup]{Resource: res.PlacementGroup, Action: res.Action}, resp, nil
		},
		Validate: func(pg *hcloud.PlacementGroup) error {
			if pg.Type != hcloud.PlacementGroupTypeSpread {
				return fmt.Errorf("placement group %s has type %s, want %s", name, pg.Type, hcloud.PlacementGroupTypeSpread)
			}
			return nil
		},
		CreateOptsMapper: func() hcloud.PlacementGroupCreateOpts {
			return hcloud.PlacementGroupCreateOpts{Name: name, Type: hcloud.PlacementGroupTypeSpread, Labels: labels}
		},
	}).ExecuteCreated(ctx, c)
}

// DeletePlacementGroup deletes a placement group by id or name. The stack
// engine deletes it after the member servers, since Hetzner refuses to
// delete a group that still has servers.
func (c *RealClient) DeletePlacementGroup(ctx context.Context, idOrName string) error {
	return (&DeleteOperation[*hcloud.PlacementGroup]{
		Name:         idOrName,
		ResourceType: "placement group",
		Get:          c.client.PlacementGroup.Get,
		Delete:       c.client.PlacementGroup.Delete,
	}).Execute(ctx, c)
}
