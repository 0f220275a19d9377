package hcloud

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/go-logr/logr"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/hstack/internal/util/retry"
)

// CreateResult wraps the result of a resource creation operation.
// It handles both single and multiple actions that may need to be awaited.
type CreateResult[T any] struct {
	Resource T
	Action   *hcloud.Action
	Actions  []*hcloud.Action
}

// DeleteOperation encapsulates deletion logic for any hcloud resource.
//
//	func (c *RealClient) DeleteVolume(ctx context.Context, idOrName string) error {
//	    return (&DeleteOperation[*hcloud.Volume]{
//	        Name:         idOrName,
//	        ResourceType: "volume",
//	        Get:          c.client.Volume.Get,
//	        Delete:       c.client.Volume.Delete,
//	    }).Execute(ctx, c)
//	}
type DeleteOperation[T any] struct {
	Name         string
	ResourceType string

	// Get retrieves the resource by id or name
	Get func(ctx context.Context, idOrName string) (T, *hcloud.Response, error)

	// Delete removes the resource
	Delete func(ctx context.Context, resource T) (*hcloud.Response, error)
}

// Execute performs the delete operation with retry logic and timeout handling.
// The operation is idempotent: it succeeds if the resource doesn't exist.
func (op *DeleteOperation[T]) Execute(ctx context.Context, client *RealClient) error {
	ctx, cancel := context.WithTimeout(ctx, client.timeouts.Delete)
	defer cancel()

	return retry.Do(ctx, func(ctx context.Context) error {
		resource, _, err := op.Get(ctx, op.Name)
		if err != nil {
			return retry.Fatal(fmt.Errorf("failed to get %s: %w", op.ResourceType, err))
		}
		if reflect.ValueOf(resource).IsNil() {
			return nil
		}

		if _, err := op.Delete(ctx, resource); err != nil {
			if IsNotFound(err) {
				return nil
			}
			return classify(fmt.Errorf("failed to delete %s %s: %w", op.ResourceType, op.Name, err))
		}
		return nil
	}, client.retryOptions(ctx, op.ResourceType)...)
}

// EnsureOperation encapsulates get-or-create logic for any hcloud resource.
// It supports optional update and validation logic for existing resources.
//
//	return (&EnsureOperation[*hcloud.PlacementGroup, hcloud.PlacementGroupCreateOpts, any]{
//	    Name:         name,
//	    ResourceType: "placement group",
//	    Get:          c.client.PlacementGroup.Get,
//	    Create:       c.createPlacementGroup,
//	    CreateOptsMapper: func() hcloud.PlacementGroupCreateOpts {
//	        return hcloud.PlacementGroupCreateOpts{Name: name, Type: hcloud.PlacementGroupTypeSpread}
//	    },
//	}).Execute(ctx, c)
type EnsureOperation[T any, CreateOpts any, UpdateOpts any] struct {
	Name         string
	ResourceType string

	// Get retrieves the resource by name
	Get func(ctx context.Context, name string) (T, *hcloud.Response, error)

	// Create creates the resource with the given options
	Create func(ctx context.Context, opts CreateOpts) (*CreateResult[T], *hcloud.Response, error)

	// Update updates the resource if it exists (optional)
	Update func(ctx context.Context, resource T, opts UpdateOpts) ([]*hcloud.Action, *hcloud.Response, error)

	// Validate checks if existing resource matches desired state (optional)
	Validate func(resource T) error

	// CreateOptsMapper maps input parameters to create options
	CreateOptsMapper func() CreateOpts

	// UpdateOptsMapper maps input parameters to update options (required if Update is provided)
	UpdateOptsMapper func(resource T) UpdateOpts
}

// Execute performs the ensure operation: get existing resource, update/validate if needed, or create new.
// Creation is retried on transient API errors.
func (op *EnsureOperation[T, CreateOpts, UpdateOpts]) Execute(ctx context.Context, client *RealClient) (T, error) {
	resource, _, err := op.ExecuteCreated(ctx, client)
	return resource, err
}

// ExecuteCreated is Execute that also reports whether the resource was
// created by this call.
func (op *EnsureOperation[T, CreateOpts, UpdateOpts]) ExecuteCreated(ctx context.Context, client *RealClient) (T, bool, error) {
	var zero T

	resource, _, err := op.Get(ctx, op.Name)
	if err != nil {
		return zero, false, fmt.Errorf("failed to get %s: %w", op.ResourceType, err)
	}

	if !reflect.ValueOf(resource).IsNil() {
		if op.Validate != nil {
			if err := op.Validate(resource); err != nil {
				return zero, false, err
			}
		}

		if op.Update != nil && op.UpdateOptsMapper != nil {
			actions, _, err := op.Update(ctx, resource, op.UpdateOptsMapper(resource))
			if err != nil {
				return zero, false, fmt.Errorf("failed to update %s: %w", op.ResourceType, err)
			}
			if err := waitForActions(ctx, client.client, actions...); err != nil {
				return zero, false, fmt.Errorf("failed to wait for %s update: %w", op.ResourceType, err)
			}
		}

		return resource, false, nil
	}

	var result *CreateResult[T]
	err = retry.Do(ctx, func(ctx context.Context) error {
		res, _, err := op.Create(ctx, op.CreateOptsMapper())
		if err != nil {
			return classify(err)
		}
		result = res
		return nil
	}, client.retryOptions(ctx, op.ResourceType)...)
	if err != nil {
		return zero, false, fmt.Errorf("failed to create %s: %w", op.ResourceType, err)
	}

	if err := waitForActionResult(ctx, client.client, result); err != nil {
		return zero, false, fmt.Errorf("failed to wait for %s creation: %w", op.ResourceType, err)
	}

	return result.Resource, true, nil
}

// retryOptions returns the client's retry settings, logging each retry at V(1).
func (c *RealClient) retryOptions(ctx context.Context, resourceType string) []retry.Option {
	log := logr.FromContextOrDiscard(ctx)
	return []retry.Option{
		retry.WithMaxRetries(c.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(c.timeouts.RetryInitialDelay),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			log.V(1).Info("retrying hcloud call", "resource", resourceType, "attempt", attempt, "delay", delay, "error", err.Error())
		}),
	}
}

// waitForActions waits for one or more actions to complete.
func waitForActions(ctx context.Context, client *hcloud.Client, actions ...*hcloud.Action) error {
	var pending []*hcloud.Action
	for _, a := range actions {
		if a != nil {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return client.Action.WaitFor(ctx, pending...)
}

// waitForActionResult waits for actions from a CreateResult.
func waitForActionResult[T any](ctx context.Context, client *hcloud.Client, result *CreateResult[T]) error {
	return waitForActions(ctx, client, append([]*hcloud.Action{result.Action}, result.Actions...)...)
}
