package hcloud

import (
	"context"
	"errors"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/hstack/internal/config"
)

// testClientMinimal creates a RealClient with test timeouts and no hcloud.Client.
// Use it where no action is awaited.
func testClientMinimal() *RealClient {
	return &RealClient{
		timeouts: config.TestTimeouts(),
	}
}

func TestDeleteOperation_ResourceExists(t *testing.T) {
	t.Parallel()

	vol := &hcloud.Volume{ID: 1, Name: "c-ng-001-volume-0"}
	deleteCalled := false

	op := &DeleteOperation[*hcloud.Volume]{
		Name:         "c-ng-001-volume-0",
		ResourceType: "volume",
		Get: func(_ context.Context, name string) (*hcloud.Volume, *hcloud.Response, error) {
			assert.Equal(t, "c-ng-001-volume-0", name)
			return vol, nil, nil
		},
		Delete: func(_ context.Context, resource *hcloud.Volume) (*hcloud.Response, error) {
			deleteCalled = true
			assert.Equal(t, vol, resource)
			return nil, nil
		},
	}

	require.NoError(t, op.Execute(context.Background(), testClientMinimal()))
	assert.True(t, deleteCalled)
}

func TestDeleteOperation_ResourceMissing(t *testing.T) {
	t.Parallel()

	op := &DeleteOperation[*hcloud.Volume]{
		Name:         "gone",
		ResourceType: "volume",
		Get: func(context.Context, string) (*hcloud.Volume, *hcloud.Response, error) {
			return nil, nil, nil
		},
		Delete: func(context.Context, *hcloud.Volume) (*hcloud.Response, error) {
			t.Fatal("Delete should not be called for a missing resource")
			return nil, nil
		},
	}

	require.NoError(t, op.Execute(context.Background(), testClientMinimal()))
}

func TestDeleteOperation_LockedIsRetried(t *testing.T) {
	t.Parallel()

	attempts := 0
	op := &DeleteOperation[*hcloud.Volume]{
		Name:         "busy",
		ResourceType: "volume",
		Get: func(context.Context, string) (*hcloud.Volume, *hcloud.Response, error) {
			return &hcloud.Volume{ID: 1}, nil, nil
		},
		Delete: func(context.Context, *hcloud.Volume) (*hcloud.Response, error) {
			attempts++
			if attempts == 1 {
				return nil, hcloud.Error{Code: hcloud.ErrorCodeLocked}
			}
			return nil, nil
		},
	}

	require.NoError(t, op.Execute(context.Background(), testClientMinimal()))
	assert.Equal(t, 2, attempts)
}

func TestDeleteOperation_InvalidIsFatal(t *testing.T) {
	t.Parallel()

	attempts := 0
	op := &DeleteOperation[*hcloud.Volume]{
		Name:         "bad",
		ResourceType: "volume",
		Get: func(context.Context, string) (*hcloud.Volume, *hcloud.Response, error) {
			return &hcloud.Volume{ID: 1}, nil, nil
		},
		Delete: func(context.Context, *hcloud.Volume) (*hcloud.Response, error) {
			attempts++
			return nil, hcloud.Error{Code: hcloud.ErrorCodeInvalidInput}
		},
	}

	err := op.Execute(context.Background(), testClientMinimal())
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Contains(t, err.Error(), "failed to delete volume bad")
}

func TestDeleteOperation_NotFoundOnDelete(t *testing.T) {
	t.Parallel()

	op := &DeleteOperation[*hcloud.Volume]{
		Name:         "racy",
		ResourceType: "volume",
		Get: func(context.Context, string) (*hcloud.Volume, *hcloud.Response, error) {
			return &hcloud.Volume{ID: 1}, nil, nil
		},
		Delete: func(context.Context, *hcloud.Volume) (*hcloud.Response, error) {
			return nil, hcloud.Error{Code: hcloud.ErrorCodeNotFound}
		},
	}

	require.NoError(t, op.Execute(context.Background(), testClientMinimal()))
}

func TestEnsureOperation_Existing(t *testing.T) {
	t.Parallel()

	pg := &hcloud.PlacementGroup{ID: 7, Name: "c-aa-c-ng-001"}
	op := &EnsureOperation[*hcloud.PlacementGroup, hcloud.PlacementGroupCreateOpts, any]{
		Name:         pg.Name,
		ResourceType: "placement group",
		Get: func(context.Context, string) (*hcloud.PlacementGroup, *hcloud.Response, error) {
			return pg, nil, nil
		},
		Create: func(context.Context, hcloud.PlacementGroupCreateOpts) (*CreateResult[*hcloud.PlacementGroup], *hcloud.Response, error) {
			t.Fatal("Create should not be called for an existing resource")
			return nil, nil, nil
		},
		CreateOptsMapper: func() hcloud.PlacementGroupCreateOpts { return hcloud.PlacementGroupCreateOpts{} },
	}

	got, err := op.Execute(context.Background(), testClientMinimal())
	require.NoError(t, err)
	assert.Same(t, pg, got)
}

func TestEnsureOperation_ValidationFails(t *testing.T) {
	t.Parallel()

	op := &EnsureOperation[*hcloud.Volume, hcloud.VolumeCreateOpts, any]{
		Name:         "v",
		ResourceType: "volume",
		Get: func(context.Context, string) (*hcloud.Volume, *hcloud.Response, error) {
			return &hcloud.Volume{ID: 1, Size: 10}, nil, nil
		},
		Validate: func(v *hcloud.Volume) error {
			return errors.New("too small")
		},
		CreateOptsMapper: func() hcloud.VolumeCreateOpts { return hcloud.VolumeCreateOpts{} },
	}

	_, err := op.Execute(context.Background(), testClientMinimal())
	require.EqualError(t, err, "too small")
}

func TestEnsureOperation_CreateRetriesTransientErrors(t *testing.T) {
	t.Parallel()

	attempts := 0
	op := &EnsureOperation[*hcloud.PlacementGroup, hcloud.PlacementGroupCreateOpts, any]{
		Name:         "pg",
		ResourceType: "placement group",
		Get: func(context.Context, string) (*hcloud.PlacementGroup, *hcloud.Response, error) {
			return nil, nil, nil
		},
		Create: func(_ context.Context, opts hcloud.PlacementGroupCreateOpts) (*CreateResult[*hcloud.PlacementGroup], *hcloud.Response, error) {
			attempts++
			if attempts == 1 {
				return nil, nil, hcloud.Error{Code: hcloud.ErrorCodeConflict}
			}
			return &CreateResult[*hcloud.PlacementGroup]{Resource: &hcloud.PlacementGroup{ID: 3, Name: opts.Name}}, nil, nil
		},
		CreateOptsMapper: func() hcloud.PlacementGroupCreateOpts {
			return hcloud.PlacementGroupCreateOpts{Name: "pg", Type: hcloud.PlacementGroupTypeSpread}
		},
	}

	got, err := op.Execute(context.Background(), testClientMinimal())
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, 2, attempts)
}

func TestEnsureOperation_GetError(t *testing.T) {
	t.Parallel()

	op := &EnsureOperation[*hcloud.PlacementGroup, hcloud.PlacementGroupCreateOpts, any]{
		Name:         "pg",
		ResourceType: "placement group",
		Get: func(context.Context, string) (*hcloud.PlacementGroup, *hcloud.Response, error) {
			return nil, nil, errors.New("API error")
		},
	}

	_, err := op.Execute(context.Background(), testClientMinimal())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get placement group")
}
