package provisioning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/hstack/internal/cluster"
	"github.com/imamik/hstack/internal/config"
)

func validTopology() *cluster.Topology {
	return &cluster.Topology{
		Name:              "c",
		Image:             "ubuntu-24.04",
		KeyPair:           "ops",
		ManagementNetwork: "mgmt",
		NodeGroups: []cluster.NodeGroup{
			{Name: "master", Flavor: "cx32", Count: 1, FloatingIPPool: "nbg1"},
			{Name: "worker", Flavor: "cx22", Count: 2, FloatingIPPool: "nbg1", VolumesPerNode: 1, VolumeSize: 20},
		},
	}
}

func validationContext(cfg *config.Config, topo *cluster.Topology) (*Context, *MockObserver) {
	ctx, observer := testContext(context.Background())
	ctx.Config = cfg
	ctx.Topology = topo
	return ctx, observer
}

func fields(errs []ValidationError, severity string) []string {
	var out []string
	for _, e := range errs {
		if e.Severity == severity {
			out = append(out, e.Field)
		}
	}
	return out
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*config.Config, *cluster.Topology)
		errors   []string
		warnings []string
	}{
		{
			name:   "valid",
			mutate: func(*config.Config, *cluster.Topology) {},
		},
		{
			name:   "invalid cidr",
			mutate: func(c *config.Config, _ *cluster.Topology) { c.Network.IPv4CIDR = "not-a-cidr" },
			errors: []string{"network.ipv4_cidr"},
		},
		{
			name:   "ipv6 cidr",
			mutate: func(c *config.Config, _ *cluster.Topology) { c.Network.IPv4CIDR = "fd00::/8" },
			errors: []string{"network.ipv4_cidr"},
		},
		{
			name:     "small cidr",
			mutate:   func(c *config.Config, _ *cluster.Topology) { c.Network.IPv4CIDR = "10.0.0.0/24" },
			warnings: []string{"network.ipv4_cidr"},
		},
		{
			name: "cidr ignored without network backend",
			mutate: func(c *config.Config, topo *cluster.Topology) {
				c.UseNetworkBackend = false
				c.Network.IPv4CIDR = "bad"
				for i := range topo.NodeGroups {
					topo.NodeGroups[i].FloatingIPPool = ""
				}
			},
		},
		{
			name:   "floating pool without network backend",
			mutate: func(c *config.Config, _ *cluster.Topology) { c.UseNetworkBackend = false },
			errors: []string{"node_groups[0].floating_ip_pool", "node_groups[1].floating_ip_pool"},
		},
		{
			name:   "missing management network",
			mutate: func(_ *config.Config, topo *cluster.Topology) { topo.ManagementNetwork = "" },
			errors: []string{"management_network"},
		},
		{
			name:     "no floating pool",
			mutate:   func(_ *config.Config, topo *cluster.Topology) { topo.NodeGroups[0].FloatingIPPool = "" },
			warnings: []string{"node_groups[0].floating_ip_pool"},
		},
		{
			name:   "tiny volume",
			mutate: func(_ *config.Config, topo *cluster.Topology) { topo.NodeGroups[1].VolumeSize = 5 },
			errors: []string{"node_groups[1].volume_size"},
		},
		{
			name:     "no key pair",
			mutate:   func(_ *config.Config, topo *cluster.Topology) { topo.KeyPair = "" },
			warnings: []string{"key_pair"},
		},
		{
			name:   "invalid topology",
			mutate: func(_ *config.Config, topo *cluster.Topology) { topo.Name = "Not_Valid" },
			errors: []string{"topology"},
		},
		{
			name:   "invalid config",
			mutate: func(c *config.Config, _ *cluster.Topology) { c.PoolSize = 0 },
			errors: []string{"config"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			topo := validTopology()
			tt.mutate(cfg, topo)
			ctx, _ := validationContext(cfg, topo)

			errs := validate(ctx)
			assert.Equal(t, tt.errors, fields(errs, SeverityError))
			assert.Equal(t, tt.warnings, fields(errs, SeverityWarning))
		})
	}
}

func TestValidate_MissingInputs(t *testing.T) {
	t.Parallel()

	ctx, _ := validationContext(nil, validTopology())
	assert.Equal(t, []string{"config"}, fields(validate(ctx), SeverityError))

	ctx, _ = validationContext(config.Default(), nil)
	assert.Equal(t, []string{"topology"}, fields(validate(ctx), SeverityError))
}

func TestValidationPhase_Provision(t *testing.T) {
	t.Parallel()

	topo := validTopology()
	topo.KeyPair = ""
	ctx, observer := validationContext(config.Default(), topo)
	require.NoError(t, NewValidationPhase().Provision(ctx))

	warnings := observer.eventsOf(EventValidationWarning)
	require.Len(t, warnings, 1)
	assert.Equal(t, "key_pair", warnings[0].Fields["field"])

	topo.ManagementNetwork = ""
	err := NewValidationPhase().Provision(ctx)
	require.ErrorContains(t, err, "configuration validation failed")
	assert.ErrorContains(t, err, "[error] management_network")
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	ve := ValidationError{Field: "key_pair", Message: "missing", Severity: SeverityWarning}
	assert.Equal(t, "[warning] key_pair: missing", ve.Error())
	assert.False(t, ve.IsError())
}
