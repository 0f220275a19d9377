package hcloud

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/hstack/internal/network"
	"github.com/imamik/hstack/internal/provisioning/pool"
	"github.com/imamik/hstack/internal/util/labels"
)

func serverWithNetworks(private bool, floatingIDs ...int64) *hcloud.Server {
	s := &hcloud.Server{
		ID:   7,
		Name: "c-worker-001",
		PublicNet: hcloud.ServerPublicNet{
			IPv4: hcloud.ServerPublicNetIPv4{IP: net.ParseIP("203.0.113.7")},
		},
	}
	if private {
		s.PrivateNet = []hcloud.ServerPrivateNet{{
			Network: &hcloud.Network{ID: 3, Name: "mgmt"},
			IP:      net.ParseIP("10.0.0.7"),
			Aliases: []net.IP{net.ParseIP("10.0.0.70")},
		}}
	}
	for _, id := range floatingIDs {
		s.PublicNet.FloatingIPs = append(s.PublicNet.FloatingIPs, &hcloud.FloatingIP{ID: id})
	}
	return s
}

func floatingByID(ips map[string]string) func(context.Context, string) (*hcloud.FloatingIP, error) {
	return func(_ context.Context, id string) (*hcloud.FloatingIP, error) {
		ip, ok := ips[id]
		if !ok {
			return nil, nil
		}
		n, err := parseID(id)
		if err != nil {
			return nil, err
		}
		return &hcloud.FloatingIP{ID: n, IP: net.ParseIP(ip), HomeLocation: &hcloud.Location{Name: "nbg1"}}, nil
	}
}

func TestCompute_GetInstance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		server   *hcloud.Server
		expected []network.NetworkAddresses
	}{
		{
			name:   "private network and floating IP",
			server: serverWithNetworks(true, 11),
			expected: []network.NetworkAddresses{
				{Label: "mgmt", Addresses: []network.Address{{Addr: "10.0.0.7", Type: network.AddressTypeFixed}}},
				{Label: PublicNetworkLabel, Addresses: []network.Address{
					{Addr: "198.51.100.11", Type: network.AddressTypeFloating},
					{Addr: "203.0.113.7", Type: network.AddressTypeFloating},
				}},
			},
		},
		{
			name:   "public only",
			server: serverWithNetworks(false),
			expected: []network.NetworkAddresses{
				{Label: PublicNetworkLabel, Addresses: []network.Address{{Addr: "203.0.113.7"}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := &MockClient{
				GetServerFunc: func(context.Context, string) (*hcloud.Server, error) {
					return tt.server, nil
				},
				GetFloatingIPFunc: floatingByID(map[string]string{"11": "198.51.100.11"}),
			}

			info, err := NewCompute(client).GetInstance(context.Background(), "7")
			require.NoError(t, err)
			assert.Equal(t, "7", info.ID)
			assert.Equal(t, "c-worker-001", info.Name)
			assert.Equal(t, tt.expected, info.Networks)
		})
	}
}

func TestCompute_GetInstance_ResolvesWithResolver(t *testing.T) {
	t.Parallel()

	client := &MockClient{
		GetServerFunc: func(context.Context, string) (*hcloud.Server, error) {
			return serverWithNetworks(true, 11), nil
		},
		GetFloatingIPFunc: floatingByID(map[string]string{"11": "198.51.100.11"}),
	}
	rec := &recorder{}
	r := network.NewResolver(NewCompute(client), rec)

	addr, resolved, err := r.InitInstanceIPs(context.Background(), "7")
	require.NoError(t, err)
	assert.True(t, resolved)
	assert.Equal(t, "10.0.0.7", addr.InternalIP)
	assert.Equal(t, "198.51.100.11", addr.ManagementIP)
	assert.Equal(t, []string{"7", "10.0.0.7", "198.51.100.11"}, rec.calls)
}

type recorder struct {
	calls []string
}

func (r *recorder) UpdateInstanceAddresses(_ context.Context, id, internalIP, managementIP string) error {
	r.calls = append(r.calls, id, internalIP, managementIP)
	return nil
}

func TestCompute_GetInstance_Missing(t *testing.T) {
	t.Parallel()

	_, err := NewCompute(&MockClient{}).GetInstance(context.Background(), "7")
	require.ErrorIs(t, err, ErrServerNotFound)
}

func TestCompute_FloatingAddresses(t *testing.T) {
	t.Parallel()

	var (
		createdHome   string
		createdLabels map[string]string
		assigned      int64
		deleted       string
	)
	client := &MockClient{
		CreateFloatingIPFunc: func(_ context.Context, _, home string, lbls map[string]string) (*hcloud.FloatingIP, error) {
			createdHome = home
			createdLabels = lbls
			return &hcloud.FloatingIP{ID: 11, IP: net.ParseIP("198.51.100.11"), HomeLocation: &hcloud.Location{Name: home}}, nil
		},
		GetFloatingIPFunc: floatingByID(map[string]string{"11": "198.51.100.11"}),
		AssignFloatingIPFunc: func(_ context.Context, _ *hcloud.FloatingIP, serverID int64) error {
			assigned = serverID
			return nil
		},
		GetServerFunc: func(context.Context, string) (*hcloud.Server, error) {
			return serverWithNetworks(true, 11), nil
		},
		DeleteFloatingIPFunc: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	compute := NewCompute(client, WithDefaultLocation("fsn1"))
	r := network.NewResolver(compute, &recorder{})
	ctx := context.Background()

	fl, err := r.AssignFloatingIP(ctx, "7", "")
	require.NoError(t, err)
	assert.Equal(t, "fsn1", createdHome)
	assert.Equal(t, labels.ManagedByPool, createdLabels[labels.KeyManagedBy])
	assert.Equal(t, int64(7), assigned)
	assert.Equal(t, &network.FloatingAddress{ID: "11", FloatingIP: "198.51.100.11", Pool: "fsn1", InstanceID: "7"}, fl)

	list, err := compute.ListFloatingAddresses(ctx, "7")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "10.0.0.7", list[0].FixedIP)
	assert.Equal(t, "7", list[0].InstanceID)

	require.NoError(t, r.DeleteFloatingIPs(ctx, "7"))
	assert.Equal(t, "11", deleted)
}

func TestCompute_AttachFloatingAddress_Errors(t *testing.T) {
	t.Parallel()

	compute := NewCompute(&MockClient{
		GetFloatingIPFunc: func(context.Context, string) (*hcloud.FloatingIP, error) { return nil, nil },
	})

	err := compute.AttachFloatingAddress(context.Background(), "abc", "11")
	require.ErrorIs(t, err, ErrInvalidID)

	err = compute.AttachFloatingAddress(context.Background(), "7", "11")
	require.ErrorContains(t, err, "floating IP 11 not found")
}

func TestCompute_CreateInstance(t *testing.T) {
	t.Parallel()

	var got ServerCreateOpts
	client := &MockClient{
		CreateServerFunc: func(_ context.Context, opts ServerCreateOpts) (*hcloud.Server, error) {
			got = opts
			return serverWithNetworks(false), nil
		},
	}
	compute := NewCompute(client, WithDefaultLocation("fsn1"), WithSSHKeys("ops"))

	created, err := compute.CreateInstance(context.Background(), pool.CreateRequest{
		ClusterID: "c",
		Name:      "c-edge-001",
		Template:  pool.NodeTemplate{Name: "edge", Flavor: "cx22", Image: "ubuntu-24.04", UserData: "#cloud-config"},
	})
	require.NoError(t, err)
	assert.Equal(t, &pool.CreatedInstance{ID: "7", Address: "203.0.113.7"}, created)

	assert.Equal(t, "c-edge-001", got.Name)
	assert.Equal(t, "fsn1", got.Location)
	assert.Equal(t, "cx22", got.ServerType)
	assert.Equal(t, []string{"ops"}, got.SSHKeys)
	assert.Equal(t, "#cloud-config", got.UserData)
	assert.Equal(t, "edge", got.Labels[labels.KeyNodeGroup])
	assert.Equal(t, labels.ManagedByPool, got.Labels[labels.KeyManagedBy])
}

func TestCompute_CreateInstance_Error(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	compute := NewCompute(&MockClient{
		CreateServerFunc: func(context.Context, ServerCreateOpts) (*hcloud.Server, error) { return nil, boom },
	})
	_, err := compute.CreateInstance(context.Background(), pool.CreateRequest{Name: "x"})
	require.ErrorIs(t, err, boom)
}
