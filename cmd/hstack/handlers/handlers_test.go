package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	hcloudgo "github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/require"

	"github.com/imamik/hstack/internal/config"
	"github.com/imamik/hstack/internal/platform/hcloud"
	"github.com/imamik/hstack/internal/platform/s3"
	"github.com/imamik/hstack/internal/util/labels"
)

const testTopology = `
name: demo
image: ubuntu-24.04
key_pair: demo-key
node_groups:
  - name: worker
    flavor: cx22
    count: 2
`

// writeInputs writes a topology and a configuration into a temp dir.
// Extra YAML is appended to the configuration.
func writeInputs(t *testing.T, extra string) (topologyPath, configPath string) {
	t.Helper()
	dir := t.TempDir()

	topologyPath = filepath.Join(dir, "cluster.yaml")
	require.NoError(t, os.WriteFile(topologyPath, []byte(testTopology), 0o600))

	cfg := fmt.Sprintf(`
use_network_backend: false
hcloud_token: test-token
database: %s
simulate_delay: 1ms
stack:
  poll_interval: 10ms
addresses:
  timeout: 5s
  interval: 10ms
%s`, filepath.Join(dir, "hstack.db"), extra)
	configPath = filepath.Join(dir, "hstack.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o600))
	return topologyPath, configPath
}

// captureStdout redirects handler output for the duration of the test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = orig })
	return &buf
}

// fakeProject is a minimal in-memory Hetzner project: servers are tracked,
// each with a public IPv4 address.
type fakeProject struct {
	mu      sync.Mutex
	nextID  int64
	servers map[string]*hcloudgo.Server
	created []hcloud.ServerCreateOpts
	keys    []string
}

func newFakeProject() *fakeProject {
	return &fakeProject{servers: make(map[string]*hcloudgo.Server)}
}

func (f *fakeProject) lookup(idOrName string) *hcloudgo.Server {
	if s, ok := f.servers[idOrName]; ok {
		return s
	}
	for _, s := range f.servers {
		if strconv.FormatInt(s.ID, 10) == idOrName {
			return s
		}
	}
	return nil
}

var _ hcloud.InfrastructureManager = (*fakeProject)(nil)

func (f *fakeProject) client() *fakeProject { return f }

func (f *fakeProject) CreateServer(_ context.Context, opts hcloud.ServerCreateOpts) (*hcloudgo.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s := &hcloudgo.Server{ID: f.nextID, Name: opts.Name, Labels: opts.Labels}
	s.PublicNet.IPv4.IP = net.IPv4(203, 0, 113, byte(f.nextID))
	f.servers[opts.Name] = s
	f.created = append(f.created, opts)
	return s, nil
}

func (f *fakeProject) GetServer(_ context.Context, idOrName string) (*hcloudgo.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookup(idOrName), nil
}

func (f *fakeProject) ListServers(_ context.Context, selector string) ([]*hcloudgo.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*hcloudgo.Server
	for _, s := range f.servers {
		if labels.SelectorForStack(s.Labels[labels.KeyStack]) == selector {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeProject) DeleteServer(_ context.Context, idOrName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s := f.lookup(idOrName); s != nil {
		delete(f.servers, s.Name)
	}
	return nil
}

func (f *fakeProject) EnsureSSHKey(_ context.Context, name, publicKey string, lbls map[string]string) (*hcloudgo.SSHKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, name)
	return &hcloudgo.SSHKey{ID: 1, Name: name, PublicKey: publicKey, Labels: lbls}, nil
}

func (f *fakeProject) DeleteSSHKey(context.Context, string) error { return nil }

// The remaining resources are not tracked by the handler tests.

func (f *fakeProject) CreateFloatingIP(_ context.Context, name, home string, lbls map[string]string) (*hcloudgo.FloatingIP, error) {
	return &hcloudgo.FloatingIP{ID: 1, Name: name, HomeLocation: &hcloudgo.Location{Name: home}, Labels: lbls}, nil
}

func (f *fakeProject) EnsureFloatingIP(ctx context.Context, name, home string, lbls map[string]string) (*hcloudgo.FloatingIP, bool, error) {
	fip, err := f.CreateFloatingIP(ctx, name, home, lbls)
	return fip, true, err
}

func (f *fakeProject) AssignFloatingIP(context.Context, *hcloudgo.FloatingIP, int64) error { return nil }

func (f *fakeProject) GetFloatingIP(context.Context, string) (*hcloudgo.FloatingIP, error) {
	return nil, nil
}

func (f *fakeProject) DeleteFloatingIP(context.Context, string) error { return nil }

func (f *fakeProject) EnsureVolume(_ context.Context, name string, sizeGB int, _ string, lbls map[string]string) (*hcloudgo.Volume, bool, error) {
	return &hcloudgo.Volume{ID: 1, Name: name, Size: sizeGB, Labels: lbls}, true, nil
}

func (f *fakeProject) AttachVolume(context.Context, *hcloudgo.Volume, int64) error { return nil }

func (f *fakeProject) DeleteVolume(context.Context, string) error { return nil }

func (f *fakeProject) EnsurePlacementGroup(_ context.Context, name string, lbls map[string]string) (*hcloudgo.PlacementGroup, bool, error) {
	return &hcloudgo.PlacementGroup{ID: 1, Name: name, Type: hcloudgo.PlacementGroupTypeSpread, Labels: lbls}, true, nil
}

func (f *fakeProject) DeletePlacementGroup(context.Context, string) error { return nil }

func (f *fakeProject) EnsureNetwork(_ context.Context, name, _, _ string, lbls map[string]string) (*hcloudgo.Network, error) {
	return &hcloudgo.Network{ID: 1, Name: name, Labels: lbls}, nil
}

func (f *fakeProject) GetNetwork(context.Context, string) (*hcloudgo.Network, error) { return nil, nil }

func (f *fakeProject) ListNetworks(context.Context) ([]*hcloudgo.Network, error) { return nil, nil }

func (f *fakeProject) GetFirewall(context.Context, string) (*hcloudgo.Firewall, error) { return nil, nil }

// useFakeProject routes every handler client to project.
func useFakeProject(t *testing.T, project *fakeProject) {
	t.Helper()
	orig := newInfraClient
	newInfraClient = func(token string) hcloud.InfrastructureManager {
		require.Equal(t, "test-token", token)
		return project.client()
	}
	t.Cleanup(func() { newInfraClient = orig })

	origView := useApplyView
	useApplyView = func() bool { return false }
	t.Cleanup(func() { useApplyView = origView })
}

// memoryObjects is an in-memory s3.ObjectStore.
type memoryObjects struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
}

var _ s3.ObjectStore = (*memoryObjects)(nil)

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{buckets: make(map[string]bool), objects: make(map[string][]byte)}
}

func (m *memoryObjects) EnsureBucket(_ context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[bucket] = true
	return nil
}

func (m *memoryObjects) ListObjects(_ context.Context, bucket, _ string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		keys = append(keys, k[len(bucket)+1:])
	}
	return keys, nil
}

func (m *memoryObjects) PutObject(_ context.Context, bucket, key, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = data
	return nil
}

func (m *memoryObjects) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, s3.ErrObjectNotFound
	}
	return data, nil
}

func (m *memoryObjects) DeleteObject(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}

func useMemoryObjects(t *testing.T, objects *memoryObjects) {
	t.Helper()
	orig := newObjectStore
	newObjectStore = func(_ context.Context, _ config.ArchiveConfig) (s3.ObjectStore, error) {
		return objects, nil
	}
	t.Cleanup(func() { newObjectStore = orig })
}

func hcloudOpts(name string) hcloud.ServerCreateOpts {
	return hcloud.ServerCreateOpts{Name: name, ServerType: "cx22", Image: "ubuntu-24.04"}
}
