package s3

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
	putErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{buckets: map[string]bool{}, objects: map[string][]byte{}}
}

func (m *memoryStore) EnsureBucket(_ context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[bucket] = true
	return nil
}

func (m *memoryStore) ListObjects(_ context.Context, bucket, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, bucket+"/"+prefix) {
			keys = append(keys, strings.TrimPrefix(k, bucket+"/"))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memoryStore) PutObject(_ context.Context, bucket, key, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[bucket+"/"+key] = data
	return nil
}

func (m *memoryStore) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return data, nil
}

func (m *memoryStore) DeleteObject(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}

func TestArchive_StoreAndLoad(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	archive := NewArchive(store, "templates")
	ctx := context.Background()

	require.NoError(t, archive.Prepare(ctx))
	assert.True(t, store.buckets["templates"])
	assert.Equal(t, "templates", archive.Bucket())

	key, err := archive.Store(ctx, "c", "b-id", []byte(`{"b":1}`))
	require.NoError(t, err)
	assert.Equal(t, "stacks/c/b-id.json", key)
	_, err = archive.Store(ctx, "c", "a-id", []byte(`{"a":1}`))
	require.NoError(t, err)
	_, err = archive.Store(ctx, "other", "z-id", []byte(`{}`))
	require.NoError(t, err)

	doc, err := archive.Load(ctx, "c", "b-id")
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":1}`, string(doc))

	_, err = archive.Load(ctx, "c", "missing")
	require.ErrorIs(t, err, ErrObjectNotFound)

	ids, err := archive.Revisions(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a-id", "b-id"}, ids)
}

func TestArchive_RevisionsIgnoresForeignKeys(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.objects["templates/stacks/c/1.json"] = nil
	store.objects["templates/stacks/c/notes.txt"] = nil
	store.objects["templates/stacks/c/nested/2.json"] = nil
	store.objects["templates/stacks/cluster/3.json"] = nil

	ids, err := NewArchive(store, "templates").Revisions(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids)
}

func TestArchive_Purge(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	archive := NewArchive(store, "templates")
	ctx := context.Background()
	for _, id := range []string{"1", "2"} {
		_, err := archive.Store(ctx, "c", id, []byte("{}"))
		require.NoError(t, err)
	}
	_, err := archive.Store(ctx, "keep", "3", []byte("{}"))
	require.NoError(t, err)

	require.NoError(t, archive.Purge(ctx, "c"))
	assert.Len(t, store.objects, 1)
	assert.Contains(t, store.objects, "templates/stacks/keep/3.json")
}

func TestArchive_StoreError(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.putErr = errors.New("denied")

	_, err := NewArchive(store, "templates").Store(context.Background(), "c", "1", nil)
	require.EqualError(t, err, "denied")
}
