package s3

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/go-logr/logr"

	"github.com/imamik/hstack/internal/util/naming"
)

const templateContentType = "application/json"

// ObjectStore is the subset of Client the archive needs.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

var _ ObjectStore = (*Client)(nil)

// Archive keeps rendered stack templates in one bucket.
type Archive struct {
	store  ObjectStore
	bucket string
}

// NewArchive binds an object store to a bucket.
func NewArchive(store ObjectStore, bucket string) *Archive {
	return &Archive{store: store, bucket: bucket}
}

// Bucket returns the archive bucket.
func (a *Archive) Bucket() string {
	return a.bucket
}

// Prepare makes sure the bucket exists.
func (a *Archive) Prepare(ctx context.Context) error {
	return a.store.EnsureBucket(ctx, a.bucket)
}

// Store uploads one revision of a stack template and returns its key.
func (a *Archive) Store(ctx context.Context, stackName, revision string, doc []byte) (string, error) {
	key := naming.ArchiveKey(stackName, revision)
	if err := a.store.PutObject(ctx, a.bucket, key, templateContentType, doc); err != nil {
		return "", err
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("archived template", "bucket", a.bucket, "key", key, "bytes", len(doc))
	return key, nil
}

// Load downloads an archived revision.
func (a *Archive) Load(ctx context.Context, stackName, revision string) ([]byte, error) {
	return a.store.GetObject(ctx, a.bucket, naming.ArchiveKey(stackName, revision))
}

// Revisions lists the archived revisions of a stack, sorted.
func (a *Archive) Revisions(ctx context.Context, stackName string) ([]string, error) {
	prefix := path.Dir(naming.ArchiveKey(stackName, "x")) + "/"
	keys, err := a.store.ListObjects(ctx, a.bucket, prefix)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		rest := strings.TrimPrefix(key, prefix)
		if strings.Contains(rest, "/") || !strings.HasSuffix(rest, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(rest, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Purge deletes every archived template of a stack.
func (a *Archive) Purge(ctx context.Context, stackName string) error {
	ids, err := a.Revisions(ctx, stackName)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := a.store.DeleteObject(ctx, a.bucket, naming.ArchiveKey(stackName, id)); err != nil {
			return fmt.Errorf("failed to purge archive of stack %s: %w", stackName, err)
		}
	}
	return nil
}
