package pool

import (
	"context"
	"errors"
)

// ErrTemplateNotFound is returned by lookups for unknown node templates.
var ErrTemplateNotFound = errors.New("node template not found")

// NodeTemplate is the definition an instance is created from. Names are
// unique within a cluster.
type NodeTemplate struct {
	ID        string
	ClusterID string
	Name      string
	Flavor    string
	Image     string
	Location  string
	UserData  string
}

// NodeCount requests Count instances of the named node template.
type NodeCount struct {
	Template string
	Count    int
}

// CreateRequest describes one instance to create.
type CreateRequest struct {
	ClusterID string
	Name      string
	Template  NodeTemplate
}

// CreatedInstance is the result of a creation.
type CreatedInstance struct {
	ID      string
	Address string
}

// NodeRecord associates a created instance with its cluster and template.
type NodeRecord struct {
	InstanceID string
	ClusterID  string
	TemplateID string
	Name       string
	Address    string
}

// TemplateLookup resolves the node templates of a cluster by name.
type TemplateLookup interface {
	LookupTemplate(ctx context.Context, clusterID, name string) (*NodeTemplate, error)
}

// InstanceCreator creates instances on a compute backend.
type InstanceCreator interface {
	CreateInstance(ctx context.Context, req CreateRequest) (*CreatedInstance, error)
}

// NodeRecorder persists node records.
type NodeRecorder interface {
	AppendNodeRecords(ctx context.Context, records []NodeRecord) error
}

// StaticLookup serves the same templates, keyed by name, to every cluster.
type StaticLookup map[string]NodeTemplate

// LookupTemplate implements TemplateLookup.
func (l StaticLookup) LookupTemplate(_ context.Context, _, name string) (*NodeTemplate, error) {
	tmpl, ok := l[name]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return &tmpl, nil
}
