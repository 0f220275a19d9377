package provisioning

import (
	"context"
	"time"

	"github.com/imamik/hstack/internal/network"
	"github.com/imamik/hstack/internal/stack"
	"github.com/imamik/hstack/internal/store"
	"github.com/imamik/hstack/internal/template"
)

// Phase defines the interface for a provisioning phase.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Provision executes the provisioning logic for this phase.
	Provision(ctx *Context) error
}

// StackController submits stacks and resolves their instances.
// Implemented by stack.Controller.
type StackController interface {
	SubmitOrUpdate(ctx context.Context, tmpl *template.Template, clusterName string, updateExisting bool) (*stack.ClusterStack, error)
	WaitUntilActive(ctx context.Context, cs *stack.ClusterStack) (*stack.ClusterStack, error)
	ResolveInstances(ctx context.Context, cs *stack.ClusterStack, nodeGroup string) ([]stack.InstanceHandle, error)
}

// TemplateArchive keeps submitted template revisions.
// Implemented by s3.Archive.
type TemplateArchive interface {
	Store(ctx context.Context, stackName, revision string, doc []byte) (string, error)
}

// InstanceRecorder persists instance records.
// Implemented by store.Store.
type InstanceRecorder interface {
	RecordInstance(ctx context.Context, inst store.Instance) error
}

// AddressAwaiter resolves instance addresses, polling until both are known.
// Implemented by network.Resolver.
type AddressAwaiter interface {
	AwaitAddresses(ctx context.Context, instanceID string, timeout, interval time.Duration) (network.ResolvedAddress, error)
}

var (
	_ StackController  = (*stack.Controller)(nil)
	_ InstanceRecorder = (*store.Store)(nil)
	_ AddressAwaiter   = (*network.Resolver)(nil)
)
