package provisioning

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/imamik/hstack/internal/cluster"
	"github.com/imamik/hstack/internal/config"
	"github.com/imamik/hstack/internal/stack"
	"github.com/imamik/hstack/internal/template"
)

// Node is one provisioned instance as seen by the pipeline.
type Node struct {
	Name         string
	NodeGroup    string
	ID           string
	InternalIP   string
	ManagementIP string
}

// State holds the shared results of provisioning phases.
// It is progressively populated as each phase completes and is passed
// to subsequent phases that need earlier results.
type State struct {
	// Template results
	Template *template.Template
	Document []byte

	// Archive results (empty when archiving is disabled)
	Revision   string
	ArchiveKey string

	// Stack results
	Stack *stack.ClusterStack

	// Instance results in node group order, then index order
	Nodes []Node
}

// NewState creates an empty provisioning state.
func NewState() *State {
	return &State{}
}

// Context wraps all dependencies and state needed for a provisioning phase.
type Context struct {
	context.Context
	Config   *config.Config
	Topology *cluster.Topology
	State    *State
	Observer Observer
	Timeouts *config.Timeouts
}

// NewContext creates a new provisioning context. Events go to the logger
// carried by ctx.
func NewContext(ctx context.Context, cfg *config.Config, topology *cluster.Topology) *Context {
	return &Context{
		Context:  ctx,
		Config:   cfg,
		Topology: topology,
		State:    NewState(),
		Observer: NewLogObserver(logr.FromContextOrDiscard(ctx)),
		Timeouts: config.LoadTimeouts(),
	}
}
