package provisioning

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/imamik/hstack/internal/cluster"
	"github.com/imamik/hstack/internal/network"
	"github.com/imamik/hstack/internal/store"
	"github.com/imamik/hstack/internal/template"
	"github.com/imamik/hstack/internal/util/async"
	"github.com/imamik/hstack/internal/util/naming"
)

// TemplatePhase synthesizes the topology into a template and renders it.
type TemplatePhase struct {
	UserData cluster.UserDataProvider
	Options  []template.Option
}

// Name implements Phase.
func (p *TemplatePhase) Name() string { return "template" }

// Provision implements Phase.
func (p *TemplatePhase) Provision(ctx *Context) error {
	opts := append([]template.Option{template.WithNetworkBackend(ctx.Config.UseNetworkBackend)}, p.Options...)
	synth := template.NewSynthesizer(ctx.Topology, opts...)
	synth.AddNodeGroups(p.UserData)

	tmpl, err := synth.Synthesize(ctx)
	if err != nil {
		return err
	}
	doc, err := template.Render(tmpl)
	if err != nil {
		return err
	}

	ctx.State.Template = tmpl
	ctx.State.Document = doc
	ctx.Observer.Printf("Synthesized %d resources for cluster %s", len(tmpl.Fragments()), tmpl.Cluster())
	return nil
}

// ArchivePhase stores the rendered template under a fresh revision.
type ArchivePhase struct {
	Archive TemplateArchive
}

// Name implements Phase.
func (p *ArchivePhase) Name() string { return "archive" }

// Provision implements Phase.
func (p *ArchivePhase) Provision(ctx *Context) error {
	if ctx.State.Document == nil {
		return errors.New("no rendered template to archive")
	}
	revision := uuid.NewString()
	key, err := p.Archive.Store(ctx, naming.Stack(ctx.Topology.Name), revision, ctx.State.Document)
	if err != nil {
		return err
	}
	ctx.State.Revision = revision
	ctx.State.ArchiveKey = key
	return nil
}

// StackPhase submits the template and waits for the stack to become active.
type StackPhase struct {
	Controller StackController
	// Update converges the existing stack instead of creating a new one.
	Update bool
}

// Name implements Phase.
func (p *StackPhase) Name() string { return "stack" }

// Provision implements Phase.
func (p *StackPhase) Provision(ctx *Context) error {
	if ctx.State.Template == nil {
		return errors.New("no template to submit")
	}
	cs, err := p.Controller.SubmitOrUpdate(ctx, ctx.State.Template, ctx.Topology.Name, p.Update)
	if err != nil {
		return err
	}
	cs, err = p.Controller.WaitUntilActive(ctx, cs)
	if err != nil {
		return err
	}
	ctx.State.Stack = cs
	LogResourceCreated(ctx.Observer, p.Name(), "stack", cs.Stack.Name, cs.Stack.ID)
	return nil
}

// InstancesPhase resolves the stack's instances and records them.
type InstancesPhase struct {
	Controller StackController
	Recorder   InstanceRecorder
}

// Name implements Phase.
func (p *InstancesPhase) Name() string { return "instances" }

// Provision implements Phase.
func (p *InstancesPhase) Provision(ctx *Context) error {
	cs := ctx.State.Stack
	if cs == nil {
		return errors.New("no active stack")
	}

	var nodes []Node
	for _, group := range cs.Template.NodeGroups() {
		handles, err := p.Controller.ResolveInstances(ctx, cs, group)
		if err != nil {
			return err
		}
		for _, h := range handles {
			err := p.Recorder.RecordInstance(ctx, store.Instance{
				ID:         h.ID,
				ClusterID:  cs.Template.Cluster(),
				TemplateID: group,
				Name:       h.Name,
			})
			if err != nil {
				return err
			}
			nodes = append(nodes, Node{Name: h.Name, NodeGroup: group, ID: h.ID})
			LogResourceCreated(ctx.Observer, p.Name(), "instance", h.Name, h.ID)
		}
	}
	ctx.State.Nodes = nodes
	return nil
}

// AddressesPhase waits until every node has both addresses. Nodes are
// resolved concurrently, at most pool_size at a time.
type AddressesPhase struct {
	Resolver AddressAwaiter
}

// Name implements Phase.
func (p *AddressesPhase) Name() string { return "addresses" }

// Provision implements Phase.
func (p *AddressesPhase) Provision(ctx *Context) error {
	nodes := ctx.State.Nodes
	if len(nodes) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		done int
	)
	tasks := make([]async.Task, 0, len(nodes))
	for i := range nodes {
		node := &nodes[i]
		tasks = append(tasks, async.Task{
			Name: node.Name,
			Func: func(c context.Context) error {
				addr, err := p.Resolver.AwaitAddresses(c, node.ID, ctx.Config.Addresses.Timeout, ctx.Config.Addresses.Interval)
				if err != nil {
					return err
				}
				node.InternalIP = addr.InternalIP
				node.ManagementIP = addr.ManagementIP
				ctx.Observer.Event(resolvedEvent(p.Name(), node.Name, addr))

				mu.Lock()
				done++
				ctx.Observer.Progress(p.Name(), done, len(nodes))
				mu.Unlock()
				return nil
			},
		})
	}
	if err := async.RunParallel(ctx, tasks, ctx.Config.PoolSize); err != nil {
		return fmt.Errorf("failed to resolve addresses: %w", err)
	}
	return nil
}

func resolvedEvent(phase, name string, addr network.ResolvedAddress) Event {
	return Event{
		Type:     EventResourceResolved,
		Phase:    phase,
		Resource: name,
		Message:  "addresses resolved",
		Fields: map[string]string{
			"internal":   addr.InternalIP,
			"management": addr.ManagementIP,
		},
	}
}
