package hcloud

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/imamik/hstack/internal/config"
	"github.com/imamik/hstack/internal/metrics"
	"github.com/imamik/hstack/internal/stack"
	"github.com/imamik/hstack/internal/template"
	"github.com/imamik/hstack/internal/util/labels"
)

// Resource states reported by GetResource.
const (
	ResourceCreateComplete = "CREATE_COMPLETE"
	ResourceCreateFailed   = "CREATE_FAILED"
	ResourceInProgress     = "IN_PROGRESS"
	ResourceAdopted        = "ADOPTED"
)

// StackEngine is an in-process orchestration backend. Each stack is converged
// in its own goroutine; callers observe progress through GetStack.
type StackEngine struct {
	client      InfrastructureManager
	stacks      cmap.ConcurrentMap[string, *stackRecord]
	location    string
	ipRange     string
	zone        string
	parallelism int
	metrics     *metrics.Metrics

	wg sync.WaitGroup
}

var _ stack.Backend = (*StackEngine)(nil)

// stackRecord is the engine's state for one stack.
type stackRecord struct {
	mu        sync.RWMutex
	stack     stack.Stack
	template  *template.Template
	resources map[string]stack.Resource
}

// EngineOption configures a StackEngine.
type EngineOption func(*StackEngine)

// WithEngineLocation sets the location for fragments that carry none.
func WithEngineLocation(location string) EngineOption {
	return func(e *StackEngine) {
		e.location = location
	}
}

// WithNetworkRange sets the IP range and zone of networks the engine creates.
func WithNetworkRange(ipRange, zone string) EngineOption {
	return func(e *StackEngine) {
		e.ipRange = ipRange
		e.zone = zone
	}
}

// WithParallelism bounds concurrent server creations per stack. Zero means unbounded.
func WithParallelism(n int) EngineOption {
	return func(e *StackEngine) {
		e.parallelism = n
	}
}

// WithEngineMetrics counts resource operations.
func WithEngineMetrics(m *metrics.Metrics) EngineOption {
	return func(e *StackEngine) {
		e.metrics = m
	}
}

// NewStackEngine creates an engine on top of an infrastructure client.
func NewStackEngine(client InfrastructureManager, opts ...EngineOption) *StackEngine {
	e := &StackEngine{
		client:      client,
		stacks:      cmap.New[*stackRecord](),
		location:    config.DefaultLocation,
		ipRange:     config.DefaultNetworkCIDR,
		zone:        config.DefaultNetworkZone,
		parallelism: config.DefaultPoolSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateStack registers a stack and starts converging it. The template is
// parsed before the call returns, so malformed documents fail synchronously.
func (e *StackEngine) CreateStack(ctx context.Context, req stack.SubmitRequest) (string, error) {
	if e.findByName(req.Name) != nil {
		return "", fmt.Errorf("%w: %s", ErrStackExists, req.Name)
	}
	tmpl, err := template.Parse(req.Template)
	if err != nil {
		return "", fmt.Errorf("failed to parse template of stack %s: %w", req.Name, err)
	}

	rec := &stackRecord{
		stack: stack.Stack{
			Name:         req.Name,
			ID:           uuid.NewString(),
			Status:       stack.StatusCreateInProgress,
			StatusReason: "Stack CREATE started",
		},
		resources: make(map[string]stack.Resource),
	}
	e.stacks.Set(rec.stack.ID, rec)

	logr.FromContextOrDiscard(ctx).Info("stack create started", "stack", req.Name, "id", rec.stack.ID)
	e.launch(ctx, rec, tmpl, req, actionCreate)
	return rec.stack.ID, nil
}

// UpdateStack converges an existing stack towards a new template. Resources
// missing from the new template are deleted once the rest has converged.
func (e *StackEngine) UpdateStack(ctx context.Context, id string, req stack.SubmitRequest) error {
	rec, ok := e.stacks.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrStackNotFound, id)
	}
	tmpl, err := template.Parse(req.Template)
	if err != nil {
		return fmt.Errorf("failed to parse template of stack %s: %w", rec.name(), err)
	}

	rec.mu.Lock()
	if stack.PhaseOf(rec.stack.Status) == stack.PhaseInProgress {
		rec.mu.Unlock()
		return fmt.Errorf("stack %s is busy with %s", rec.stack.Name, rec.stack.Status)
	}
	rec.stack.Status = stack.StatusUpdateInProgress
	rec.stack.StatusReason = "Stack UPDATE started"
	rec.mu.Unlock()

	logr.FromContextOrDiscard(ctx).Info("stack update started", "stack", rec.name(), "id", id)
	e.launch(ctx, rec, tmpl, req, actionUpdate)
	return nil
}

// ListStacks returns the stacks with the given name. Stacks created by an
// earlier process are adopted from the labels of their servers.
func (e *StackEngine) ListStacks(ctx context.Context, name string) ([]stack.Stack, error) {
	if rec := e.findByName(name); rec != nil {
		return []stack.Stack{rec.snapshot()}, nil
	}

	rec, err := e.adopt(ctx, name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return []stack.Stack{rec.snapshot()}, nil
}

// GetStack returns the current state of a stack.
func (e *StackEngine) GetStack(_ context.Context, id string) (*stack.Stack, error) {
	rec, ok := e.stacks.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStackNotFound, id)
	}
	s := rec.snapshot()
	return &s, nil
}

// GetResource returns a resource of a stack. Resources the template defines
// but that are not created yet have an empty physical id.
func (e *StackEngine) GetResource(_ context.Context, stackID, name string) (*stack.Resource, error) {
	rec, ok := e.stacks.Get(stackID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStackNotFound, stackID)
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()
	if res, ok := rec.resources[name]; ok {
		return &res, nil
	}
	if rec.template != nil {
		if f, ok := rec.template.Fragment(name); ok {
			return &stack.Resource{LogicalName: name, Type: string(f.Kind()), Status: ResourceInProgress}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in stack %s", ErrResourceNotFound, name, rec.stack.Name)
}

// Resources returns a copy of a stack's resources sorted by logical name.
func (e *StackEngine) Resources(stackID string) ([]stack.Resource, error) {
	rec, ok := e.stacks.Get(stackID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStackNotFound, stackID)
	}
	rec.mu.RLock()
	defer rec.mu.RUnlock()

	out := make([]stack.Resource, 0, len(rec.resources))
	for _, res := range rec.resources {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LogicalName < out[j].LogicalName })
	return out, nil
}

// Wait blocks until every running convergence has finished.
func (e *StackEngine) Wait() {
	e.wg.Wait()
}

type action string

const (
	actionCreate action = "CREATE"
	actionUpdate action = "UPDATE"
)

// launch converges a stack in the background. The convergence outlives the
// caller's context but keeps its values, and is bounded by the stack timeout.
func (e *StackEngine) launch(ctx context.Context, rec *stackRecord, tmpl *template.Template, req stack.SubmitRequest, act action) {
	rec.mu.Lock()
	known := maps.Clone(rec.resources)
	rec.template = tmpl
	rec.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		cctx := context.WithoutCancel(ctx)
		if req.TimeoutMinutes > 0 {
			var cancel context.CancelFunc
			cctx, cancel = context.WithTimeout(cctx, time.Duration(req.TimeoutMinutes)*time.Minute)
			defer cancel()
		}
		log := logr.FromContextOrDiscard(ctx).WithValues("stack", rec.name(), "action", string(act))

		c := newConvergence(e, rec, tmpl, known)
		err := c.run(cctx)
		if err == nil && act == actionUpdate {
			err = c.prune(cctx)
		}

		if err != nil {
			log.Error(err, "stack convergence failed")
			if !req.DisableRollback {
				c.rollback(context.WithoutCancel(ctx))
			}
			rec.finish(failedStatus(act), err.Error())
			return
		}
		log.Info("stack converged")
		rec.finish(completeStatus(act), fmt.Sprintf("Stack %s completed successfully", act))
	}()
}

// adopt rebuilds a stack record from servers labelled with the stack name.
func (e *StackEngine) adopt(ctx context.Context, name string) (*stackRecord, error) {
	servers, err := e.client.ListServers(ctx, labels.SelectorForStack(name))
	if err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, nil
	}

	rec := &stackRecord{
		stack: stack.Stack{
			Name:         name,
			ID:           uuid.NewString(),
			Status:       stack.StatusCreateComplete,
			StatusReason: "Stack adopted from existing resources",
		},
		resources: make(map[string]stack.Resource),
	}
	for _, s := range servers {
		logical := s.Labels[labels.KeyResource]
		if logical == "" {
			logical = s.Name
		}
		rec.resources[logical] = stack.Resource{
			LogicalName: logical,
			PhysicalID:  fmt.Sprint(s.ID),
			Type:        string(template.KindInstance),
			Status:      ResourceAdopted,
		}
	}

	// Another caller may have adopted or created the stack meanwhile.
	if existing := e.findByName(name); existing != nil {
		return existing, nil
	}
	e.stacks.Set(rec.stack.ID, rec)
	logr.FromContextOrDiscard(ctx).Info("adopted stack", "stack", name, "id", rec.stack.ID, "servers", len(servers))
	return rec, nil
}

func (e *StackEngine) findByName(name string) *stackRecord {
	for item := range e.stacks.IterBuffered() {
		if item.Val.name() == name {
			return item.Val
		}
	}
	return nil
}

func (r *stackRecord) name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stack.Name
}

func (r *stackRecord) snapshot() stack.Stack {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stack
}

func (r *stackRecord) setResource(res stack.Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[res.LogicalName] = res
}

func (r *stackRecord) removeResource(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resources, name)
}

func (r *stackRecord) finish(status stack.Status, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stack.Status = status
	r.stack.StatusReason = reason
}

func completeStatus(a action) stack.Status {
	if a == actionUpdate {
		return stack.StatusUpdateComplete
	}
	return stack.StatusCreateComplete
}

func failedStatus(a action) stack.Status {
	if a == actionUpdate {
		return stack.StatusUpdateFailed
	}
	return stack.StatusCreateFailed
}
