package stack

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/hstack/internal/metrics"
	"github.com/imamik/hstack/internal/template"
	"github.com/imamik/hstack/internal/util/naming"
)

// Defaults for stack submission and polling.
const (
	DefaultTimeoutMinutes = 180
	DefaultPollInterval   = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Controller.
type Option func(*Controller)

// WithPollInterval sets the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.pollInterval = d
	}
}

// WithSleep replaces the sleep used between polls.
func WithSleep(fn SleepFunc) Option {
	return func(c *Controller) {
		c.sleep = fn
	}
}

// WithTimeoutMinutes sets the backend convergence timeout.
func WithTimeoutMinutes(m int) Option {
	return func(c *Controller) {
		c.timeoutMinutes = m
	}
}

// WithRollback lets the backend delete the resources of a failed creation.
func WithRollback(enabled bool) Option {
	return func(c *Controller) {
		c.rollback = enabled
	}
}

// WithMetrics records polls and terminal statuses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// Controller submits templates and drives stacks to a terminal status.
type Controller struct {
	backend        Backend
	pollInterval   time.Duration
	sleep          SleepFunc
	timeoutMinutes int
	rollback       bool
	metrics        *metrics.Metrics
}

// NewController creates a controller for the given backend.
func NewController(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:        backend,
		pollInterval:   DefaultPollInterval,
		sleep:          sleepContext,
		timeoutMinutes: DefaultTimeoutMinutes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SubmitOrUpdate renders the template and creates the cluster's stack, or
// updates the existing stack with the same name when updateExisting is set.
// The submitted stack is then looked up again by name.
func (c *Controller) SubmitOrUpdate(ctx context.Context, tmpl *template.Template, clusterName string, updateExisting bool) (*ClusterStack, error) {
	name := naming.Stack(clusterName)
	log := logr.FromContextOrDiscard(ctx).WithValues("stack", name)

	doc, err := template.Render(tmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	req := SubmitRequest{
		Name:            name,
		Template:        doc,
		TimeoutMinutes:  c.timeoutMinutes,
		DisableRollback: !c.rollback,
		Parameters:      map[string]string{},
	}

	if !updateExisting {
		id, err := c.backend.CreateStack(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to create stack %s: %w", name, err)
		}
		log.Info("stack creation requested", "id", id)
	} else {
		existing, err := c.find(ctx, name)
		if err != nil {
			return nil, err
		}
		if err := c.backend.UpdateStack(ctx, existing.ID, req); err != nil {
			return nil, fmt.Errorf("failed to update stack %s: %w", name, err)
		}
		log.Info("stack update requested", "id", existing.ID)
	}

	st, err := c.find(ctx, name)
	if err != nil {
		return nil, err
	}
	return &ClusterStack{Template: tmpl, Stack: *st}, nil
}

func (c *Controller) find(ctx context.Context, name string) (*Stack, error) {
	stacks, err := c.backend.ListStacks(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list stacks: %w", err)
	}
	for _, st := range stacks {
		if st.Name == name {
			return &st, nil
		}
	}
	return nil, &NotFoundError{Name: name}
}

// WaitUntilActive polls the stack while it is in progress. It returns the
// final stack on CREATE_COMPLETE or UPDATE_COMPLETE and a *FailedError for
// any other terminal status. Cancelling ctx stops the wait.
func (c *Controller) WaitUntilActive(ctx context.Context, cs *ClusterStack) (*ClusterStack, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("stack", cs.Stack.Name, "id", cs.Stack.ID)
	start := time.Now()

	current := cs.Stack
	for PhaseOf(current.Status) == PhaseInProgress {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("stopped waiting for stack %s: %w", current.Name, err)
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return nil, fmt.Errorf("stopped waiting for stack %s: %w", current.Name, err)
		}

		refreshed, err := c.backend.GetStack(ctx, current.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get stack %s: %w", current.Name, err)
		}
		c.metrics.RecordStackPoll(current.Name)
		log.V(1).Info("polled stack", "status", refreshed.Status)
		current = *refreshed
	}

	c.metrics.RecordStackResult(current.Name, string(current.Status), time.Since(start))

	if PhaseOf(current.Status) != PhaseComplete {
		log.Info("stack failed", "status", current.Status, "reason", current.StatusReason)
		return nil, &FailedError{Status: current.Status, Reason: current.StatusReason}
	}

	log.Info("stack is active", "status", current.Status, "elapsed", time.Since(start).Round(time.Second))
	return &ClusterStack{Template: cs.Template, Stack: current}, nil
}

// ResolveInstances returns the instances of a node group in index order by
// looking up each deterministically named resource in the stack.
func (c *Controller) ResolveInstances(ctx context.Context, cs *ClusterStack, nodeGroup string) ([]InstanceHandle, error) {
	if _, ok := cs.Template.NodeCount(nodeGroup); !ok {
		return nil, fmt.Errorf("node group %q is not part of stack %s", nodeGroup, cs.Stack.Name)
	}

	names := cs.Template.InstanceNames(nodeGroup)
	handles := make([]InstanceHandle, 0, len(names))
	for _, name := range names {
		res, err := c.backend.GetResource(ctx, cs.Stack.ID, name)
		if err != nil {
			return nil, fmt.Errorf("failed to get resource %s: %w", name, err)
		}
		if res.PhysicalID == "" {
			return nil, fmt.Errorf("resource %s has no physical id", name)
		}
		handles = append(handles, InstanceHandle{Name: name, ID: res.PhysicalID})
	}
	return handles, nil
}
