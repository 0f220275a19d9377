package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/imamik/hstack/internal/metrics"
	"github.com/imamik/hstack/internal/util/naming"
)

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithMetrics records task outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Provisioner) {
		p.metrics = m
	}
}

// Provisioner creates cluster instances directly through a compute backend.
type Provisioner struct {
	pool     *Pool
	lookup   TemplateLookup
	creator  InstanceCreator
	recorder NodeRecorder
	metrics  *metrics.Metrics
}

// NewProvisioner wires a provisioner to its pool and collaborators.
func NewProvisioner(pool *Pool, lookup TemplateLookup, creator InstanceCreator, recorder NodeRecorder, opts ...Option) *Provisioner {
	p := &Provisioner{
		pool:     pool,
		lookup:   lookup,
		creator:  creator,
		recorder: recorder,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProvisionCluster creates every requested instance and persists one node
// record per instance in a single batch. Records are ordered by completion.
// The first failing task cancels the others and no record is persisted.
func (p *Provisioner) ProvisionCluster(ctx context.Context, clusterID string, counts []NodeCount) ([]NodeRecord, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("cluster", clusterID)

	total := 0
	for _, nc := range counts {
		if nc.Count < 0 {
			return nil, fmt.Errorf("invalid count %d for template %s", nc.Count, nc.Template)
		}
		total += nc.Count
	}

	start := time.Now()
	log.Info("provisioning instances", "total", total, "poolSize", p.pool.Size())

	results := make(chan NodeRecord, total)
	g, gctx := errgroup.WithContext(ctx)

	for _, nc := range counts {
		for idx := range nc.Count {
			g.Go(func() error {
				return p.pool.Do(gctx, func(ctx context.Context) error {
					rec, err := p.createNode(ctx, clusterID, nc.Template, idx)
					p.metrics.RecordPoolTask(nc.Template, err)
					if err != nil {
						return err
					}
					results <- *rec
					return nil
				})
			})
		}
	}

	err := g.Wait()
	close(results)
	if err != nil {
		log.Error(err, "provisioning aborted, no node records persisted")
		return nil, fmt.Errorf("failed to provision cluster %s: %w", clusterID, err)
	}

	records := make([]NodeRecord, 0, total)
	for rec := range results {
		records = append(records, rec)
	}

	if err := p.recorder.AppendNodeRecords(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to persist node records: %w", err)
	}

	log.Info("provisioned instances", "total", len(records), "elapsed", time.Since(start).Round(time.Millisecond))
	return records, nil
}

func (p *Provisioner) createNode(ctx context.Context, clusterID, templateName string, idx int) (*NodeRecord, error) {
	tmpl, err := p.lookup.LookupTemplate(ctx, clusterID, templateName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up template %s: %w", templateName, err)
	}

	name := naming.Instance(clusterID, templateName, idx)
	inst, err := p.creator.CreateInstance(ctx, CreateRequest{
		ClusterID: clusterID,
		Name:      name,
		Template:  *tmpl,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create instance %s: %w", name, err)
	}

	return &NodeRecord{
		InstanceID: inst.ID,
		ClusterID:  clusterID,
		TemplateID: tmpl.ID,
		Name:       name,
		Address:    inst.Address,
	}, nil
}
