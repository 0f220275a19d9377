package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// trackingCreator records peak concurrency and hands out sequential ids.
type trackingCreator struct {
	delay   time.Duration
	current atomic.Int32
	peak    atomic.Int32
	next    atomic.Int32
	failOn  string
}

func (c *trackingCreator) CreateInstance(ctx context.Context, req CreateRequest) (*CreatedInstance, error) {
	n := c.current.Add(1)
	defer c.current.Add(-1)
	for {
		old := c.peak.Load()
		if n <= old || c.peak.CompareAndSwap(old, n) {
			break
		}
	}

	if req.Name == c.failOn {
		return nil, errors.New("quota exceeded")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.delay):
	}
	return &CreatedInstance{ID: fmt.Sprintf("id-%d", c.next.Add(1)), Address: "10.0.0.1"}, nil
}

// memoryRecorder stores appended batches.
type memoryRecorder struct {
	mu      sync.Mutex
	batches [][]NodeRecord
	err     error
}

func (r *memoryRecorder) AppendNodeRecords(_ context.Context, records []NodeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, records)
	return nil
}

// clusterLookup keys templates by cluster, then by name.
type clusterLookup map[string]map[string]NodeTemplate

func (l clusterLookup) LookupTemplate(_ context.Context, clusterID, name string) (*NodeTemplate, error) {
	tmpl, ok := l[clusterID][name]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return &tmpl, nil
}

var templates = StaticLookup{
	"master": {ID: "tmpl-master", Name: "master", Flavor: "cx22"},
	"worker": {ID: "tmpl-worker", Name: "worker", Flavor: "cx32"},
	"edge":   {ID: "tmpl-edge", Name: "edge", Flavor: "cx22"},
}

var _ = Describe("Pool", func() {
	It("clamps the size to at least one slot", func() {
		Expect(NewPool(0).Size()).To(Equal(1))
		Expect(NewPool(4).Size()).To(Equal(4))
	})

	It("tracks in-flight slots", func(ctx SpecContext) {
		p := NewPool(2)
		Expect(p.Acquire(ctx)).To(Succeed())
		Expect(p.Acquire(ctx)).To(Succeed())
		Expect(p.InFlight()).To(Equal(2))

		blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		Expect(p.Acquire(blocked)).To(MatchError(context.DeadlineExceeded))

		p.Release()
		p.Release()
		Expect(p.InFlight()).To(BeZero())
	})
})

var _ = Describe("Provisioner", func() {
	var (
		creator  *trackingCreator
		recorder *memoryRecorder
	)

	BeforeEach(func() {
		creator = &trackingCreator{delay: 20 * time.Millisecond}
		recorder = &memoryRecorder{}
	})

	It("never exceeds the pool capacity and collects every result once", func(ctx SpecContext) {
		pool := NewPool(3)
		prov := NewProvisioner(pool, templates, creator, recorder)

		records, err := prov.ProvisionCluster(ctx, "c", []NodeCount{
			{Template: "master", Count: 2},
			{Template: "worker", Count: 7},
			{Template: "edge", Count: 3},
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(creator.peak.Load()).To(BeNumerically("<=", 3))
		Expect(creator.peak.Load()).To(BeNumerically(">", 1))
		Expect(records).To(HaveLen(12))

		ids := make(map[string]struct{})
		names := make(map[string]struct{})
		for _, rec := range records {
			ids[rec.InstanceID] = struct{}{}
			names[rec.Name] = struct{}{}
			Expect(rec.ClusterID).To(Equal("c"))
		}
		Expect(ids).To(HaveLen(12))
		Expect(names).To(HaveKey("c-worker-007"))
		Expect(names).To(HaveKey("c-master-002"))

		Expect(recorder.batches).To(HaveLen(1))
		Expect(recorder.batches[0]).To(Equal(records))
		Expect(pool.InFlight()).To(BeZero())
	})

	It("attaches the template id to each record", func(ctx SpecContext) {
		prov := NewProvisioner(NewPool(2), templates, creator, recorder)

		records, err := prov.ProvisionCluster(ctx, "c", []NodeCount{{Template: "master", Count: 1}})
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(ConsistOf(NodeRecord{
			InstanceID: "id-1",
			ClusterID:  "c",
			TemplateID: "tmpl-master",
			Name:       "c-master-001",
			Address:    "10.0.0.1",
		}))
	})

	It("aborts without persisting when a creation fails", func(ctx SpecContext) {
		creator.failOn = "c-worker-002"
		prov := NewProvisioner(NewPool(2), templates, creator, recorder)

		_, err := prov.ProvisionCluster(ctx, "c", []NodeCount{{Template: "worker", Count: 5}})
		Expect(err).To(MatchError(ContainSubstring("failed to create instance c-worker-002")))
		Expect(recorder.batches).To(BeEmpty())
	})

	It("fails on unknown templates", func(ctx SpecContext) {
		prov := NewProvisioner(NewPool(2), templates, creator, recorder)

		_, err := prov.ProvisionCluster(ctx, "c", []NodeCount{{Template: "gpu", Count: 1}})
		Expect(errors.Is(err, ErrTemplateNotFound)).To(BeTrue())
		Expect(recorder.batches).To(BeEmpty())
	})

	It("looks templates up within the provisioned cluster", func(ctx SpecContext) {
		lookup := clusterLookup{
			"alpha": {"worker": {ID: "alpha-worker", Name: "worker", Flavor: "cx22"}},
			"beta":  {"worker": {ID: "beta-worker", Name: "worker", Flavor: "cx52"}},
		}
		prov := NewProvisioner(NewPool(2), lookup, creator, recorder)

		alpha, err := prov.ProvisionCluster(ctx, "alpha", []NodeCount{{Template: "worker", Count: 2}})
		Expect(err).NotTo(HaveOccurred())
		for _, rec := range alpha {
			Expect(rec.TemplateID).To(Equal("alpha-worker"))
		}

		beta, err := prov.ProvisionCluster(ctx, "beta", []NodeCount{{Template: "worker", Count: 1}})
		Expect(err).NotTo(HaveOccurred())
		Expect(beta[0].TemplateID).To(Equal("beta-worker"))

		_, err = prov.ProvisionCluster(ctx, "gamma", []NodeCount{{Template: "worker", Count: 1}})
		Expect(errors.Is(err, ErrTemplateNotFound)).To(BeTrue())
	})

	It("rejects negative counts", func(ctx SpecContext) {
		prov := NewProvisioner(NewPool(2), templates, creator, recorder)

		_, err := prov.ProvisionCluster(ctx, "c", []NodeCount{{Template: "worker", Count: -1}})
		Expect(err).To(MatchError(ContainSubstring("invalid count -1")))
	})

	It("surfaces persistence errors", func(ctx SpecContext) {
		recorder.err = errors.New("database is locked")
		prov := NewProvisioner(NewPool(2), templates, creator, recorder)

		_, err := prov.ProvisionCluster(ctx, "c", []NodeCount{{Template: "worker", Count: 2}})
		Expect(err).To(MatchError(ContainSubstring("failed to persist node records")))
	})

	It("shares one pool between concurrent provisioning calls", func(ctx SpecContext) {
		pool := NewPool(2)
		prov := NewProvisioner(pool, templates, creator, recorder)

		var wg sync.WaitGroup
		for _, cluster := range []string{"a", "b", "c"} {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := prov.ProvisionCluster(ctx, cluster, []NodeCount{{Template: "worker", Count: 3}})
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()

		Expect(creator.peak.Load()).To(BeNumerically("<=", 2))
		Expect(recorder.batches).To(HaveLen(3))
	})
})

var _ = Describe("SimulatedCreator", func() {
	It("returns a hex id and the placeholder address", func(ctx SpecContext) {
		inst, err := SimulatedCreator{Delay: time.Millisecond}.CreateInstance(ctx, CreateRequest{Name: "c-ng-001"})
		Expect(err).NotTo(HaveOccurred())
		Expect(inst.ID).To(MatchRegexp(`^[0-9a-f]{32}$`))
		Expect(inst.Address).To(Equal(PlaceholderAddress))
	})

	It("stops waiting when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := SimulatedCreator{Delay: time.Hour}.CreateInstance(ctx, CreateRequest{})
		Expect(err).To(MatchError(context.Canceled))
	})
})
