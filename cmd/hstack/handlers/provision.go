package handlers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/imamik/hstack/internal/cluster"
	"github.com/imamik/hstack/internal/metrics"
	"github.com/imamik/hstack/internal/platform/hcloud"
	"github.com/imamik/hstack/internal/provisioning/pool"
	"github.com/imamik/hstack/internal/store"
)

// ProvisionOptions holds the inputs of the provision command.
type ProvisionOptions struct {
	TopologyPath string
	ConfigPath   string
	UserData     string

	// Simulate creates no servers. Instances get random ids after the
	// configured delay.
	Simulate bool

	MetricsTextfile string
}

// Provision creates the instances of a topology directly through the
// bounded pool, bypassing the stack engine. Node group definitions are
// stored as node templates first.
func Provision(ctx context.Context, opts ProvisionOptions) error {
	log := logr.FromContextOrDiscard(ctx)

	cfg, topo, err := loadInputs(opts.ConfigPath, opts.TopologyPath)
	if err != nil {
		return err
	}
	userData, err := userDataProvider(opts.UserData, topo, nil)
	if err != nil {
		return err
	}

	var creator pool.InstanceCreator
	if opts.Simulate {
		creator = pool.SimulatedCreator{Delay: cfg.SimulateDelay}
	} else {
		if err := requireToken(cfg); err != nil {
			return err
		}
		var keys []string
		if topo.KeyPair != "" {
			keys = append(keys, topo.KeyPair)
		}
		creator = hcloud.NewCompute(newInfraClient(cfg.HCloudToken),
			hcloud.WithDefaultLocation(cfg.Location),
			hcloud.WithSSHKeys(keys...),
		)
	}

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	counts, err := storeNodeTemplates(ctx, st, topo, userData)
	if err != nil {
		return err
	}

	m := metrics.New()
	p := pool.NewProvisioner(pool.NewPool(cfg.PoolSize, pool.WithPoolMetrics(m)), st, creator, st, pool.WithMetrics(m))

	records, runErr := p.ProvisionCluster(ctx, topo.Name, counts)

	if opts.MetricsTextfile != "" {
		if err := m.WriteTextfile(opts.MetricsTextfile); err != nil {
			log.Error(err, "failed to write metrics", "path", opts.MetricsTextfile)
		}
	}
	if runErr != nil {
		return runErr
	}

	printProvisionResult(records)
	return nil
}

// storeNodeTemplates upserts one node template per node group and returns
// the matching instance counts.
func storeNodeTemplates(ctx context.Context, st *store.Store, topo *cluster.Topology, userData cluster.UserDataProvider) ([]pool.NodeCount, error) {
	counts := make([]pool.NodeCount, 0, len(topo.NodeGroups))
	for _, ng := range topo.NodeGroups {
		ud, err := userData.Generate(ng, ng.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to generate user data for %s: %w", ng.Name, err)
		}
		tmpl := pool.NodeTemplate{
			ID:        uuid.NewString(),
			ClusterID: topo.Name,
			Name:      ng.Name,
			Flavor:    ng.Flavor,
			Image:     ng.ImageID(topo.Image),
			Location:  ng.Location,
			UserData:  ud,
		}
		if err := st.UpsertTemplate(ctx, tmpl); err != nil {
			return nil, err
		}
		counts = append(counts, pool.NodeCount{Template: ng.Name, Count: ng.Count})
	}
	return counts, nil
}

func printProvisionResult(records []pool.NodeRecord) {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b pool.NodeRecord) int {
		return strings.Compare(a.Name, b.Name)
	})

	rows := make([][]string, 0, len(sorted))
	for _, r := range sorted {
		rows = append(rows, []string{r.Name, r.TemplateID, r.InstanceID, orMissing(r.Address)})
	}
	fmt.Fprint(stdout, renderTable("Provisioned instances", []string{"NAME", "TEMPLATE", "ID", "ADDRESS"}, rows))
}
