// Package handlers implements the business logic of the hstack commands.
//
// Constructors of external collaborators are package-level variables so
// tests can swap in fakes.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"

	"github.com/imamik/hstack/internal/cluster"
	"github.com/imamik/hstack/internal/config"
	"github.com/imamik/hstack/internal/metrics"
	"github.com/imamik/hstack/internal/network"
	"github.com/imamik/hstack/internal/platform/hcloud"
	"github.com/imamik/hstack/internal/platform/s3"
	"github.com/imamik/hstack/internal/provisioning"
	"github.com/imamik/hstack/internal/stack"
	"github.com/imamik/hstack/internal/store"
	"github.com/imamik/hstack/internal/ui/tui"
	"github.com/imamik/hstack/internal/util/keygen"
	"github.com/imamik/hstack/internal/util/labels"
)

// Factory variables for testing - can be overridden in tests.
var (
	loadConfigFile = config.LoadFile
	loadTopology   = cluster.LoadTopology

	newInfraClient = func(token string) hcloud.InfrastructureManager {
		return hcloud.NewRealClient(token)
	}

	openStore = store.Open

	newObjectStore = func(ctx context.Context, a config.ArchiveConfig) (s3.ObjectStore, error) {
		return s3.NewClient(ctx, a.Endpoint, a.Region, a.AccessKey, a.SecretKey)
	}

	generateKeyPair = keygen.GenerateRSAKeyPair

	confirm       = confirmUpdate
	isInteractive = stdinIsTerminal

	runApplyView = func(ctx context.Context, fn tui.ApplyFunc, stackName, location string, phases []string) error {
		return tui.RunApply(ctx, fn, stackName, location, phases)
	}
	useApplyView = stdoutIsTerminal

	stdout io.Writer = os.Stdout
)

// ApplyOptions holds the inputs of the apply command.
type ApplyOptions struct {
	TopologyPath string
	ConfigPath   string
	UserData     string

	// Update converges an existing stack instead of creating one.
	Update bool
	// Yes skips the update confirmation.
	Yes bool

	// PublicKeyPath uploads an existing public key as the topology key pair.
	PublicKeyPath string
	// GenerateKey creates a new RSA key pair, saves it to KeyOutputDir and
	// uploads the public half.
	GenerateKey  bool
	KeyOutputDir string

	MetricsTextfile string

	// Plain logs progress instead of rendering the live view on a terminal.
	Plain bool
}

// Apply synthesizes the stack template of a topology, submits it and waits
// until every instance has both addresses.
func Apply(ctx context.Context, opts ApplyOptions) error {
	log := logr.FromContextOrDiscard(ctx)

	cfg, topo, err := loadInputs(opts.ConfigPath, opts.TopologyPath)
	if err != nil {
		return err
	}
	if err := requireToken(cfg); err != nil {
		return err
	}
	stackName := topo.Name

	if opts.Update && !opts.Yes {
		if err := confirm(stackName); err != nil {
			return err
		}
	}

	client := newInfraClient(cfg.HCloudToken)

	authorizedKeys, err := uploadKeyPair(ctx, client, topo, opts)
	if err != nil {
		return err
	}
	userData, err := userDataProvider(opts.UserData, topo, authorizedKeys)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	m := metrics.New()

	engine := hcloud.NewStackEngine(client,
		hcloud.WithEngineLocation(cfg.Location),
		hcloud.WithNetworkRange(cfg.Network.IPv4CIDR, cfg.Network.Zone),
		hcloud.WithParallelism(cfg.PoolSize),
		hcloud.WithEngineMetrics(m),
	)
	defer engine.Wait()

	controller := stack.NewController(engine,
		stack.WithPollInterval(cfg.Stack.PollInterval),
		stack.WithTimeoutMinutes(cfg.Stack.TimeoutMinutes),
		stack.WithRollback(cfg.Stack.Rollback),
		stack.WithMetrics(m),
	)

	resolverOpts := []network.Option{
		network.WithFloatingIPs(cfg.UseFloatingIPs),
		network.WithMetrics(m),
	}
	if cfg.UseNetworkBackend {
		resolverOpts = append(resolverOpts, network.WithNetworkBackend(hcloud.NewNetworking(client)))
	}
	resolver := network.NewResolver(hcloud.NewCompute(client, hcloud.WithDefaultLocation(cfg.Location)), st, resolverOpts...)

	phases := []provisioning.Phase{
		provisioning.NewValidationPhase(),
		&provisioning.TemplatePhase{UserData: userData},
	}
	if cfg.Archive.Enabled() {
		archive, err := openArchive(ctx, cfg.Archive)
		if err != nil {
			return err
		}
		phases = append(phases, &provisioning.ArchivePhase{Archive: archive})
	}
	phases = append(phases,
		&provisioning.StackPhase{Controller: controller, Update: opts.Update},
		&provisioning.InstancesPhase{Controller: controller, Recorder: st},
		&provisioning.AddressesPhase{Resolver: resolver},
	)

	pipeline := provisioning.NewPipeline(phases...)
	pctx := provisioning.NewContext(ctx, cfg, topo)
	log.Info("applying stack", "stack", stackName, "instances", topo.InstanceCount(), "update", opts.Update)

	var runErr error
	if !opts.Plain && useApplyView() {
		runErr = runApplyView(ctx, func(viewCtx context.Context, obs provisioning.Observer) error {
			// The view owns the terminal while it runs.
			pctx.Context = logr.NewContext(viewCtx, logr.Discard())
			pctx.Observer = obs
			return pipeline.Run(pctx)
		}, stackName, cfg.Location, phaseNames(phases))
	} else {
		runErr = pipeline.Run(pctx)
	}

	if opts.MetricsTextfile != "" {
		if err := m.WriteTextfile(opts.MetricsTextfile); err != nil {
			log.Error(err, "failed to write metrics", "path", opts.MetricsTextfile)
		}
	}
	if runErr != nil {
		return runErr
	}

	printApplyResult(stdout, pctx.State)
	return nil
}

func phaseNames(phases []provisioning.Phase) []string {
	names := make([]string, 0, len(phases))
	for _, p := range phases {
		names = append(names, p.Name())
	}
	return names
}

func openArchive(ctx context.Context, a config.ArchiveConfig) (*s3.Archive, error) {
	objects, err := newObjectStore(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive client: %w", err)
	}
	archive := s3.NewArchive(objects, a.Bucket)
	if err := archive.Prepare(ctx); err != nil {
		return nil, err
	}
	return archive, nil
}

// uploadKeyPair registers the topology key pair and returns the public keys
// to authorize in user data. Nothing happens without a key source.
func uploadKeyPair(ctx context.Context, client hcloud.SSHKeyManager, topo *cluster.Topology, opts ApplyOptions) ([]string, error) {
	if opts.PublicKeyPath == "" && !opts.GenerateKey {
		return nil, nil
	}
	if opts.PublicKeyPath != "" && opts.GenerateKey {
		return nil, fmt.Errorf("--public-key and --generate-key are mutually exclusive")
	}
	if topo.KeyPair == "" {
		return nil, fmt.Errorf("topology %s has no key_pair to upload a key for", topo.Name)
	}

	var publicKey []byte
	if opts.GenerateKey {
		kp, err := generateKeyPair(keygen.DefaultBits)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(opts.KeyOutputDir, topo.KeyPair)
		if err := kp.Save(path); err != nil {
			return nil, err
		}
		logr.FromContextOrDiscard(ctx).Info("generated ssh key pair", "path", path, "fingerprint", kp.Fingerprint)
		publicKey = kp.PublicKey
	} else {
		// #nosec G304
		data, err := os.ReadFile(opts.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key: %w", err)
		}
		publicKey = data
	}

	key, err := client.EnsureSSHKey(ctx, topo.KeyPair, string(publicKey),
		labels.NewLabelBuilder(topo.Name).WithStack(topo.Name).Build())
	if err != nil {
		return nil, fmt.Errorf("failed to upload ssh key %s: %w", topo.KeyPair, err)
	}
	return []string{strings.TrimSpace(key.PublicKey)}, nil
}

func printApplyResult(w io.Writer, state *provisioning.State) {
	rows := make([][]string, 0, len(state.Nodes))
	for _, n := range state.Nodes {
		rows = append(rows, []string{n.Name, n.NodeGroup, n.ID, orMissing(n.InternalIP), orMissing(n.ManagementIP)})
	}
	fmt.Fprint(w, renderTable("Instances", []string{"NAME", "GROUP", "ID", "INTERNAL", "MANAGEMENT"}, rows))

	pairs := []string{}
	if state.Stack != nil {
		pairs = append(pairs, "Stack", fmt.Sprintf("%s (%s)", state.Stack.Stack.Name, state.Stack.Stack.ID))
	}
	pairs = append(pairs, "Archived", state.ArchiveKey)
	printSummary(w, pairs...)
}
