package template

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-logr/logr"

	"github.com/imamik/hstack/internal/cluster"
	"github.com/imamik/hstack/internal/util/naming"
)

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithNetworkBackend enables port-level networking: every instance gets a
// port, security groups are set on ports too, and floating IP pools are
// allowed.
func WithNetworkBackend(enabled bool) Option {
	return func(s *Synthesizer) {
		s.networkBackend = enabled
	}
}

// WithSupportedKinds restricts the fragment kinds the backend understands.
func WithSupportedKinds(kinds ...Kind) Option {
	return func(s *Synthesizer) {
		s.supported = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			s.supported[k] = true
		}
	}
}

type nodeGroupExtra struct {
	count    int
	userData cluster.UserDataProvider
}

// Synthesizer builds a Template from a topology.
type Synthesizer struct {
	topology       *cluster.Topology
	networkBackend bool
	supported      map[Kind]bool
	extras         map[string]nodeGroupExtra
}

// NewSynthesizer creates a synthesizer for the given topology.
func NewSynthesizer(topology *cluster.Topology, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		topology: topology,
		extras:   make(map[string]nodeGroupExtra),
	}
	WithSupportedKinds(AllKinds()...)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddNodeGroup registers the instance count and user data provider of a node
// group. Every node group of the topology must be registered before
// Synthesize.
func (s *Synthesizer) AddNodeGroup(name string, count int, provider cluster.UserDataProvider) {
	s.extras[name] = nodeGroupExtra{count: count, userData: provider}
}

// AddNodeGroups registers every node group of the topology with its declared
// count and the same provider.
func (s *Synthesizer) AddNodeGroups(provider cluster.UserDataProvider) {
	for _, ng := range s.topology.NodeGroups {
		s.AddNodeGroup(ng.Name, ng.Count, provider)
	}
}

// synthesis holds the state of one Synthesize call.
type synthesis struct {
	*Synthesizer
	fragments []Fragment
	groups    *orderedmap.OrderedMap[string, []string]
}

// Synthesize emits the fragments of every registered node group.
//
// Per instance the order is: port, floating address, instance, then each
// volume followed by its attachment.
func (s *Synthesizer) Synthesize(ctx context.Context) (*Template, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("cluster", s.topology.Name)

	run := &synthesis{
		Synthesizer: s,
		groups:      orderedmap.NewOrderedMap[string, []string](),
	}
	tmpl := &Template{
		cluster: s.topology.Name,
		counts:  make(map[string]int, len(s.topology.NodeGroups)),
	}

	for _, ng := range s.topology.NodeGroups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		extra, ok := s.extras[ng.Name]
		if !ok {
			return nil, &ConfigurationError{NodeGroup: ng.Name, Reason: "node group was not registered for synthesis"}
		}
		if extra.count < 0 {
			return nil, &ConfigurationError{NodeGroup: ng.Name, Reason: fmt.Sprintf("count must be >= 0, got %d", extra.count)}
		}
		if err := s.checkKinds(ng); err != nil {
			return nil, err
		}

		for idx := range extra.count {
			if err := run.instance(ng, idx, extra.userData); err != nil {
				return nil, err
			}
		}
		tmpl.nodeGroups = append(tmpl.nodeGroups, ng.Name)
		tmpl.counts[ng.Name] = extra.count
		log.V(1).Info("synthesized node group", "nodeGroup", ng.Name, "count", extra.count)
	}

	tmpl.fragments = run.fragments
	for el := run.groups.Front(); el != nil; el = el.Next() {
		tmpl.groups = append(tmpl.groups, AntiAffinityGroup{Process: el.Key, Instances: el.Value})
	}
	return tmpl, nil
}

// checkKinds verifies that every fragment kind the node group needs is
// supported by the backend.
func (s *Synthesizer) checkKinds(ng cluster.NodeGroup) error {
	required := []Kind{KindInstance}
	if ng.FloatingIPPool != "" && !s.networkBackend {
		return &ConfigurationError{NodeGroup: ng.Name, Reason: "floating IP pool requires the network backend"}
	}
	if s.networkBackend {
		required = append(required, KindPort)
		if ng.FloatingIPPool != "" {
			required = append(required, KindFloatingAddress)
		}
	}
	if ng.VolumesPerNode > 0 {
		required = append(required, KindVolume, KindVolumeAttachment)
	}

	for _, k := range required {
		if !s.supported[k] {
			return &ConfigurationError{NodeGroup: ng.Name, Reason: fmt.Sprintf("fragment kind %s is not supported by the backend", k)}
		}
	}
	return nil
}

func (run *synthesis) instance(ng cluster.NodeGroup, idx int, provider cluster.UserDataProvider) error {
	name := naming.Instance(run.topology.Name, ng.Name, idx)

	inst := &Instance{
		Name:      name,
		Cluster:   run.topology.Name,
		NodeGroup: ng.Name,
		Flavor:    ng.Flavor,
		Image:     ng.ImageID(run.topology.Image),
		Location:  ng.Location,
		KeyName:   run.topology.KeyPair,
	}

	if run.networkBackend {
		port := &Port{
			Name:           naming.Port(name),
			Network:        run.topology.ManagementNetwork,
			SecurityGroups: slices.Clone(ng.SecurityGroups),
		}
		run.fragments = append(run.fragments, port)
		inst.Port = port.Name

		if ng.FloatingIPPool != "" {
			run.fragments = append(run.fragments, &FloatingAddress{
				Name: naming.FloatingIP(name),
				Pool: ng.FloatingIPPool,
				Port: port.Name,
			})
		}
	}
	inst.SecurityGroups = slices.Clone(ng.SecurityGroups)

	// Peers come from groups filled by earlier instances only.
	inst.DifferentHost = run.peers(ng)

	if provider != nil {
		text, err := provider.Generate(ng, name)
		if err != nil {
			return fmt.Errorf("failed to generate user data for %s: %w", name, err)
		}
		inst.UserData = userDataLines(text)
	}

	for _, process := range ng.Processes {
		if run.topology.IsAntiAffine(process) {
			members, _ := run.groups.Get(process)
			run.groups.Set(process, append(members, name))
		}
	}

	run.fragments = append(run.fragments, inst)

	for v := range ng.VolumesPerNode {
		volume := &Volume{
			Name:     naming.Volume(name, v),
			SizeGB:   ng.VolumeSize,
			Location: ng.Location,
		}
		run.fragments = append(run.fragments, volume, &VolumeAttachment{
			Name:     naming.VolumeAttachment(name, v),
			Volume:   volume.Name,
			Instance: name,
		})
	}
	return nil
}

// peers returns the deduplicated members of every group of the node group's
// processes, in first-seen order.
func (run *synthesis) peers(ng cluster.NodeGroup) []string {
	var peers []string
	seen := make(map[string]struct{})
	for _, process := range ng.Processes {
		members, _ := run.groups.Get(process)
		for _, m := range members {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			peers = append(peers, m)
		}
	}
	return peers
}

// userDataLines normalizes line endings and splits user data into lines.
func userDataLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
