package cluster

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/imamik/hstack/internal/util/naming"
)

// Validate checks the topology invariants.
//
// Cluster and node group names must be DNS-1123 labels, and the derived
// instance names must still fit into a hostname.
func (t *Topology) Validate() error {
	var errs []error

	if t.Name == "" {
		errs = append(errs, errors.New("cluster name is required"))
	} else if msgs := validation.IsDNS1123Label(t.Name); len(msgs) > 0 {
		errs = append(errs, fmt.Errorf("invalid cluster name %q: %s", t.Name, strings.Join(msgs, "; ")))
	}

	seen := make(map[string]struct{}, len(t.NodeGroups))
	for i, ng := range t.NodeGroups {
		if err := t.validateNodeGroup(ng); err != nil {
			errs = append(errs, fmt.Errorf("node_groups[%d]: %w", i, err))
		}
		if _, dup := seen[ng.Name]; dup {
			errs = append(errs, fmt.Errorf("node_groups[%d]: duplicate node group name %q", i, ng.Name))
		}
		seen[ng.Name] = struct{}{}
	}

	return errors.Join(errs...)
}

func (t *Topology) validateNodeGroup(ng NodeGroup) error {
	if ng.Name == "" {
		return errors.New("name is required")
	}
	if msgs := validation.IsDNS1123Label(ng.Name); len(msgs) > 0 {
		return fmt.Errorf("invalid name %q: %s", ng.Name, strings.Join(msgs, "; "))
	}
	if t.Name != "" {
		longest := naming.Instance(t.Name, ng.Name, max(ng.Count-1, 0))
		if len(longest) > validation.DNS1123LabelMaxLength {
			return fmt.Errorf("instance name %q exceeds %d characters", longest, validation.DNS1123LabelMaxLength)
		}
	}
	if ng.Count < 0 {
		return fmt.Errorf("count must be >= 0, got %d", ng.Count)
	}
	if ng.Flavor == "" {
		return errors.New("flavor is required")
	}
	if ng.ImageID(t.Image) == "" {
		return errors.New("image is required (set it on the node group or the cluster)")
	}
	if ng.VolumesPerNode < 0 {
		return fmt.Errorf("volumes_per_node must be >= 0, got %d", ng.VolumesPerNode)
	}
	if ng.VolumesPerNode > 0 && ng.VolumeSize <= 0 {
		return errors.New("volume_size must be > 0 when volumes_per_node is set")
	}
	return nil
}
