package template

import (
	"slices"

	"github.com/imamik/hstack/internal/util/naming"
)

// AntiAffinityGroup lists the instances running one anti-affine process, in
// synthesis order.
type AntiAffinityGroup struct {
	Process   string
	Instances []string
}

// Template is the immutable result of a synthesis pass.
type Template struct {
	cluster    string
	fragments  []Fragment
	nodeGroups []string
	counts     map[string]int
	groups     []AntiAffinityGroup
}

// Cluster returns the cluster (and stack) name.
func (t *Template) Cluster() string { return t.cluster }

// Fragments returns the fragments in emission order.
func (t *Template) Fragments() []Fragment {
	return slices.Clone(t.fragments)
}

// NodeGroups returns the node group names in emission order.
func (t *Template) NodeGroups() []string {
	return slices.Clone(t.nodeGroups)
}

// NodeCount returns the instance count synthesized for a node group.
func (t *Template) NodeCount(nodeGroup string) (int, bool) {
	n, ok := t.counts[nodeGroup]
	return n, ok
}

// InstanceNames returns the instance names of a node group in index order.
func (t *Template) InstanceNames(nodeGroup string) []string {
	n := t.counts[nodeGroup]
	names := make([]string, 0, n)
	for i := range n {
		names = append(names, naming.Instance(t.cluster, nodeGroup, i))
	}
	return names
}

// AntiAffinityGroups returns the anti-affinity grouping in insertion order.
func (t *Template) AntiAffinityGroups() []AntiAffinityGroup {
	out := make([]AntiAffinityGroup, len(t.groups))
	for i, g := range t.groups {
		out[i] = AntiAffinityGroup{Process: g.Process, Instances: slices.Clone(g.Instances)}
	}
	return out
}

// Parameters returns the template parameters. All variability is embedded at
// synthesis time, so this is always empty.
func (t *Template) Parameters() map[string]any {
	return map[string]any{}
}

// Fragment looks up a fragment by logical name.
func (t *Template) Fragment(name string) (Fragment, bool) {
	for _, f := range t.fragments {
		if f.ResourceName() == name {
			return f, true
		}
	}
	return nil, false
}
