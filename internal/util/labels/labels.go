// Package labels provides consistent labeling utilities for Hetzner Cloud resources.
//
// Every resource created for a stack carries the cluster and stack labels, which
// lets the stack engine find, update and prune the resources it owns.
package labels

import "sort"

// Standard label keys for Hetzner Cloud resources.
const (
	// KeyCluster identifies which cluster a resource belongs to
	KeyCluster = "hstack.io/cluster"

	// KeyStack identifies the owning stack by name
	KeyStack = "hstack.io/stack"

	// KeyNodeGroup identifies the node group of an instance or its dependents
	KeyNodeGroup = "hstack.io/node-group"

	// KeyResource is the logical resource name inside the stack template
	KeyResource = "hstack.io/resource"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "hstack.io/managed-by"
)

// ManagedBy values
const (
	ManagedByStackEngine = "hstack-engine"
	ManagedByPool        = "hstack-pool"
)

// LabelBuilder provides a fluent interface for building Hetzner Cloud resource labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new label builder with the cluster name pre-set.
func NewLabelBuilder(clusterName string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyCluster:   clusterName,
			KeyManagedBy: ManagedByStackEngine,
		},
	}
}

// WithStack adds the owning stack name.
func (lb *LabelBuilder) WithStack(stackName string) *LabelBuilder {
	lb.labels[KeyStack] = stackName
	return lb
}

// WithNodeGroup adds a node group label. Empty names are skipped.
func (lb *LabelBuilder) WithNodeGroup(nodeGroup string) *LabelBuilder {
	if nodeGroup != "" {
		lb.labels[KeyNodeGroup] = nodeGroup
	}
	return lb
}

// WithResource adds the logical resource name.
func (lb *LabelBuilder) WithResource(name string) *LabelBuilder {
	lb.labels[KeyResource] = name
	return lb
}

// WithManagedBy sets who manages this resource.
func (lb *LabelBuilder) WithManagedBy(manager string) *LabelBuilder {
	lb.labels[KeyManagedBy] = manager
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// SelectorForStack returns a label selector string for all resources of a stack.
func SelectorForStack(stackName string) string {
	return KeyStack + "=" + stackName
}

// Selector builds a deterministic label selector from a label map.
func Selector(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	selector := ""
	for i, k := range keys {
		if i > 0 {
			selector += ","
		}
		selector += k + "=" + labels[k]
	}
	return selector
}
