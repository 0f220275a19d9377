// Package labels provides consistent labeling for Hetzner Cloud resources.
//
// All labels use the hstack.io domain prefix and follow a builder pattern
// for constructing label sets with cluster, stack, node group and resource
// identification.
package labels
