// Package network resolves the addresses of created instances.
//
// [Resolver.InitInstanceIPs] determines an instance's internal address
// (intra-cluster traffic) and management address (operator access) from the
// compute backend's address listing, falling back to the network backend's
// ports and floating address records. The outcome is always persisted. A
// pass that leaves either address empty is not an error: callers poll, for
// example with [Resolver.AwaitAddresses].
package network
