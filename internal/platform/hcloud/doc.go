// Package hcloud implements hstack's backends on the Hetzner Cloud API.
//
// # Architecture
//
//   - client.go, real_client.go: the InfrastructureManager interface and its
//     implementation over hcloud-go, with timeouts and retries
//   - operations.go: generic Ensure and Delete operations shared by all resources
//   - server.go, floating_ip.go, volume.go, placement_group.go, network.go,
//     firewall.go, ssh_key.go: per-resource calls
//   - compute.go: the compute backend used by the address resolver and the
//     provisioning pool
//   - networking.go: the network backend (private network attachments as ports)
//   - engine.go, converge.go: StackEngine, an in-process orchestration backend that
//     converges a rendered template into Hetzner resources
//   - errors.go: error classification for retry logic
//
// # Generic Operations
//
// DeleteOperation provides idempotent deletion: missing resources count as
// deleted and locked resources are retried with exponential backoff.
// EnsureOperation provides get-or-create with optional validation and update.
//
// # Stack engine
//
// Hetzner Cloud has no orchestration service. StackEngine keeps a registry of
// stacks, converges each one in its own goroutine and labels every resource it
// creates with the cluster, stack and logical resource name. Anti-affinity
// hints become spread placement groups. Security groups map to existing
// firewalls of the same name.
package hcloud
