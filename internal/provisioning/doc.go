// Package provisioning runs the stack path of a cluster deployment as a
// sequence of phases.
//
// # Phases
//
//   - validation: pre-flight checks of configuration and topology
//   - template: synthesizes and renders the stack template
//   - archive: stores the rendered template in object storage (optional)
//   - stack: submits or updates the stack and waits until it is active
//   - instances: resolves instance ids and persists instance records
//   - addresses: polls and persists instance addresses
//
// # Core Types
//
// Context carries configuration, topology, state, and the observer.
// Phase defines a provisioning step with Name() and Provision() methods.
// State accumulates results from each phase.
//
// The direct compute path lives in the pool subpackage.
package provisioning
