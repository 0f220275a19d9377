// Package pool implements the direct compute provisioning path.
//
// Instead of submitting a template to an orchestration backend, a
// [Provisioner] creates every instance of a cluster through an
// [InstanceCreator], running the creations concurrently on a bounded
// [Pool]. Results are collected in completion order and persisted in a
// single batch once every creation has finished. When any creation fails,
// the remaining work is cancelled and nothing is persisted.
//
// The pool is an explicit object: callers that want a process-wide limit
// share one *Pool across provisioning calls.
package pool
