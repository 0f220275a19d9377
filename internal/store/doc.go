// Package store persists node templates and instance records in SQLite.
//
// It backs the provisioning pool (template lookup and node records) and the
// address resolver (instance address updates).
package store
