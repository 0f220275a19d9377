// Package async provides utilities for parallel task execution with
// error collection.
//
// The [RunParallel] function executes multiple operations concurrently,
// optionally bounded, and returns all errors joined. The stack engine uses it
// to create the instances of a stack side by side.
package async
