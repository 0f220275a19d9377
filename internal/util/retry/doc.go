// Package retry provides exponential backoff retry logic for transient failures.
//
// The [Do] function retries an operation with configurable max attempts,
// initial delay, and maximum delay. It wraps every Hetzner Cloud call the
// stack engine makes, so that locked resources and rate limits do not fail
// a whole stack convergence.
package retry
