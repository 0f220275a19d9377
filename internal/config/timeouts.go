package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts bounds the individual Hetzner Cloud calls made by the stack
// engine and the provisioning pool. Stack-level deadlines live in
// StackConfig.
type Timeouts struct {
	ServerCreate      time.Duration
	Delete            time.Duration
	ImageWait         time.Duration
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
}

// Environment variables read by LoadTimeouts.
const (
	EnvTimeoutServerCreate = "HSTACK_TIMEOUT_SERVER_CREATE"
	EnvTimeoutDelete       = "HSTACK_TIMEOUT_DELETE"
	EnvTimeoutImageWait    = "HSTACK_TIMEOUT_IMAGE_WAIT"
	EnvRetryMaxAttempts    = "HSTACK_RETRY_MAX_ATTEMPTS"
	EnvRetryInitialDelay   = "HSTACK_RETRY_INITIAL_DELAY"
)

// DefaultTimeouts returns the timeouts used when no override is set.
func DefaultTimeouts() *Timeouts {
	return &Timeouts{
		ServerCreate:      10 * time.Minute,
		Delete:            5 * time.Minute,
		ImageWait:         5 * time.Minute,
		RetryMaxAttempts:  5,
		RetryInitialDelay: time.Second,
	}
}

// LoadTimeouts starts from DefaultTimeouts and applies the HSTACK_TIMEOUT_*
// and HSTACK_RETRY_* overrides. Unparsable or negative values are ignored.
func LoadTimeouts() *Timeouts {
	t := DefaultTimeouts()
	for env, dst := range map[string]*time.Duration{
		EnvTimeoutServerCreate: &t.ServerCreate,
		EnvTimeoutDelete:       &t.Delete,
		EnvTimeoutImageWait:    &t.ImageWait,
		EnvRetryInitialDelay:   &t.RetryInitialDelay,
	} {
		if d, err := time.ParseDuration(os.Getenv(env)); err == nil && d >= 0 {
			*dst = d
		}
	}
	if n, err := strconv.Atoi(os.Getenv(EnvRetryMaxAttempts)); err == nil && n >= 0 {
		t.RetryMaxAttempts = n
	}
	return t
}

// TestTimeouts returns short timeouts with a single retry, for tests that
// talk to a fake API.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		ServerCreate:      5 * time.Second,
		Delete:            5 * time.Second,
		ImageWait:         5 * time.Second,
		RetryMaxAttempts:  1,
		RetryInitialDelay: time.Millisecond,
	}
}
