package hcloud

import (
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/hstack/internal/config"
)

// ApplicationName is reported to the Hetzner API in the user agent.
const ApplicationName = "hstack"

// RealClient implements InfrastructureManager using the Hetzner Cloud API.
type RealClient struct {
	client   *hcloud.Client
	timeouts *config.Timeouts
}

var _ InfrastructureManager = (*RealClient)(nil)

type clientOptions struct {
	timeouts *config.Timeouts
	version  string
	hcloud   []hcloud.ClientOption
}

// ClientOption configures a RealClient.
type ClientOption func(*clientOptions)

// WithTimeouts overrides the timeouts read from the environment.
func WithTimeouts(t *config.Timeouts) ClientOption {
	return func(o *clientOptions) {
		o.timeouts = t
	}
}

// WithEndpoint points the client at another API endpoint.
func WithEndpoint(url string) ClientOption {
	return func(o *clientOptions) {
		o.hcloud = append(o.hcloud, hcloud.WithEndpoint(url))
	}
}

// WithPollInterval sets how often running actions are polled.
func WithPollInterval(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.hcloud = append(o.hcloud, hcloud.WithPollOpts(hcloud.PollOpts{
			BackoffFunc: hcloud.ConstantBackoff(d),
		}))
	}
}

// WithVersion sets the version reported next to ApplicationName.
func WithVersion(v string) ClientOption {
	return func(o *clientOptions) {
		o.version = v
	}
}

// NewRealClient creates a client authenticated with token.
func NewRealClient(token string, opts ...ClientOption) *RealClient {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.timeouts == nil {
		o.timeouts = config.LoadTimeouts()
	}

	hopts := append([]hcloud.ClientOption{
		hcloud.WithToken(token),
		hcloud.WithApplication(ApplicationName, o.version),
	}, o.hcloud...)

	return &RealClient{
		client:   hcloud.NewClient(hopts...),
		timeouts: o.timeouts,
	}
}
