package config

import (
	"errors"
	"fmt"
	"time"
)

// Default values.
const (
	DefaultPoolSize        = 8
	DefaultLocation        = "nbg1"
	DefaultDatabase        = "hstack.db"
	DefaultStackTimeout    = 180
	DefaultPollInterval    = time.Second
	DefaultAddressTimeout  = 5 * time.Minute
	DefaultAddressInterval = 5 * time.Second
	DefaultSimulateDelay   = 2 * time.Second
	DefaultArchiveRegion   = "us-east-1"
	DefaultNetworkCIDR     = "10.0.0.0/16"
	DefaultNetworkZone     = "eu-central"
)

// Config is the hstack runtime configuration.
type Config struct {
	// UseFloatingIPs controls whether management addresses come from
	// floating addresses. When false the management address mirrors the
	// internal one.
	UseFloatingIPs bool `mapstructure:"use_floating_ips" yaml:"use_floating_ips"`

	// UseNetworkBackend enables port-level networking: ports, port security
	// groups, floating IP pools and the network-backend address fallback.
	UseNetworkBackend bool `mapstructure:"use_network_backend" yaml:"use_network_backend"`

	PoolSize      int           `mapstructure:"pool_size" yaml:"pool_size"`
	Location      string        `mapstructure:"location" yaml:"location"`
	Database      string        `mapstructure:"database" yaml:"database"`
	SimulateDelay time.Duration `mapstructure:"simulate_delay" yaml:"simulate_delay"`

	// HCloudToken is usually taken from HCLOUD_TOKEN.
	HCloudToken string `mapstructure:"hcloud_token" yaml:"hcloud_token"`

	Network   NetworkConfig `mapstructure:"network" yaml:"network"`
	Stack     StackConfig   `mapstructure:"stack" yaml:"stack"`
	Addresses AddressConfig `mapstructure:"addresses" yaml:"addresses"`
	Archive   ArchiveConfig `mapstructure:"archive" yaml:"archive"`
}

// NetworkConfig describes the private network created for management
// networks that do not exist yet.
type NetworkConfig struct {
	IPv4CIDR string `mapstructure:"ipv4_cidr" yaml:"ipv4_cidr"`
	Zone     string `mapstructure:"zone" yaml:"zone"`
}

// StackConfig holds stack submission and polling settings.
type StackConfig struct {
	TimeoutMinutes int           `mapstructure:"timeout_minutes" yaml:"timeout_minutes"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// Rollback deletes the resources of a stack whose creation failed.
	// Disabled by default so failed stacks stay inspectable.
	Rollback bool `mapstructure:"rollback" yaml:"rollback"`
}

// AddressConfig controls caller-side address polling.
type AddressConfig struct {
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// ArchiveConfig points at an S3-compatible bucket that keeps a copy of every
// submitted template. Archiving is off when Bucket is empty.
type ArchiveConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
}

// Enabled reports whether template archiving is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		UseFloatingIPs:    true,
		UseNetworkBackend: true,
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.Location == "" {
		c.Location = DefaultLocation
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.SimulateDelay == 0 {
		c.SimulateDelay = DefaultSimulateDelay
	}
	if c.Network.IPv4CIDR == "" {
		c.Network.IPv4CIDR = DefaultNetworkCIDR
	}
	if c.Network.Zone == "" {
		c.Network.Zone = DefaultNetworkZone
	}
	if c.Stack.TimeoutMinutes == 0 {
		c.Stack.TimeoutMinutes = DefaultStackTimeout
	}
	if c.Stack.PollInterval == 0 {
		c.Stack.PollInterval = DefaultPollInterval
	}
	if c.Addresses.Timeout == 0 {
		c.Addresses.Timeout = DefaultAddressTimeout
	}
	if c.Addresses.Interval == 0 {
		c.Addresses.Interval = DefaultAddressInterval
	}
	if c.Archive.Bucket != "" && c.Archive.Region == "" {
		c.Archive.Region = DefaultArchiveRegion
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	var errs []error
	if c.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("pool_size must be at least 1, got %d", c.PoolSize))
	}
	if c.Stack.TimeoutMinutes < 1 {
		errs = append(errs, fmt.Errorf("stack.timeout_minutes must be positive, got %d", c.Stack.TimeoutMinutes))
	}
	if c.Stack.PollInterval <= 0 {
		errs = append(errs, errors.New("stack.poll_interval must be positive"))
	}
	if c.Addresses.Interval <= 0 || c.Addresses.Timeout < c.Addresses.Interval {
		errs = append(errs, errors.New("addresses.interval must be positive and not exceed addresses.timeout"))
	}
	if c.SimulateDelay < 0 {
		errs = append(errs, errors.New("simulate_delay must not be negative"))
	}
	if c.Archive.Enabled() && c.Archive.Endpoint == "" {
		errs = append(errs, errors.New("archive.endpoint is required when archive.bucket is set"))
	}
	return errors.Join(errs...)
}
