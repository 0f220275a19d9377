package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// TokenEnvVar is the environment variable holding the Hetzner Cloud API token.
const TokenEnvVar = "HCLOUD_TOKEN"

// LoadFile reads and parses the configuration from a YAML file.
// An empty path yields the defaults.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}

	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		Result:      &cfg,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(rawConfig); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Address-model flags default to enabled unless explicitly set.
	cfg.UseFloatingIPs = boolOrDefault(rawConfig, "use_floating_ips", cfg.UseFloatingIPs, true)
	cfg.UseNetworkBackend = boolOrDefault(rawConfig, "use_network_backend", cfg.UseNetworkBackend, true)

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.HCloudToken == "" {
		c.HCloudToken = os.Getenv(TokenEnvVar)
	}
}

// boolOrDefault returns decoded when key was present in the raw config and
// def otherwise.
func boolOrDefault(rawConfig map[string]interface{}, key string, decoded, def bool) bool {
	if _, explicitlySet := rawConfig[key]; explicitlySet {
		return decoded
	}
	return def
}
