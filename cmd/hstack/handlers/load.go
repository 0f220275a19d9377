package handlers

import (
	"fmt"

	"github.com/imamik/hstack/internal/cluster"
	"github.com/imamik/hstack/internal/config"
)

// User data formats accepted by --user-data.
const (
	UserDataCloudConfig = "cloud-config"
	UserDataScript      = "script"
)

// loadInputs reads the configuration and the topology and validates the
// topology.
func loadInputs(configPath, topologyPath string) (*config.Config, *cluster.Topology, error) {
	cfg, err := loadConfigFile(configPath)
	if err != nil {
		return nil, nil, err
	}
	topo, err := loadTopology(topologyPath)
	if err != nil {
		return nil, nil, err
	}
	if err := topo.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid topology %s: %w", topologyPath, err)
	}
	return cfg, topo, nil
}

// userDataProvider returns the user data profile for format.
func userDataProvider(format string, topo *cluster.Topology, authorizedKeys []string) (cluster.UserDataProvider, error) {
	switch format {
	case "", UserDataCloudConfig:
		return cluster.CloudConfigProfile{ClusterName: topo.Name, SSHAuthorizedKeys: authorizedKeys}, nil
	case UserDataScript:
		return cluster.ScriptProfile{ClusterName: topo.Name}, nil
	default:
		return nil, fmt.Errorf("unknown user data format %q (want %s or %s)", format, UserDataCloudConfig, UserDataScript)
	}
}

func requireToken(cfg *config.Config) error {
	if cfg.HCloudToken == "" {
		return fmt.Errorf("%s is not set", config.TokenEnvVar)
	}
	return nil
}
