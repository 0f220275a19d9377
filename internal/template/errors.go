package template

import "fmt"

// ConfigurationError reports a contradiction between the topology and the
// synthesizer configuration. It is not retryable.
type ConfigurationError struct {
	NodeGroup string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.NodeGroup == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: node group %q: %s", e.NodeGroup, e.Reason)
}
