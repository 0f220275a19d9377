package provisioning

import (
	"fmt"
	"net"
	"strings"
)

// Validation severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a configuration validation error or warning.
type ValidationError struct {
	Field    string // Configuration or topology field that failed validation
	Message  string // Human-readable error message
	Severity string // SeverityError or SeverityWarning
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ve.Severity, ve.Field, ve.Message)
}

// IsError returns true if this is an error (not a warning).
func (ve ValidationError) IsError() bool {
	return ve.Severity == SeverityError
}

// ValidationPhase implements the Phase interface for pre-flight validation.
type ValidationPhase struct{}

// NewValidationPhase creates a new validation phase.
func NewValidationPhase() *ValidationPhase {
	return &ValidationPhase{}
}

// Name implements the Phase interface.
func (vp *ValidationPhase) Name() string {
	return "validation"
}

// Provision implements the Phase interface.
func (vp *ValidationPhase) Provision(ctx *Context) error {
	var errs []string
	for _, ve := range validate(ctx) {
		if ve.IsError() {
			errs = append(errs, ve.Error())
			continue
		}
		ctx.Observer.Event(Event{
			Type:    EventValidationWarning,
			Phase:   vp.Name(),
			Message: ve.Message,
			Fields:  map[string]string{"field": ve.Field},
		})
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// validate runs all validation checks and returns any errors or warnings.
func validate(ctx *Context) []ValidationError {
	var errs []ValidationError
	add := func(field, severity, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Severity: severity})
	}

	cfg := ctx.Config
	if cfg == nil {
		add("config", SeverityError, "configuration is required")
		return errs
	}
	if err := cfg.Validate(); err != nil {
		add("config", SeverityError, "%v", err)
	}

	// --- Network ---

	if cfg.UseNetworkBackend {
		_, ipNet, err := net.ParseCIDR(cfg.Network.IPv4CIDR)
		switch {
		case err != nil:
			add("network.ipv4_cidr", SeverityError, "invalid IPv4 CIDR: %v", err)
		case ipNet.IP.To4() == nil:
			add("network.ipv4_cidr", SeverityError, "only IPv4 CIDRs are supported")
		default:
			if ones, _ := ipNet.Mask.Size(); ones > 16 {
				add("network.ipv4_cidr", SeverityWarning, "CIDR prefix /%d is small, recommended /16 or larger", ones)
			}
		}
	}

	// --- Topology ---

	topo := ctx.Topology
	if topo == nil {
		add("topology", SeverityError, "topology is required")
		return errs
	}
	if err := topo.Validate(); err != nil {
		add("topology", SeverityError, "%v", err)
	}

	if cfg.UseNetworkBackend && topo.ManagementNetwork == "" {
		add("management_network", SeverityError, "a management network is required when the network backend is enabled")
	}
	for i, ng := range topo.NodeGroups {
		field := fmt.Sprintf("node_groups[%d]", i)
		if ng.FloatingIPPool != "" && !cfg.UseNetworkBackend {
			add(field+".floating_ip_pool", SeverityError, "floating IP pools require use_network_backend")
		}
		if ng.FloatingIPPool == "" && cfg.UseFloatingIPs && cfg.UseNetworkBackend {
			add(field+".floating_ip_pool", SeverityWarning,
				"node group %s has no floating IP pool; management addresses fall back to public IPv4", ng.Name)
		}
		if ng.VolumesPerNode > 0 && ng.VolumeSize < 10 {
			add(field+".volume_size", SeverityError, "volumes must be at least 10 GB, got %d", ng.VolumeSize)
		}
	}

	if topo.KeyPair == "" {
		add("key_pair", SeverityWarning, "no key pair set, instances will not be reachable over SSH")
	}

	return errs
}
