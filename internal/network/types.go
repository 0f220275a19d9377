package network

import "context"

// AddressTypeFixed marks a private address.
const AddressTypeFixed = "fixed"

// AddressTypeFloating marks a publicly routable address.
const AddressTypeFloating = "floating"

// Address is one address of an instance interface. Type is empty when the
// backend does not classify addresses.
type Address struct {
	Addr string
	Type string
}

// NetworkAddresses lists the addresses an instance has on one network.
type NetworkAddresses struct {
	Label     string
	Addresses []Address
}

// InstanceInfo is the compute backend's view of an instance. Networks keep
// the backend's order.
type InstanceInfo struct {
	ID       string
	Name     string
	Networks []NetworkAddresses
}

// FloatingAddress is a floating address record.
type FloatingAddress struct {
	ID         string
	FloatingIP string
	FixedIP    string
	PortID     string
	InstanceID string
	Pool       string
}

// Network is a network known to the network backend.
type Network struct {
	ID      string
	Name    string
	IPRange string
}

// Port is a network port owned by a device.
type Port struct {
	ID        string
	DeviceID  string
	NetworkID string
	FixedIPs  []string
}

// ResolvedAddress is the outcome of address resolution.
type ResolvedAddress struct {
	InternalIP   string
	ManagementIP string
}

// Resolved reports whether both addresses are known.
func (a ResolvedAddress) Resolved() bool {
	return a.InternalIP != "" && a.ManagementIP != ""
}

// ComputeBackend exposes instances and their floating addresses.
type ComputeBackend interface {
	GetInstance(ctx context.Context, instanceID string) (*InstanceInfo, error)
	CreateFloatingAddress(ctx context.Context, pool string) (*FloatingAddress, error)
	AttachFloatingAddress(ctx context.Context, instanceID, floatingID string) error
	ListFloatingAddresses(ctx context.Context, instanceID string) ([]FloatingAddress, error)
	DeleteFloatingAddress(ctx context.Context, floatingID string) error
}

// NetworkBackend exposes networks, ports and floating address records.
type NetworkBackend interface {
	ListNetworks(ctx context.Context) ([]Network, error)
	ListPortsByDevice(ctx context.Context, deviceID string) ([]Port, error)
	ListFloatingAddressesByPort(ctx context.Context, portID string) ([]FloatingAddress, error)
}

// AddressRecorder persists resolved addresses.
type AddressRecorder interface {
	UpdateInstanceAddresses(ctx context.Context, instanceID, internalIP, managementIP string) error
}
