package template

import "strings"

// Kind is the orchestration resource type of a fragment.
type Kind string

// Supported fragment kinds.
const (
	KindPort             Kind = "OS::Neutron::Port"
	KindFloatingAddress  Kind = "OS::Neutron::FloatingIP"
	KindInstance         Kind = "OS::Nova::Server"
	KindVolume           Kind = "OS::Cinder::Volume"
	KindVolumeAttachment Kind = "OS::Cinder::VolumeAttachment"
)

// AllKinds returns every fragment kind in emission order.
func AllKinds() []Kind {
	return []Kind{KindPort, KindFloatingAddress, KindInstance, KindVolume, KindVolumeAttachment}
}

// Fragment is one resource of a template. The concrete types are Port,
// FloatingAddress, Instance, Volume and VolumeAttachment.
type Fragment interface {
	// ResourceName is the logical name, unique within a stack.
	ResourceName() string
	Kind() Kind
	// References lists the logical names this fragment depends on.
	References() []string

	fragment()
}

// Port is a network port an instance attaches through.
type Port struct {
	Name           string
	Network        string
	SecurityGroups []string
}

// FloatingAddress is a publicly routable address bound to a port.
type FloatingAddress struct {
	Name string
	Pool string
	Port string
}

// Instance is a virtual machine.
type Instance struct {
	Name      string
	Cluster   string
	NodeGroup string
	Flavor    string
	Image     string
	Location  string
	KeyName   string

	// Port is the logical port name; empty without a network backend.
	Port           string
	SecurityGroups []string

	// UserData holds the normalized user data lines.
	UserData []string

	// DifferentHost lists logical instance names this instance must not
	// share a host with.
	DifferentHost []string
}

// Volume is a block storage volume.
type Volume struct {
	Name     string
	SizeGB   int
	Location string
}

// VolumeAttachment attaches a volume to an instance.
type VolumeAttachment struct {
	Name     string
	Volume   string
	Instance string
}

func (p *Port) ResourceName() string { return p.Name }
func (p *Port) Kind() Kind           { return KindPort }
func (p *Port) References() []string { return nil }
func (*Port) fragment()              {}

func (f *FloatingAddress) ResourceName() string { return f.Name }
func (f *FloatingAddress) Kind() Kind           { return KindFloatingAddress }
func (f *FloatingAddress) References() []string { return []string{f.Port} }
func (*FloatingAddress) fragment()              {}

func (i *Instance) ResourceName() string { return i.Name }
func (i *Instance) Kind() Kind           { return KindInstance }
func (*Instance) fragment()              {}

func (i *Instance) References() []string {
	var refs []string
	if i.Port != "" {
		refs = append(refs, i.Port)
	}
	return append(refs, i.DifferentHost...)
}

// UserDataText joins the user data lines back into text.
func (i *Instance) UserDataText() string {
	if len(i.UserData) == 0 {
		return ""
	}
	return strings.Join(i.UserData, "\n") + "\n"
}

func (v *Volume) ResourceName() string { return v.Name }
func (v *Volume) Kind() Kind           { return KindVolume }
func (v *Volume) References() []string { return nil }
func (*Volume) fragment()              {}

func (a *VolumeAttachment) ResourceName() string { return a.Name }
func (a *VolumeAttachment) Kind() Kind           { return KindVolumeAttachment }
func (a *VolumeAttachment) References() []string { return []string{a.Volume, a.Instance} }
func (*VolumeAttachment) fragment()              {}
