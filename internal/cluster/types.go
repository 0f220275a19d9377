package cluster

import "slices"

// Topology identifies a cluster and the node groups it is made of.
type Topology struct {
	Name string `yaml:"name"`
	// Image is the default image for node groups that do not set their own.
	Image string `yaml:"image"`
	// Project scopes the cluster's resources (tenant).
	Project string `yaml:"project,omitempty"`
	// KeyPair names an SSH key embedded into every instance.
	KeyPair string `yaml:"key_pair,omitempty"`
	// AntiAffinity lists process names whose instances must land on
	// distinct hosts.
	AntiAffinity []string `yaml:"anti_affinity,omitempty"`
	// ManagementNetwork is the network that instance ports attach to.
	ManagementNetwork string `yaml:"management_network,omitempty"`

	NodeGroups []NodeGroup `yaml:"node_groups"`
}

// NodeGroup is a set of identical instances.
type NodeGroup struct {
	Name   string `yaml:"name"`
	Flavor string `yaml:"flavor"`
	Image  string `yaml:"image,omitempty"`
	Count  int    `yaml:"count"`

	// Location pins instances and volumes of this group. Empty uses the
	// backend default.
	Location string `yaml:"location,omitempty"`

	Processes      []string `yaml:"processes,omitempty"`
	SecurityGroups []string `yaml:"security_groups,omitempty"`
	FloatingIPPool string   `yaml:"floating_ip_pool,omitempty"`
	VolumesPerNode int      `yaml:"volumes_per_node,omitempty"`

	// VolumeSize is the size of each volume in GB.
	VolumeSize int `yaml:"volume_size,omitempty"`
}

// ImageID returns the node group image, falling back to the cluster default.
func (ng NodeGroup) ImageID(clusterDefault string) string {
	if ng.Image != "" {
		return ng.Image
	}
	return clusterDefault
}

// Runs reports whether the node group runs the given process.
func (ng NodeGroup) Runs(process string) bool {
	return slices.Contains(ng.Processes, process)
}

// NodeGroup returns the node group with the given name.
func (t *Topology) NodeGroup(name string) (NodeGroup, bool) {
	for _, ng := range t.NodeGroups {
		if ng.Name == name {
			return ng, true
		}
	}
	return NodeGroup{}, false
}

// IsAntiAffine reports whether instances running process must be spread.
func (t *Topology) IsAntiAffine(process string) bool {
	return slices.Contains(t.AntiAffinity, process)
}

// InstanceCount returns the total number of instances over all node groups.
func (t *Topology) InstanceCount() int {
	total := 0
	for _, ng := range t.NodeGroups {
		total += ng.Count
	}
	return total
}
