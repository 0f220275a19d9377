package naming

import "fmt"

// Stack returns the stack name for a cluster.
func Stack(cluster string) string {
	return cluster
}

// Instance returns the name of the instance at the given 0-based index.
// The rendered index is 1-based: index 0 yields "<cluster>-<group>-001".
func Instance(cluster, nodeGroup string, index int) string {
	return fmt.Sprintf("%s-%s-%03d", cluster, nodeGroup, index+1)
}

func Port(instance string) string {
	return fmt.Sprintf("%s-port", instance)
}

func FloatingIP(instance string) string {
	return fmt.Sprintf("%s-floating", instance)
}

func Volume(instance string, volumeIndex int) string {
	return fmt.Sprintf("%s-volume-%d", instance, volumeIndex)
}

func VolumeAttachment(instance string, volumeIndex int) string {
	return fmt.Sprintf("%s-volume-attachment-%d", instance, volumeIndex)
}

// PlacementGroup returns the name of the spread placement group backing the
// anti-affinity set whose first member is anchor.
func PlacementGroup(stack, anchor string) string {
	return fmt.Sprintf("%s-aa-%s", stack, anchor)
}

// ArchiveKey returns the object key under which one submitted revision of a
// stack template is archived.
func ArchiveKey(stack, revision string) string {
	return fmt.Sprintf("stacks/%s/%s.json", stack, revision)
}
