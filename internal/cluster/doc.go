// Package cluster describes the cluster topology that hstack provisions.
//
// A [Topology] is a named set of node groups. Each [NodeGroup] declares how
// many instances it wants, which flavor and image they use, the processes
// they run and their networking (security groups, floating IP pool) and
// storage (volumes per node). Topologies are loaded from YAML with
// [LoadTopology] and are read-only to the rest of hstack.
//
// User data for every instance comes from a [UserDataProvider]. Two profiles
// ship with the package:
//
//   - [ScriptProfile]: a POSIX shell script exporting the node identity
//   - [CloudConfigProfile]: a cloud-config document
//
// # Example
//
//	topo, err := cluster.LoadTopology("cluster.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := topo.Validate(); err != nil {
//	    return err
//	}
package cluster
