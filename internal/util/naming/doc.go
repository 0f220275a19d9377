// Package naming provides the deterministic resource names used inside a stack.
//
// Instance names follow {cluster}-{node-group}-{NNN} with a 1-based, zero-padded
// index. Ports, floating IPs, volumes and volume attachments derive their names
// from the instance name, so every logical resource name is unique within one
// stack and can be referenced from other template resources.
package naming
