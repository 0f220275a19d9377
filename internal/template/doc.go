// Package template turns a cluster topology into a declarative
// infrastructure template.
//
// The [Synthesizer] emits an ordered list of typed [Fragment]s (ports,
// floating addresses, instances, volumes and volume attachments) and wires
// anti-affinity hints, security groups, key pairs and user data into them.
// [Render] serializes a [Template] into an orchestration document (HOT JSON)
// and [Parse] reads such a document back.
//
// Synthesis is deterministic: identical inputs produce byte-identical
// documents.
package template
