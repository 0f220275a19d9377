// Package stack drives the lifecycle of an orchestration stack.
//
// A [Controller] submits a rendered template to a [Backend] (create, or
// update of the stack with the same name), polls the stack until it leaves
// the in-progress states and resolves the physical ids of a node group's
// instances.
//
// Status handling:
//
//	SUBMITTING -> IN_PROGRESS -> COMPLETE
//	                          \-> FAILED
//
// Both CREATE_* and UPDATE_* backend statuses map onto the same phases.
package stack
