package stack

import (
	"context"

	"github.com/imamik/hstack/internal/template"
)

// Status is a backend-reported stack status.
type Status string

// Backend statuses.
const (
	StatusCreateInProgress Status = "CREATE_IN_PROGRESS"
	StatusCreateComplete   Status = "CREATE_COMPLETE"
	StatusCreateFailed     Status = "CREATE_FAILED"
	StatusUpdateInProgress Status = "UPDATE_IN_PROGRESS"
	StatusUpdateComplete   Status = "UPDATE_COMPLETE"
	StatusUpdateFailed     Status = "UPDATE_FAILED"
)

// Phase is the controller's view of a stack status.
type Phase string

// Controller phases.
const (
	PhaseSubmitting Phase = "SUBMITTING"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseComplete   Phase = "COMPLETE"
	PhaseFailed     Phase = "FAILED"
)

// PhaseOf maps a backend status to a phase. An empty status means the stack
// has not been submitted yet; any unknown status is a failure.
func PhaseOf(s Status) Phase {
	switch s {
	case "":
		return PhaseSubmitting
	case StatusCreateInProgress, StatusUpdateInProgress:
		return PhaseInProgress
	case StatusCreateComplete, StatusUpdateComplete:
		return PhaseComplete
	default:
		return PhaseFailed
	}
}

// Stack is the backend-side state of a stack.
type Stack struct {
	Name         string
	ID           string
	Status       Status
	StatusReason string
}

// Resource is one resource of a stack.
type Resource struct {
	LogicalName string
	PhysicalID  string
	Type        string
	Status      string
}

// SubmitRequest carries everything a backend needs to create or update a
// stack.
type SubmitRequest struct {
	Name            string
	Template        []byte
	TimeoutMinutes  int
	DisableRollback bool
	Parameters      map[string]string
}

// Backend is an orchestration service.
type Backend interface {
	CreateStack(ctx context.Context, req SubmitRequest) (string, error)
	UpdateStack(ctx context.Context, stackID string, req SubmitRequest) error
	ListStacks(ctx context.Context, name string) ([]Stack, error)
	GetStack(ctx context.Context, stackID string) (*Stack, error)
	GetResource(ctx context.Context, stackID, name string) (*Resource, error)
}

// ClusterStack pairs a submitted template with its stack.
type ClusterStack struct {
	Template *template.Template
	Stack    Stack
}

// InstanceHandle is the deterministic name and physical id of an instance.
type InstanceHandle struct {
	Name string
	ID   string
}
