package stack

import "fmt"

// NotFoundError reports that a stack expected to exist was not listed by the
// backend.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("stack %s not found", e.Name)
}

// FailedError reports a terminal non-success stack status.
type FailedError struct {
	Status Status
	Reason string
}

func (e *FailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("stack failed with status %s", e.Status)
	}
	return fmt.Sprintf("stack failed with status %s: %s", e.Status, e.Reason)
}
