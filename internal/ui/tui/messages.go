// Package tui renders a live view of hstack apply with Bubble Tea.
package tui

import "time"

// PhaseMsg reports a pipeline phase transition.
type PhaseMsg struct {
	Phase string
	Done  bool
	Err   error
}

// ResourceMsg reports a created or resolved resource.
type ResourceMsg struct {
	Phase  string
	Name   string
	Detail string
}

// ProgressMsg reports progress within a phase.
type ProgressMsg struct {
	Phase   string
	Current int
	Total   int
}

// LogMsg carries a free-form log line.
type LogMsg struct {
	Text string
}

// TickMsg triggers a periodic refresh of the view.
type TickMsg time.Time

// ErrMsg signals that the apply run failed.
type ErrMsg struct {
	Err error
}

// DoneMsg signals that the apply run finished.
type DoneMsg struct{}
