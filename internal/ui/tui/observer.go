package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/hstack/internal/provisioning"
)

// Observer forwards provisioning events to the apply view.
type Observer struct {
	send func(tea.Msg)
}

var _ provisioning.Observer = (*Observer)(nil)

// NewObserver creates an observer delivering messages through send,
// usually tea.Program.Send.
func NewObserver(send func(tea.Msg)) *Observer {
	return &Observer{send: send}
}

// Printf implements provisioning.Observer.
func (o *Observer) Printf(format string, v ...any) {
	o.send(LogMsg{Text: fmt.Sprintf(format, v...)})
}

// Event implements provisioning.Observer.
func (o *Observer) Event(event provisioning.Event) {
	phase := phaseKey(event.Phase)
	switch event.Type {
	case provisioning.EventPhaseStarted:
		o.send(PhaseMsg{Phase: phase})
	case provisioning.EventPhaseCompleted:
		o.send(PhaseMsg{Phase: phase, Done: true})
	case provisioning.EventPhaseFailed:
		o.send(PhaseMsg{Phase: phase, Err: errors.New(strings.TrimPrefix(event.Message, "failed: "))})
	case provisioning.EventResourceCreated:
		o.send(ResourceMsg{
			Phase:  phase,
			Name:   event.Resource,
			Detail: strings.TrimSpace(event.Fields["type"] + " " + event.Fields["id"]),
		})
	case provisioning.EventResourceResolved:
		o.send(ResourceMsg{
			Phase:  phase,
			Name:   event.Resource,
			Detail: fmt.Sprintf("internal %s management %s", event.Fields["internal"], event.Fields["management"]),
		})
	case provisioning.EventValidationWarning:
		o.send(LogMsg{Text: "warning: " + event.Message})
	default:
		o.send(LogMsg{Text: event.Message})
	}
}

// Progress implements provisioning.Observer.
func (o *Observer) Progress(phase string, current, total int) {
	o.send(ProgressMsg{Phase: phaseKey(phase), Current: current, Total: total})
}

// WithFields implements provisioning.Observer. The view has no room for
// context fields, so the observer is returned unchanged.
func (o *Observer) WithFields(map[string]string) provisioning.Observer {
	return o
}
