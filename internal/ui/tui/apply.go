package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/hstack/internal/provisioning"
)

// ErrInterrupted is returned when the user quits the view before the run
// finished.
var ErrInterrupted = errors.New("apply interrupted by user")

// ApplyFunc performs the apply work, reporting to observer.
type ApplyFunc func(ctx context.Context, observer provisioning.Observer) error

// RunApply runs fn while rendering its progress. Quitting the view cancels
// the context passed to fn and waits for fn to return.
func RunApply(ctx context.Context, fn ApplyFunc, stackName, location string, phases []string, opts ...tea.ProgramOption) error {
	m := NewApplyModel(stackName, location, phases)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	programOpts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, programOpts...)

	result := make(chan error, 1)
	go func() {
		err := fn(runCtx, NewObserver(p.Send))
		result <- err
		if err != nil {
			p.Send(ErrMsg{Err: err})
		} else {
			p.Send(DoneMsg{})
		}
	}()

	finalModel, viewErr := p.Run()
	cancel()
	runErr := <-result

	if runErr != nil {
		if fm, ok := finalModel.(Model); ok && fm.Quit {
			return ErrInterrupted
		}
		if viewErr != nil && !errors.Is(viewErr, tea.ErrProgramKilled) {
			return fmt.Errorf("apply view failed: %w", viewErr)
		}
		return runErr
	}
	return nil
}
