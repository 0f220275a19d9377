package handlers

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// errAborted is returned when the user declines a confirmation.
var errAborted = errors.New("aborted by user")

// confirmUpdate asks before converging an existing stack. Without a
// terminal the caller must pass --yes.
func confirmUpdate(stackName string) error {
	if !isInteractive() {
		return fmt.Errorf("refusing to update stack %s without a terminal, pass --yes", stackName)
	}

	ok := false
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Update stack %s?", stackName)).
		Description("Resources dropped from the topology will be deleted.").
		Affirmative("Update").
		Negative("Cancel").
		Value(&ok).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errAborted
		}
		return fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		return errAborted
	}
	return nil
}

func stdinIsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
