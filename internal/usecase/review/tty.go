package review

import (
	"os"

	"golang.org/x/term"
)

// IsOutputTerminal reports whether stdout is attached to a terminal.
// Used to pick the human log format for interactive runs and JSON for
// CI pipelines.
func IsOutputTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
