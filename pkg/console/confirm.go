package console

import (
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// accessibleMode enables plain prompts for screen readers and dumb terminals.
func accessibleMode() bool {
	return os.Getenv("ACCESSIBLE") != "" ||
		os.Getenv("TERM") == "dumb" ||
		os.Getenv("NO_COLOR") != ""
}

// CanPrompt reports whether an interactive confirmation is possible.
func CanPrompt() bool {
	return isatty.IsTerminal(os.Stdin.Fd())
}

// ConfirmAction shows an interactive yes/no dialog and returns the choice.
func ConfirmAction(title, affirmative, negative string) (bool, error) {
	var confirmed bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative(affirmative).
				Negative(negative).
				Value(&confirmed),
		),
	).WithAccessible(accessibleMode())

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}
