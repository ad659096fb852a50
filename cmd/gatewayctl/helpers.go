package main

import (
	"fmt"
	"os"

	survey "github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/lipgloss"
)

// confirm asks a yes/no question on an interactive terminal. Callers only reach it after
// checking isInteractive(), so a non-interactive invocation never blocks on stdin.
func confirm(message string) bool {
	ok := false
	prompt := &survey.Confirm{Message: message, Default: false}
	if err := survey.AskOne(prompt, &ok); err != nil {
		fmt.Fprintf(os.Stderr, "prompt failed, defaulting to no: %v\n", err)
		return false
	}
	return ok
}

var (
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

func warnf(format string, args ...any) {
	fmt.Fprintln(os.Stderr, warnStyle.Render(fmt.Sprintf(format, args...)))
}
