package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleNarrative = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleScreen = lipgloss.NewStyle().
			Bold(true)

	styleLog = lipgloss.NewStyle().
			Foreground(lipgloss.Color("111"))

	styleDialogue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarrative lineKind = iota
	kindScreen
	kindLog
	kindDialogue
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of output line this is.
func classifyLine(line string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[screen:"):
		return kindScreen
	case strings.HasPrefix(line, "[log]"):
		return kindLog
	case strings.HasPrefix(line, "[debug]"):
		return kindError
	case strings.HasPrefix(line, "["):
		return kindSystem
	case containsQuotedSpeech(line):
		return kindDialogue
	default:
		return kindNarrative
	}
}

// renderLineKind applies the style for a given lineKind.
func renderLineKind(line string, kind lineKind) string {
	switch kind {
	case kindScreen:
		return styleScreen.Render(line)
	case kindLog:
		return styleLog.Render(line)
	case kindDialogue:
		return styleDialogue.Render(line)
	case kindSystem:
		return styleSystem.Render(line)
	case kindError:
		return styleError.Render(line)
	case kindTrace:
		return styleTrace.Render(line)
	default:
		return styleNarrative.Render(line)
	}
}

// containsQuotedSpeech checks if a line carries spoken text in single quotes.
func containsQuotedSpeech(line string) bool {
	inQuote := false
	quoteLen := 0
	for _, r := range line {
		if r == '\'' {
			if inQuote && quoteLen > 0 {
				return true
			}
			inQuote = !inQuote
			quoteLen = 0
		} else if inQuote {
			quoteLen++
		}
	}
	return false
}

// styledSystemMsg renders a system message in gray with brackets.
func styledSystemMsg(text string) string {
	return styleSystem.Render("[" + text + "]")
}
