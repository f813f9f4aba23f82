package display

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for the monitor
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - top bar, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - frames to the bus
	WarningColor = lipgloss.Color("#FFA500") // Orange - frames from the bus
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 40
	MaxContentWidth  = 80
)

var (
	// TopBarStyle is the inverted status line ("C:2 IP:...")
	TopBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(TextColor).
			Bold(true).
			PaddingLeft(1)

	// ToBusStyle is for rows of client frames sent to the bus
	ToBusStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// FromBusStyle is for rows of bus frames sent to clients
	FromBusStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// DataRowStyle is for the data bytes row
	DataRowStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			PaddingLeft(2)

	// MutedStyle is for placeholders and counters
	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)
)

// PanelStyle returns the border around the frame area.
func PanelStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2)
}

// IsTerminal reports whether stdout is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// TerminalWidth returns the clamped width of stdout.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}
