package display

import (
	"fmt"
	"strings"
)

// Mode selects the display hook used by the gateway.
type Mode string

const (
	ModeLog  Mode = "log"  // one log line per frame
	ModeTUI  Mode = "tui"  // interactive terminal monitor
	ModeNone Mode = "none" // no display
)

// ParseMode parses a configured display mode. The empty string is ModeLog.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLog:
		return ModeLog, nil
	case ModeTUI:
		return ModeTUI, nil
	case ModeNone:
		return ModeNone, nil
	default:
		return "", fmt.Errorf("invalid display mode %q (want log, tui or none)", s)
	}
}

// Resolve downgrades ModeTUI to ModeLog when stdout is not a terminal.
func (m Mode) Resolve(isTerminal bool) Mode {
	if m == ModeTUI && !isTerminal {
		return ModeLog
	}
	return m
}
