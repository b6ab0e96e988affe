package config

import (
	"fmt"
	"strings"
)

const (
	ModeAny      = ""
	ModeSerial   = "serial"
	ModeParallel = "parallel"
)

// Mode returns the execution mode selected by the serial and parallel
// switches.
func (s SweepConfig) Mode() string {
	switch {
	case s.Serial:
		return ModeSerial
	case s.Parallel:
		return ModeParallel
	default:
		return ModeAny
	}
}

const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
)

func NormalizeFormat(raw string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(raw))
	if format == "" {
		format = FormatText
	}

	switch format {
	case FormatText, FormatTable, FormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("invalid format %q (expected %s|%s|%s)", raw, FormatText, FormatTable, FormatJSON)
	}
}
