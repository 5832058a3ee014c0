package gui

import (
	"fmt"
	"strings"
	"time"
)

const (
	resultHeaderLayout = "2006-01-02 15:04:05"
	logLineLayout      = "15:04:05"
)

var resultFooter = strings.Repeat("=", 50)

// FormatResult wraps one result in the timestamped banner shown in the results pane.
func FormatResult(text string, at time.Time) string {
	return fmt.Sprintf("=== %s ===\n%s\n%s\n\n", at.Format(resultHeaderLayout), text, resultFooter)
}

// FormatLogLine renders a progress entry for the log pane.
func FormatLogLine(text string, at time.Time) string {
	return fmt.Sprintf("[%s] %s\n", at.Format(logLineLayout), text)
}
