package messages

import "time"

// Message is the base interface for updates posted from background
// goroutines to the presentation layer.
type Message interface {
	Type() string
}

const (
	TypeLogLine = "LogLine"
	TypeResult  = "Result"
	TypeStatus  = "Status"
)

// LogLine is one progress entry for the log pane.
type LogLine struct {
	InvocationID string
	Text         string
	At           time.Time
}

func (m LogLine) Type() string { return TypeLogLine }

// Result is an analysis result, or the error text standing in for it.
type Result struct {
	InvocationID string
	Text         string
	Err          bool
	At           time.Time
}

func (m Result) Type() string { return TypeResult }

// Status reports whether an invocation is in flight (tray tooltip, window title).
type Status struct {
	Busy bool
}

func (m Status) Type() string { return TypeStatus }
