package wakeswitch

import "time"

// EventType is the kind of switch transition.
type EventType string

const (
	EventWake  EventType = "WAKE"
	EventClear EventType = "CLEAR"
)

// Source identifies who asked for the transition.
type Source string

const (
	SourceHomeKit  Source = "homekit"
	SourceHTTP     Source = "http"
	SourceMQTT     Source = "mqtt"
	SourceButton   Source = "button"
	SourceSchedule Source = "schedule"
	SourceCLI      Source = "cli"
)

// Event describes one activation or deactivation.
type Event struct {
	ID        string
	Seq       uint64 // order of the transition; listeners may see events out of order
	Type      EventType
	Source    Source
	Timestamp time.Time
	Attempts  int // sends tried (WAKE only)
	Failures  int // sends that returned an error
}

// Listener receives events after the switch lock is released.
type Listener interface {
	SwitchChanged(e Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(e Event)

// SwitchChanged calls f(e).
func (f ListenerFunc) SwitchChanged(e Event) {
	f(e)
}
