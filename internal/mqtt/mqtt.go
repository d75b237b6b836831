// Package mqtt publishes switch events and accepts remote commands, with
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/wol-switch/internal/wakeswitch"
)

// DefaultTopicPrefix is the topic root when none is configured.
const DefaultTopicPrefix = "wol/switch"

// Topics are the MQTT topics under one prefix.
type Topics struct {
	Events  string // switch events
	System  string // lifecycle events
	Command string // ON/OFF commands
}

// NewTopics derives the topics from prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		Events:  prefix + "/events",
		System:  prefix + "/system",
		Command: prefix + "/set",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a switch event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event wakeswitch.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// CommandSource delivers ON/OFF commands received on the command topic.
type CommandSource interface {
	SubscribeCommands(fn func(on bool)) error
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a switch event.
type Payload struct {
	WOL EventPayload `json:"wol"`
}

// EventPayload contains the switch event details.
type EventPayload struct {
	ID        string `json:"id"`
	Seq       uint64 `json:"seq"`
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Source    string `json:"source"`
	Attempts  int    `json:"attempts"`
	Failures  int    `json:"failures"`
}

// FormatPayload creates the JSON payload for a switch event.
func FormatPayload(event wakeswitch.Event) ([]byte, error) {
	payload := Payload{
		WOL: EventPayload{
			ID:        event.ID,
			Seq:       event.Seq,
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Source:    string(event.Source),
			Attempts:  event.Attempts,
			Failures:  event.Failures,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// ParseCommand interprets a command payload. Accepts ON/OFF, true/false
// and 1/0, case-insensitive, surrounding whitespace ignored.
func ParseCommand(payload []byte) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(string(payload))) {
	case "ON", "TRUE", "1":
		return true, nil
	case "OFF", "FALSE", "0":
		return false, nil
	}
	return false, fmt.Errorf("unrecognised command %q", payload)
}
