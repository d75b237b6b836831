package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Switch        string     `json:"switch"`
	LastWake      string     `json:"last_wake,omitempty"`
	LastEvent     *EventJSON `json:"last_event,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"counts"`
	Config        ConfigJSON `json:"config"`
}

// EventJSON is the JSON representation of the last switch event.
type EventJSON struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Failures  int    `json:"failures"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of activity counts.
type CountsJSON struct {
	Wakes        int `json:"wakes"`
	Clears       int `json:"clears"`
	SendFailures int `json:"send_failures"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TargetMAC   string   `json:"target_mac"`
	Interface   string   `json:"interface,omitempty"`
	Broadcast   string   `json:"broadcast"`
	WindowMs    int64    `json:"window_ms"`
	Burst       int      `json:"burst"`
	HeartbeatMs int64    `json:"heartbeat_ms"`
	Broker      string   `json:"broker,omitempty"`
	HTTPAddr    string   `json:"http_addr"`
	ButtonPin   int      `json:"button_pin,omitempty"`
	Schedule    []string `json:"schedule,omitempty"`
}

// SwitchState renders the switch value.
func SwitchState(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Switch:        SwitchState(snap.On),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Wakes:        snap.Counts.Wakes,
			Clears:       snap.Counts.Clears,
			SendFailures: snap.Counts.SendFailures,
		},
		Config: ConfigJSON{
			TargetMAC:   snap.Config.TargetMAC,
			Interface:   snap.Config.Interface,
			Broadcast:   snap.Config.Broadcast,
			WindowMs:    snap.Config.WindowMs,
			Burst:       snap.Config.Burst,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			ButtonPin:   snap.Config.ButtonPin,
			Schedule:    snap.Config.Schedule,
		},
	}
	if !snap.LastWake.IsZero() {
		inner.LastWake = snap.LastWake.UTC().Format(time.RFC3339)
	}
	if e := snap.LastEvent; e != nil {
		inner.LastEvent = &EventJSON{
			ID:        e.ID,
			Type:      string(e.Type),
			Source:    string(e.Source),
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Failures:  e.Failures,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
