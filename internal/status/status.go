// Package status provides a thread-safe status tracker for the wol-switch daemon.
// It is read by the HTTP handlers and the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/wol-switch/internal/wakeswitch"
)

// Config contains daemon configuration for display.
type Config struct {
	TargetMAC   string
	Interface   string
	Broadcast   string
	WindowMs    int64
	Burst       int
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	ButtonPin   int
	Schedule    []string
}

// Counts tracks switch activity since startup.
type Counts struct {
	Wakes        int
	Clears       int
	SendFailures int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	On            bool
	LastEvent     *wakeswitch.Event
	LastWake      time.Time
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu    sync.RWMutex
	snap  Snapshot
	state func() bool
}

// NewTracker creates a Tracker with the given start time and config.
// state reports the live switch value; nil reports off.
func NewTracker(startTime time.Time, cfg Config, state func() bool) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		state: state,
	}
}

// SwitchChanged records a switch event. Tracker is a wakeswitch.Listener.
func (t *Tracker) SwitchChanged(e wakeswitch.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Type {
	case wakeswitch.EventWake:
		t.snap.Counts.Wakes++
		if e.Timestamp.After(t.snap.LastWake) {
			t.snap.LastWake = e.Timestamp
		}
	case wakeswitch.EventClear:
		t.snap.Counts.Clears++
	}
	t.snap.Counts.SendFailures += e.Failures

	// Concurrent transitions can arrive out of order; keep the newest.
	if t.snap.LastEvent == nil || e.Seq >= t.snap.LastEvent.Seq {
		t.snap.LastEvent = &e
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// Now is the current time and On the live switch value at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastEvent != nil {
		e := *s.LastEvent
		s.LastEvent = &e
	}
	t.mu.RUnlock()

	s.Now = time.Now()
	if t.state != nil {
		s.On = t.state()
	}
	return s
}
