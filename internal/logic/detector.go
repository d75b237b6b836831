package logic

import "time"

// Detector debounces button samples and detects transitions.
type Detector struct {
	debounceDuration time.Duration
	ch               ChannelState
	startTime        time.Time
	eventCounts      EventCounts
	lastHeartbeat    time.Time
}

// NewDetector creates a new transition detector with the given debounce duration.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(debounceDuration time.Duration, startTime time.Time) *Detector {
	return &Detector{
		debounceDuration: debounceDuration,
		startTime:        startTime,
		lastHeartbeat:    startTime,
	}
}

// Process takes a new input sample and returns any events that should be emitted.
// Events are only returned after baseline is established and on state transitions,
// so a button held down at startup never produces a press.
func (d *Detector) Process(input Input) []Event {
	wasBaselined := d.ch.Baselined
	transition := d.process(boolToState(input.Pressed), input.Time)

	if !wasBaselined || transition == nil {
		return nil
	}

	switch *transition {
	case EventPress:
		d.eventCounts.Presses++
	case EventRelease:
		d.eventCounts.Releases++
	}

	return []Event{{
		Timestamp: input.Time,
		Type:      *transition,
		State:     d.ch.Stable,
	}}
}

// process handles debounce logic for the line.
// Returns the event type if a transition occurred, nil otherwise.
func (d *Detector) process(newState State, now time.Time) *EventType {
	ch := &d.ch

	// First time seeing the line
	if !ch.Baselined {
		if ch.Pending == "" || ch.Pending != newState {
			// Start observing, or restart on change
			ch.Pending = newState
			ch.PendingSince = now
			return nil
		}

		if now.Sub(ch.PendingSince) >= d.debounceDuration {
			ch.Stable = newState
			ch.Baselined = true
			ch.Pending = ""
		}
		return nil
	}

	if newState == ch.Stable {
		// Bounced back, clear any pending
		ch.Pending = ""
		return nil
	}

	if ch.Pending != newState {
		ch.Pending = newState
		ch.PendingSince = now
		return nil
	}

	if now.Sub(ch.PendingSince) >= d.debounceDuration {
		ch.Stable = newState
		ch.Pending = ""
		return eventTypeFor(newState)
	}

	return nil
}

func boolToState(pressed bool) State {
	if pressed {
		return StatePressed
	}
	return StateReleased
}

func eventTypeFor(to State) *EventType {
	event := EventRelease
	if to == StatePressed {
		event = EventPress
	}
	return &event
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.ch.Baselined
}

// CurrentState returns the current stable state (empty before baseline).
func (d *Detector) CurrentState() State {
	return d.ch.Stable
}

// EventCountsSnapshot returns a copy of the event counts.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed
// or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
