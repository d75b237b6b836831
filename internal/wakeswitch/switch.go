// Package wakeswitch holds the state behind the HomeKit wake switch.
//
// The switch reports "on" for a fixed window after the last activation.
// Decay is evaluated when the state is queried; there is no timer, so two
// readers on either side of the boundary may disagree.
package wakeswitch

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sweeney/wol-switch/internal/wol"
)

const (
	// DefaultWindow is how long the switch reports on after an activation.
	DefaultWindow = 10 * time.Second

	// DefaultBurst is the number of packets sent per activation.
	DefaultBurst = 3
)

// Switch is the shared, lock-guarded wake switch state.
type Switch struct {
	mu     sync.Mutex
	last   time.Time
	active bool // false exactly when no window is open
	seq    uint64

	packet wol.MagicPacket
	sender wol.Sender
	window time.Duration
	burst  int
	now    func() time.Time

	listeners []Listener
}

// Option configures a Switch.
type Option func(*Switch)

// WithWindow sets the decay window. Non-positive values are ignored.
func WithWindow(d time.Duration) Option {
	return func(s *Switch) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithBurst sets the number of sends per activation. Values below 1 are ignored.
func WithBurst(n int) Option {
	return func(s *Switch) {
		if n > 0 {
			s.burst = n
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Switch) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an idle switch that sends packet through sender.
func New(packet wol.MagicPacket, sender wol.Sender, opts ...Option) *Switch {
	s := &Switch{
		packet: packet,
		sender: sender,
		window: DefaultWindow,
		burst:  DefaultBurst,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Activate records the activation time and sends the burst. Send failures
// are logged and counted but never abort the burst or the transition.
func (s *Switch) Activate(src Source) Event {
	s.mu.Lock()
	t := s.now()
	s.last = t
	s.active = true
	s.seq++
	seq := s.seq

	failures := 0
	for i := 0; i < s.burst; i++ {
		if err := s.sender.Send(s.packet); err != nil {
			failures++
			log.Printf("wakeswitch: send %d/%d to %s failed: %v", i+1, s.burst, s.packet, err)
		}
	}
	listeners := s.listeners
	s.mu.Unlock()

	e := Event{
		ID:        uuid.NewString(),
		Seq:       seq,
		Type:      EventWake,
		Source:    src,
		Timestamp: t,
		Attempts:  s.burst,
		Failures:  failures,
	}
	notify(listeners, e)
	return e
}

// Deactivate closes the window. No packet is sent.
func (s *Switch) Deactivate(src Source) Event {
	s.mu.Lock()
	t := s.now()
	s.last = time.Time{}
	s.active = false
	s.seq++
	seq := s.seq
	listeners := s.listeners
	s.mu.Unlock()

	e := Event{
		ID:        uuid.NewString(),
		Seq:       seq,
		Type:      EventClear,
		Source:    src,
		Timestamp: t,
	}
	notify(listeners, e)
	return e
}

// Set activates when on is true and deactivates otherwise.
func (s *Switch) Set(src Source, on bool) Event {
	if on {
		return s.Activate(src)
	}
	return s.Deactivate(src)
}

// On reports whether the last activation is younger than the window.
func (s *Switch) On() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	return s.now().Sub(s.last) < s.window
}

// LastActivation returns the recorded activation time. ok is false after
// Deactivate or before the first activation; an expired window still
// reports its time.
func (s *Switch) LastActivation() (t time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.active
}

// Window returns the decay window.
func (s *Switch) Window() time.Duration {
	return s.window
}

// Burst returns the number of sends per activation.
func (s *Switch) Burst() int {
	return s.burst
}

// Packet returns the packet sent on activation.
func (s *Switch) Packet() wol.MagicPacket {
	return s.packet
}

// Subscribe registers l for all subsequent events.
func (s *Switch) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Copy so snapshots taken by in-flight calls stay valid.
	next := make([]Listener, len(s.listeners), len(s.listeners)+1)
	copy(next, s.listeners)
	s.listeners = append(next, l)
}

// ReadHook returns the characteristic read callback. It never fails.
func (s *Switch) ReadHook() func() bool {
	return s.On
}

// WriteHook returns the characteristic write callback for src. Send
// failures stay internal; the hook always succeeds.
func (s *Switch) WriteHook(src Source) func(bool) {
	return func(on bool) {
		s.Set(src, on)
	}
}

func notify(listeners []Listener, e Event) {
	for _, l := range listeners {
		l.SwitchChanged(e)
	}
}
