package wol

import "sync"

// FakeSender records sent packets for test assertions.
type FakeSender struct {
	mu sync.Mutex

	// Sent contains every packet passed to Send, including failed ones.
	Sent []MagicPacket

	// Errors, if set, are returned by successive Send calls. A nil entry
	// means success. Once exhausted, Send succeeds.
	Errors []error

	calls int
}

// NewFakeSender creates a FakeSender that returns errs in order.
func NewFakeSender(errs ...error) *FakeSender {
	return &FakeSender{Errors: errs}
}

// Send records the packet and returns the next scripted error.
func (f *FakeSender) Send(p MagicPacket) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Sent = append(f.Sent, p)
	i := f.calls
	f.calls++
	if i < len(f.Errors) {
		return f.Errors[i]
	}
	return nil
}

// Count returns the number of Send calls.
func (f *FakeSender) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent)
}

// Reset clears recorded packets and scripted errors.
func (f *FakeSender) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = nil
	f.Errors = nil
	f.calls = 0
}
