package hap

import (
	"net"
	"testing"
	"time"

	"github.com/sweeney/wol-switch/internal/wakeswitch"
	"github.com/sweeney/wol-switch/internal/wol"
)

// fakeCharacteristic keeps a cached value the way hc does: a controller
// read whose getter result differs from the cache fires the update callback.
type fakeCharacteristic struct {
	value  bool
	get    func() bool
	update func(bool)
	pushed []bool
}

func (f *fakeCharacteristic) OnValueRemoteGet(fn func() bool)   { f.get = fn }
func (f *fakeCharacteristic) OnValueRemoteUpdate(fn func(bool)) { f.update = fn }

func (f *fakeCharacteristic) SetValue(v bool) {
	f.value = v
	f.pushed = append(f.pushed, v)
}

// controllerRead mimics a GET from a paired controller.
func (f *fakeCharacteristic) controllerRead() bool {
	v := f.get()
	if v != f.value {
		f.value = v
		f.update(v)
	}
	return f.value
}

// controllerWrite mimics a PUT from a paired controller.
func (f *fakeCharacteristic) controllerWrite(v bool) {
	if v != f.value {
		f.value = v
		f.update(v)
	}
}

func newSwitch(now *time.Time) (*wakeswitch.Switch, *wol.FakeSender) {
	sender := wol.NewFakeSender()
	sw := wakeswitch.New(wol.Build([6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}, ""), sender,
		wakeswitch.WithClock(func() time.Time { return *now }))
	return sw, sender
}

// recordEvents subscribes a listener that collects every event.
func recordEvents(sw *wakeswitch.Switch) *[]wakeswitch.Event {
	var events []wakeswitch.Event
	sw.Subscribe(wakeswitch.ListenerFunc(func(e wakeswitch.Event) { events = append(events, e) }))
	return &events
}

// controllerConn returns one end of an in-memory connection standing in
// for a paired controller's session.
func controllerConn(t *testing.T) net.Conn {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a
}

func TestBindHooks(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sw, sender := newSwitch(&now)
	c := &fakeCharacteristic{}
	bind(c, sw)

	if c.get == nil || c.update == nil {
		t.Fatal("expected both hooks to be registered")
	}
	if c.controllerRead() {
		t.Error("fresh switch should read false")
	}

	c.controllerWrite(true)
	if sender.Count() != 3 {
		t.Errorf("expected 3 sends, got %d", sender.Count())
	}

	now = now.Add(5 * time.Second)
	if !c.controllerRead() {
		t.Error("expected true at 5s")
	}
	now = now.Add(6 * time.Second)
	if c.controllerRead() {
		t.Error("expected false at 11s")
	}

	c.controllerWrite(true)
	c.controllerWrite(false)
	if c.controllerRead() {
		t.Error("expected false after clear")
	}
	if sender.Count() != 6 {
		t.Errorf("clear must not send, got %d sends", sender.Count())
	}
}

func TestReadAfterDecayIsNotAWrite(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sw, sender := newSwitch(&now)
	events := recordEvents(sw)
	c := &fakeCharacteristic{}
	bind(c, sw)

	c.controllerWrite(true)
	now = now.Add(11 * time.Second)

	if c.controllerRead() {
		t.Error("expected false after decay")
	}
	if len(*events) != 1 || (*events)[0].Type != wakeswitch.EventWake {
		t.Errorf("read must not emit events, got %+v", *events)
	}
	if _, ok := sw.LastActivation(); !ok {
		t.Error("read must not clear the recorded activation")
	}
	if sender.Count() != 3 {
		t.Errorf("expected 3 sends, got %d", sender.Count())
	}
}

func TestSwitchChangedPushesExternalEvents(t *testing.T) {
	c := &fakeCharacteristic{}
	a := &Accessory{on: c}

	a.SwitchChanged(wakeswitch.Event{Seq: 1, Type: wakeswitch.EventWake, Source: wakeswitch.SourceHTTP})
	a.SwitchChanged(wakeswitch.Event{Seq: 2, Type: wakeswitch.EventWake, Source: wakeswitch.SourceHomeKit})
	a.SwitchChanged(wakeswitch.Event{Seq: 3, Type: wakeswitch.EventClear, Source: wakeswitch.SourceMQTT})

	if len(c.pushed) != 2 {
		t.Fatalf("expected 2 pushed values, got %v", c.pushed)
	}
	if !c.pushed[0] || c.pushed[1] {
		t.Errorf("expected [true false], got %v", c.pushed)
	}
}

func TestSwitchChangedDropsStaleEvents(t *testing.T) {
	c := &fakeCharacteristic{}
	a := &Accessory{on: c}

	a.SwitchChanged(wakeswitch.Event{Seq: 2, Type: wakeswitch.EventWake, Source: wakeswitch.SourceHTTP})
	a.SwitchChanged(wakeswitch.Event{Seq: 1, Type: wakeswitch.EventClear, Source: wakeswitch.SourceHTTP})

	if len(c.pushed) != 1 || !c.pushed[0] {
		t.Errorf("stale clear must be dropped, got %v", c.pushed)
	}
}

func TestNewAccessory(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sw, _ := newSwitch(&now)

	a := NewAccessory(Info{Name: "WOL", Manufacturer: "wol-switch", Model: "WOL"}, sw)
	if a.acc == nil || a.acc.Accessory == nil {
		t.Fatal("expected accessory to be built")
	}

	sw.Activate(wakeswitch.SourceSchedule)
	if !a.acc.Switch.On.GetValue() {
		t.Error("characteristic should be on after an external wake")
	}
	sw.Deactivate(wakeswitch.SourceHTTP)
	if a.acc.Switch.On.GetValue() {
		t.Error("characteristic should be off after an external clear")
	}
}

func TestControllerReadAfterDecay(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sw, sender := newSwitch(&now)
	events := recordEvents(sw)
	a := NewAccessory(Info{Name: "WOL"}, sw)
	conn := controllerConn(t)
	on := a.acc.Switch.On

	on.UpdateValueFromConnection(true, conn)
	if sender.Count() != 3 {
		t.Fatalf("controller write should wake, got %d sends", sender.Count())
	}

	now = now.Add(5 * time.Second)
	if v, _ := on.GetValueFromConnection(conn).(bool); !v {
		t.Error("expected true at 5s")
	}

	now = now.Add(6 * time.Second)
	if v, _ := on.GetValueFromConnection(conn).(bool); v {
		t.Error("expected false at 11s")
	}

	if len(*events) != 1 {
		t.Errorf("reads must not emit events, got %d: %+v", len(*events), *events)
	}
	if _, ok := sw.LastActivation(); !ok {
		t.Error("read must not clear the recorded activation")
	}
}

func TestControllerReadDuringExternalWake(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sw, sender := newSwitch(&now)
	conn := controllerConn(t)

	// Subscribed before the accessory, so this read lands after the switch
	// unlocks but before the accessory pushes the new value.
	var a *Accessory
	var readValue bool
	sw.Subscribe(wakeswitch.ListenerFunc(func(e wakeswitch.Event) {
		readValue, _ = a.acc.Switch.On.GetValueFromConnection(conn).(bool)
	}))
	a = NewAccessory(Info{Name: "WOL"}, sw)

	sw.Activate(wakeswitch.SourceHTTP)

	if !readValue {
		t.Error("read during delivery should see the wake")
	}
	if sender.Count() != 3 {
		t.Errorf("read must not trigger a second burst, got %d sends", sender.Count())
	}
}
