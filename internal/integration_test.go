package internal

import (
	"bytes"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/wol-switch/internal/mqtt"
	"github.com/sweeney/wol-switch/internal/status"
	"github.com/sweeney/wol-switch/internal/wakeswitch"
	"github.com/sweeney/wol-switch/internal/wol"
)

var (
	targetMAC = [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
)

func expectedPayload() []byte {
	want := bytes.Repeat([]byte{0xFF}, 6)
	for i := 0; i < 16; i++ {
		want = append(want, targetMAC[:]...)
	}
	return want
}

// listen opens a loopback UDP socket standing in for the target's port 9.
func listen(t *testing.T) net.PacketConn {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readDatagrams(t *testing.T, conn net.PacketConn, n int) [][]byte {
	t.Helper()
	var out [][]byte
	buf := make([]byte, 512)
	for i := 0; i < n; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		m, _, err := conn.ReadFrom(buf)
		if err != nil {
			t.Fatalf("datagram %d: %v", i, err)
		}
		out = append(out, append([]byte(nil), buf[:m]...))
	}
	return out
}

// TestIntegrationWakeFlow covers the write hook through to the wire and the
// decaying read hook, using the real UDP sender against a loopback listener.
func TestIntegrationWakeFlow(t *testing.T) {
	conn := listen(t)
	now := startTime
	sw := wakeswitch.New(wol.Build(targetMAC, ""), wol.NewUDPSender(conn.LocalAddr().String()),
		wakeswitch.WithClock(func() time.Time { return now }))

	read := sw.ReadHook()
	write := sw.WriteHook(wakeswitch.SourceHomeKit)

	if read() {
		t.Fatal("fresh switch should read false")
	}

	write(true)

	want := expectedPayload()
	for i, got := range readDatagrams(t, conn, 3) {
		if len(got) != wol.PacketSize {
			t.Errorf("datagram %d: got %d bytes, want %d", i, len(got), wol.PacketSize)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("datagram %d: payload mismatch\ngot:  %x\nwant: %x", i, got, want)
		}
	}

	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := conn.ReadFrom(make([]byte, 512)); err == nil {
		t.Error("expected exactly 3 datagrams")
	}

	now = startTime.Add(5 * time.Second)
	if !read() {
		t.Error("expected true at 5s")
	}
	now = startTime.Add(11 * time.Second)
	if read() {
		t.Error("expected false at 11s")
	}
}

// TestIntegrationClearSendsNothing checks that turning the switch off never
// reaches the wire.
func TestIntegrationClearSendsNothing(t *testing.T) {
	conn := listen(t)
	sw := wakeswitch.New(wol.Build(targetMAC, ""), wol.NewUDPSender(conn.LocalAddr().String()))

	sw.WriteHook(wakeswitch.SourceHomeKit)(false)

	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := conn.ReadFrom(make([]byte, 512)); err == nil {
		t.Error("clear must not send a packet")
	}
	if sw.ReadHook()() {
		t.Error("expected false after clear")
	}
}

// TestIntegrationUnreachableTarget checks that an unusable destination is
// logged and counted without failing the hooks.
func TestIntegrationUnreachableTarget(t *testing.T) {
	sw := wakeswitch.New(wol.Build(targetMAC, ""), wol.NewUDPSender("127.0.0.1:99999"))
	tracker := status.NewTracker(startTime, status.Config{}, sw.On)
	sw.Subscribe(tracker)

	sw.WriteHook(wakeswitch.SourceHomeKit)(true)

	if !sw.ReadHook()() {
		t.Error("switch should report on even when every send failed")
	}
	if got := tracker.Snapshot().Counts.SendFailures; got != 3 {
		t.Errorf("SendFailures: got %d, want 3", got)
	}
}

// TestIntegrationEventsToMQTT follows a wake and a clear from the switch
// into the tracker and the MQTT payloads.
func TestIntegrationEventsToMQTT(t *testing.T) {
	sender := wol.NewFakeSender()
	now := startTime
	sw := wakeswitch.New(wol.Build(targetMAC, "eth0"), sender,
		wakeswitch.WithClock(func() time.Time { return now }))

	pub := mqtt.NewFakePublisher()
	tracker := status.NewTracker(startTime, status.Config{TargetMAC: "aa:bb:cc:dd:ee:ff", Interface: "eth0"}, sw.On)
	sw.Subscribe(tracker)
	sw.Subscribe(wakeswitch.ListenerFunc(func(e wakeswitch.Event) {
		if err := pub.Publish(e); err != nil {
			t.Errorf("publish: %v", err)
		}
	}))
	pub.SubscribeCommands(sw.WriteHook(wakeswitch.SourceMQTT))

	pub.Command("ON")
	now = now.Add(2 * time.Second)
	sw.WriteHook(wakeswitch.SourceHomeKit)(false)

	if sender.Count() != 3 {
		t.Fatalf("expected 3 sends, got %d", sender.Count())
	}
	for i, p := range sender.Sent {
		if p.Interface() != "eth0" {
			t.Errorf("send %d: interface %q, want eth0", i, p.Interface())
		}
	}

	if len(pub.Payloads) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(pub.Payloads))
	}
	var wake mqtt.Payload
	if err := json.Unmarshal(pub.Payloads[0], &wake); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if wake.WOL.Event != "WAKE" || wake.WOL.Source != "mqtt" || wake.WOL.Attempts != 3 {
		t.Errorf("unexpected wake payload %+v", wake.WOL)
	}
	if !strings.Contains(string(pub.Payloads[1]), `"event":"CLEAR"`) {
		t.Errorf("unexpected clear payload %s", pub.Payloads[1])
	}

	snap := tracker.Snapshot()
	if snap.On {
		t.Error("expected off after clear")
	}
	if snap.Counts.Wakes != 1 || snap.Counts.Clears != 1 {
		t.Errorf("unexpected counts %+v", snap.Counts)
	}
	if !snap.LastWake.Equal(startTime) {
		t.Errorf("LastWake: got %v, want %v", snap.LastWake, startTime)
	}
}
