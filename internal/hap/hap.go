// Package hap exposes the wake switch as a HomeKit accessory.
package hap

import (
	"fmt"
	"log"
	"sync"

	"github.com/brutella/hc"
	"github.com/brutella/hc/accessory"
	hclog "github.com/brutella/hc/log"
	"github.com/sweeney/wol-switch/internal/wakeswitch"
)

// Info describes the accessory to HomeKit controllers.
type Info struct {
	Name         string
	Manufacturer string
	Model        string
	SerialNumber string
	Firmware     string
}

// Config configures the IP transport.
type Config struct {
	Pin         string // 8 digits
	StoragePath string // pairing database directory
	Port        string // empty picks a random port
}

// characteristic is the part of the "On" characteristic the switch binds to.
type characteristic interface {
	OnValueRemoteGet(fn func() bool)
	OnValueRemoteUpdate(fn func(bool))
	SetValue(bool)
}

// Accessory is a HomeKit switch backed by a wakeswitch.Switch.
type Accessory struct {
	acc *accessory.Switch
	on  characteristic

	mu  sync.Mutex
	seq uint64 // last applied event
}

// NewAccessory builds the switch accessory and binds its characteristic to sw.
func NewAccessory(info Info, sw *wakeswitch.Switch) *Accessory {
	acc := accessory.NewSwitch(accessory.Info{
		Name:             info.Name,
		Manufacturer:     info.Manufacturer,
		Model:            info.Model,
		SerialNumber:     info.SerialNumber,
		FirmwareRevision: info.Firmware,
	})
	a := &Accessory{acc: acc, on: acc.Switch.On}
	bind(a.on, sw)
	sw.Subscribe(a)
	return a
}

// bind wires the read and write hooks. hc compares a getter's result with
// its cached value and fires the remote update callbacks when they differ,
// so the cache is brought in line before returning. A controller read
// never reaches the write hook.
func bind(c characteristic, sw *wakeswitch.Switch) {
	read := sw.ReadHook()
	c.OnValueRemoteGet(func() bool {
		on := read()
		c.SetValue(on)
		return on
	})
	c.OnValueRemoteUpdate(sw.WriteHook(wakeswitch.SourceHomeKit))
}

// SwitchChanged pushes transitions made outside HomeKit to paired
// controllers. HomeKit writes already carry the new value. Events older
// than the last one applied are dropped.
func (a *Accessory) SwitchChanged(e wakeswitch.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e.Seq < a.seq {
		return
	}
	a.seq = e.Seq
	if e.Source == wakeswitch.SourceHomeKit {
		return
	}
	a.on.SetValue(e.Type == wakeswitch.EventWake)
}

// Server runs the HomeKit IP transport for one accessory.
type Server struct {
	transport hc.Transport
}

// NewServer creates the transport. Pairings are loaded from cfg.StoragePath.
func NewServer(cfg Config, a *Accessory) (*Server, error) {
	t, err := hc.NewIPTransport(hc.Config{
		Pin:         cfg.Pin,
		StoragePath: cfg.StoragePath,
		Port:        cfg.Port,
	}, a.acc.Accessory)
	if err != nil {
		return nil, fmt.Errorf("create homekit transport: %w", err)
	}
	return &Server{transport: t}, nil
}

// Start advertises the accessory and serves controllers. It blocks until
// Stop is called.
func (s *Server) Start() {
	log.Printf("hap: accessory started")
	s.transport.Start()
}

// Stop stops the transport and waits for it to finish.
func (s *Server) Stop() {
	<-s.transport.Stop()
	log.Printf("hap: accessory stopped")
}

// EnableDebugLog turns on the HomeKit library's debug output.
func EnableDebugLog() {
	hclog.Debug.Enable()
}
