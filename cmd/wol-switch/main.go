// Command wol-switch exposes a HomeKit switch that wakes a machine with a
// Wake-on-LAN magic packet.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/wol-switch/internal/config"
	"github.com/sweeney/wol-switch/internal/gpio"
	"github.com/sweeney/wol-switch/internal/hap"
	"github.com/sweeney/wol-switch/internal/logic"
	"github.com/sweeney/wol-switch/internal/mqtt"
	"github.com/sweeney/wol-switch/internal/schedule"
	"github.com/sweeney/wol-switch/internal/status"
	"github.com/sweeney/wol-switch/internal/wakeswitch"
	"github.com/sweeney/wol-switch/internal/web"
	"github.com/sweeney/wol-switch/internal/wol"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	// eventQueue bounds switch events waiting to be published.
	eventQueue = 32

	// housekeepingInterval is how often MQTT state and the heartbeat are checked.
	housekeepingInterval = time.Second
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	var o overrides
	flag.StringVar(&o.mac, "mac", "", "Target MAC address")
	flag.StringVar(&o.iface, "iface", "", "Network interface to send from")
	flag.StringVar(&o.broadcast, "broadcast", "", "Broadcast address (host:port)")
	flag.DurationVar(&o.window, "window", 0, "How long the switch reports on after a wake")
	flag.IntVar(&o.burst, "burst", 0, "Packets sent per wake")
	flag.DurationVar(&o.heartbeat, "heartbeat", 0, "Heartbeat interval (negative to disable)")
	flag.StringVar(&o.pin, "pin", "", "HomeKit setup code (8 digits)")
	flag.StringVar(&o.storage, "storage", "", "HomeKit pairing storage directory")
	flag.StringVar(&o.broker, "broker", "", "MQTT broker address")
	flag.StringVar(&o.httpAddr, "http", "", `HTTP status address ("off" to disable)`)
	flag.IntVar(&o.buttonPin, "button-pin", 0, "GPIO line of the wake button")
	printPacket := flag.Bool("print-packet", false, "Print the magic packet as hex and exit")
	wake := flag.Bool("wake", false, "Send one wake burst and exit")
	verbose := flag.Bool("verbose", false, "Enable HomeKit debug logging")

	flag.Parse()

	cfg, err := loadConfig(*configPath, o)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	opts := runOptions{printPacket: *printPacket, wake: *wake, verbose: *verbose, out: os.Stdout}
	if err := run(cfg, opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// overrides holds command-line values that replace config keys when set.
type overrides struct {
	mac       string
	iface     string
	broadcast string
	window    time.Duration
	burst     int
	heartbeat time.Duration
	pin       string
	storage   string
	broker    string
	httpAddr  string
	buttonPin int
}

func (o overrides) apply(cfg *config.Config) {
	if o.mac != "" {
		cfg.TargetMAC = o.mac
	}
	if o.iface != "" {
		cfg.Interface = o.iface
	}
	if o.broadcast != "" {
		cfg.Broadcast = o.broadcast
	}
	if o.window != 0 {
		cfg.Window = o.window
	}
	if o.burst != 0 {
		cfg.Burst = o.burst
	}
	if o.heartbeat != 0 {
		cfg.Heartbeat = o.heartbeat
	}
	if o.pin != "" {
		cfg.HomeKit.Pin = o.pin
	}
	if o.storage != "" {
		cfg.HomeKit.StoragePath = o.storage
	}
	if o.broker != "" {
		cfg.MQTT.Broker = o.broker
	}
	if o.httpAddr != "" {
		cfg.HTTP.Addr = o.httpAddr
	}
	if o.buttonPin != 0 {
		cfg.Button.Pin = o.buttonPin
	}
}

func loadConfig(path string, o overrides) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	o.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type runOptions struct {
	printPacket bool
	wake        bool
	verbose     bool
	out         io.Writer
}

// broker is everything run needs from the MQTT side.
type broker interface {
	mqtt.Publisher
	mqtt.ConnectionStatus
	mqtt.CommandSource
}

func run(cfg *config.Config, opts runOptions) error {
	mac, err := wol.ParseMAC(cfg.TargetMAC)
	if err != nil {
		return err
	}
	packet := wol.Build(mac, cfg.Interface)

	if opts.printPacket {
		return printPacket(opts.out, packet, mac)
	}

	sw := wakeswitch.New(packet, wol.NewUDPSender(cfg.Broadcast),
		wakeswitch.WithWindow(cfg.Window),
		wakeswitch.WithBurst(cfg.Burst))

	if opts.wake {
		e := sw.Activate(wakeswitch.SourceCLI)
		fmt.Fprintf(opts.out, "sent %d/%d packets to %s\n", e.Attempts-e.Failures, e.Attempts, packet)
		if e.Failures == e.Attempts {
			return fmt.Errorf("all %d sends failed", e.Attempts)
		}
		return nil
	}

	// Initialize MQTT
	var publisher broker = mqtt.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg), sw.On)
	sw.Subscribe(tracker)

	events := make(chan wakeswitch.Event, eventQueue)
	sw.Subscribe(forward(events))

	if err := publisher.SubscribeCommands(sw.WriteHook(wakeswitch.SourceMQTT)); err != nil {
		log.Printf("mqtt: subscribe commands: %v", err)
	}

	// Publish startup event with full status snapshot
	tracker.SetMQTTConnected(publisher.IsConnected())
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Enabled() {
		srv := web.New(cfg.HTTP.Addr, tracker, sw)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	if len(cfg.Schedule) > 0 {
		sched, err := schedule.New(cfg.Schedule, func() { sw.Activate(wakeswitch.SourceSchedule) })
		if err != nil {
			return fmt.Errorf("init schedule: %w", err)
		}
		sched.Start()
		defer sched.Stop()
		log.Printf("schedule: %d entries, next %v", sched.Len(), sched.Next())
	}

	var button gpio.Reader
	var tick <-chan time.Time
	if cfg.Button.Pin > 0 {
		r, err := gpio.NewRealReader(cfg.Button.Chip, cfg.Button.Pin)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer r.Close()
		button = r

		ticker := time.NewTicker(cfg.Button.Poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	if opts.verbose {
		hap.EnableDebugLog()
	}
	acc := hap.NewAccessory(hap.Info{
		Name:         cfg.HomeKit.Name,
		Manufacturer: cfg.HomeKit.Manufacturer,
		Model:        cfg.HomeKit.Model,
		SerialNumber: cfg.HomeKit.Serial,
		Firmware:     version,
	}, sw)
	hk, err := hap.NewServer(hap.Config{
		Pin:         cfg.HomeKit.Pin,
		StoragePath: cfg.HomeKit.StoragePath,
		Port:        cfg.HomeKit.Port,
	}, acc)
	if err != nil {
		return err
	}
	go hk.Start()
	defer hk.Stop()

	log.Printf("started: target=%s iface=%q broadcast=%s window=%v burst=%d broker=%s heartbeat=%v",
		packet.HardwareAddr(), cfg.Interface, cfg.Broadcast, cfg.Window, cfg.Burst, cfg.MQTT.Broker, cfg.Heartbeat)

	housekeeping := time.NewTicker(housekeepingInterval)
	defer housekeeping.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopConfig{
		sw:         sw,
		button:     button,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		debounce:   cfg.Button.Debounce,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
	}, tick, housekeeping.C, events, sigCh)
}

// printPacket writes the payload as hex after checking it decodes back to
// the configured target.
func printPacket(w io.Writer, p wol.MagicPacket, target [6]byte) error {
	got, ok := wol.Decode(p.Bytes())
	if !ok || !bytes.Equal(got, target[:]) {
		return fmt.Errorf("packet does not decode to target %s", net.HardwareAddr(target[:]))
	}
	fmt.Fprintln(w, p.Hex())
	return nil
}

func statusConfig(cfg *config.Config) status.Config {
	sc := status.Config{
		TargetMAC:   cfg.TargetMAC,
		Interface:   cfg.Interface,
		Broadcast:   cfg.Broadcast,
		WindowMs:    cfg.Window.Milliseconds(),
		Burst:       cfg.Burst,
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		ButtonPin:   cfg.Button.Pin,
		Schedule:    cfg.Schedule,
	}
	if sc.HeartbeatMs < 0 {
		sc.HeartbeatMs = 0
	}
	return sc
}

// forward hands switch events to ch without blocking the caller. HomeKit
// hooks run on the transport's goroutines and must not wait on MQTT.
func forward(ch chan<- wakeswitch.Event) wakeswitch.Listener {
	return wakeswitch.ListenerFunc(func(e wakeswitch.Event) {
		select {
		case ch <- e:
		default:
			log.Printf("event queue full, dropping %s %s", e.Type, e.ID)
		}
	})
}

type loopConfig struct {
	sw         *wakeswitch.Switch
	button     gpio.Reader // nil when no button is configured
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	debounce   time.Duration
	heartbeat  time.Duration
	now        func() time.Time
}

func runLoop(lc loopConfig, tick, housekeeping <-chan time.Time, events <-chan wakeswitch.Event, sig <-chan os.Signal) error {
	startTime := lc.now()
	detector := logic.NewDetector(lc.debounce, startTime)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			// Flush events queued before the signal.
		drain:
			for {
				select {
				case e := <-events:
					publishEvent(lc.publisher, e)
				default:
					break drain
				}
			}

			event := mqtt.SystemEvent{
				Timestamp: lc.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if lc.tracker != nil {
				refreshMQTT(lc)
				snap := lc.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := lc.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case e := <-events:
			publishEvent(lc.publisher, e)

		case <-tick:
			t := lc.now()
			pressed, err := lc.button.Read()
			if err != nil {
				log.Printf("gpio read error: %v", err)
				continue
			}

			for _, ev := range detector.Process(logic.Input{Pressed: pressed, Time: t}) {
				log.Printf("button: %s", ev.Type)
				if ev.Type == logic.EventPress {
					lc.sw.Activate(wakeswitch.SourceButton)
				}
			}

		case <-housekeeping:
			t := lc.now()
			if lc.tracker != nil {
				refreshMQTT(lc)
			}

			hbData := detector.CheckHeartbeat(t, lc.heartbeat)
			if hbData == nil {
				continue
			}
			log.Printf("heartbeat: uptime=%v presses=%d", hbData.Uptime, hbData.Counts.Presses)

			hbEvent := mqtt.SystemEvent{
				Timestamp: hbData.Timestamp,
				Event:     "HEARTBEAT",
			}
			if lc.tracker != nil {
				snap := lc.tracker.Snapshot()
				hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			if err := lc.publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

func publishEvent(p mqtt.Publisher, e wakeswitch.Event) {
	log.Printf("event: %s from %s (%d/%d sends failed)", e.Type, e.Source, e.Failures, e.Attempts)
	if err := p.Publish(e); err != nil {
		log.Printf("publish error: %v", err)
	}
}

func refreshMQTT(lc loopConfig) {
	if lc.mqttStatus != nil {
		lc.tracker.SetMQTTConnected(lc.mqttStatus.IsConnected())
	}
}
