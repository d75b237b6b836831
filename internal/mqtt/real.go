package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/wol-switch/internal/wakeswitch"
)

// bufferCapacity is how many messages are kept while disconnected.
const bufferCapacity = 100

// Config configures a RealPublisher.
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	topics Topics

	mu        sync.Mutex
	buf       *ringBuffer
	onCommand func(on bool)
	connected bool // at least one successful connect
}

// NewRealPublisher creates a publisher for the given broker. If the broker
// is unreachable within the connect timeout the client keeps retrying in the
// background and messages are buffered until it connects.
func NewRealPublisher(cfg Config) (*RealPublisher, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "wol-switch"
	}
	p := &RealPublisher{
		topics: NewTopics(cfg.TopicPrefix),
		buf:    newRingBuffer(bufferCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(p.topics.System, will, 1, true).
		SetOnConnectHandler(p.handleConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering", cfg.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// handleConnect resubscribes and replays buffered messages. paho runs it
// on its own goroutine.
func (p *RealPublisher) handleConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	fn := p.onCommand
	pending, dropped := p.buf.drainAll()
	p.mu.Unlock()

	if fn != nil {
		if err := p.subscribe(fn); err != nil {
			log.Printf("mqtt: %v", err)
		}
	}

	if len(pending) > 0 {
		log.Printf("mqtt: replaying %d buffered messages (%d dropped)", len(pending), dropped)
	}
	for _, m := range pending {
		if err := p.send(m.topic, m.qos, m.retained, m.payload); err != nil {
			log.Printf("mqtt: replay: %v", err)
		}
	}

	if reconnect {
		if err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}); err != nil {
			log.Printf("mqtt: publish reconnected: %v", err)
		}
	}
}

// Publish sends a switch event to the MQTT broker.
func (p *RealPublisher) Publish(event wakeswitch.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 1, not retained
	return p.publish(p.topics.Events, 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	return p.publish(p.topics.System, 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	return p.send(topic, qos, retained, payload)
}

func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// SubscribeCommands delivers parsed commands from the command topic to fn.
// The subscription is renewed on every reconnect.
func (p *RealPublisher) SubscribeCommands(fn func(on bool)) error {
	p.mu.Lock()
	p.onCommand = fn
	p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		return nil
	}
	return p.subscribe(fn)
}

func (p *RealPublisher) subscribe(fn func(on bool)) error {
	token := p.client.Subscribe(p.topics.Command, 1, func(_ paho.Client, m paho.Message) {
		on, err := ParseCommand(m.Payload())
		if err != nil {
			log.Printf("mqtt: %s: %v", m.Topic(), err)
			return
		}
		fn(on)
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe %s timeout", p.topics.Command)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", p.topics.Command, err)
	}
	return nil
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
