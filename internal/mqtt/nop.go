package mqtt

import "github.com/sweeney/wol-switch/internal/wakeswitch"

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(wakeswitch.Event) error { return nil }

func (NopPublisher) PublishSystem(SystemEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

func (NopPublisher) IsConnected() bool { return false }

func (NopPublisher) SubscribeCommands(func(on bool)) error { return nil }
