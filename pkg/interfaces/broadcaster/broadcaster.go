package broadcaster

import "context"

// Topics published by the offline controller.
const (
	TopicNotification = "offline.notification"
	TopicClients      = "offline.clients"
	TopicLifecycle    = "offline.lifecycle"
)

// Event carries a payload destined for open pages (WebSocket/SSE/polling).
type Event struct {
	Topic   string
	Payload any
}

// Broadcaster pushes events to realtime transports.
type Broadcaster interface {
	Broadcast(ctx context.Context, event Event) error
}

// Nop broadcaster discards events.
type Nop struct{}

var _ Broadcaster = (*Nop)(nil)

func (n *Nop) Broadcast(ctx context.Context, event Event) error { return nil }
