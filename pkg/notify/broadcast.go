package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/interprelab/go-offline-cache/pkg/interfaces/broadcaster"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
)

// BroadcastNotifier surfaces notifications to open pages via a broadcaster.
type BroadcastNotifier struct {
	broadcaster broadcaster.Broadcaster
	logger      logger.Logger
}

// NewBroadcastNotifier wires a notifier to b; nil values fall back to no-ops.
func NewBroadcastNotifier(b broadcaster.Broadcaster, l logger.Logger) *BroadcastNotifier {
	if b == nil {
		b = &broadcaster.Nop{}
	}
	if l == nil {
		l = &logger.Nop{}
	}
	return &BroadcastNotifier{broadcaster: b, logger: l}
}

var _ Notifier = (*BroadcastNotifier)(nil)

func (n *BroadcastNotifier) Show(ctx context.Context, notification Notification) error {
	if err := notification.Validate(); err != nil {
		return err
	}
	if err := n.broadcaster.Broadcast(ctx, broadcaster.Event{
		Topic:   broadcaster.TopicNotification,
		Payload: notification,
	}); err != nil {
		return fmt.Errorf("notify: broadcast notification: %w", err)
	}
	n.logger.Debug("notification broadcast", logger.F("tag", notification.Tag))
	return nil
}

// ClientCommand is the payload published on broadcaster.TopicClients.
type ClientCommand struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

// BroadcastClients asks open pages to navigate or accept control.
type BroadcastClients struct {
	broadcaster broadcaster.Broadcaster
}

func NewBroadcastClients(b broadcaster.Broadcaster) *BroadcastClients {
	if b == nil {
		b = &broadcaster.Nop{}
	}
	return &BroadcastClients{broadcaster: b}
}

var _ Clients = (*BroadcastClients)(nil)

func (c *BroadcastClients) Open(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrMissingPath
	}
	return c.broadcaster.Broadcast(ctx, broadcaster.Event{
		Topic:   broadcaster.TopicClients,
		Payload: ClientCommand{Type: "open-window", URL: path},
	})
}

func (c *BroadcastClients) Claim(ctx context.Context) error {
	return c.broadcaster.Broadcast(ctx, broadcaster.Event{
		Topic:   broadcaster.TopicClients,
		Payload: ClientCommand{Type: "claim"},
	})
}
