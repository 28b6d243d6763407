package notify

import (
	"context"
	"fmt"

	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
)

// Console writes notifications to the logger for debugging.
type Console struct {
	logger     logger.Logger
	structured bool
}

type ConsoleOption func(*Console)

// WithStructured logs each notification field separately.
func WithStructured(enabled bool) ConsoleOption {
	return func(c *Console) {
		c.structured = enabled
	}
}

func NewConsole(l logger.Logger, opts ...ConsoleOption) *Console {
	if l == nil {
		l = &logger.Nop{}
	}
	c := &Console{logger: l}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

var _ Notifier = (*Console)(nil)

func (c *Console) Show(ctx context.Context, n Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if c.structured {
		c.logger.Info("console notification",
			logger.F("title", n.Title),
			logger.F("body", n.Body),
			logger.F("tag", n.Tag),
			logger.F("require_interaction", n.RequireInteraction),
			logger.F("actions", len(n.Actions)),
		)
		return nil
	}
	c.logger.Info(fmt.Sprintf("[console][%s] %s: %s", n.Tag, n.Title, n.Body))
	return nil
}
