package broadcaster

import (
	"context"
	"errors"
	"strings"
)

// Func adapts a function to the Broadcaster interface.
type Func func(ctx context.Context, event Event) error

func (f Func) Broadcast(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// Fanout multicasts events to every target, optionally restricted to a set
// of topic prefixes.
type Fanout struct {
	targets  []Broadcaster
	prefixes []string
}

// NewFanout drops nil targets.
func NewFanout(targets ...Broadcaster) *Fanout {
	out := &Fanout{}
	for _, target := range targets {
		if target != nil {
			out.targets = append(out.targets, target)
		}
	}
	return out
}

// Only returns a copy of f that forwards events whose topic starts with one
// of prefixes.
func (f *Fanout) Only(prefixes ...string) *Fanout {
	return &Fanout{
		targets:  append([]Broadcaster(nil), f.targets...),
		prefixes: append([]string(nil), prefixes...),
	}
}

var _ Broadcaster = (*Fanout)(nil)

// Broadcast delivers event to each target and joins their errors. Targets
// not yet reached when ctx is done are skipped.
func (f *Fanout) Broadcast(ctx context.Context, event Event) error {
	if !f.accepts(event.Topic) {
		return nil
	}
	var errs []error
	for _, target := range f.targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := target.Broadcast(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) accepts(topic string) bool {
	if len(f.prefixes) == 0 {
		return true
	}
	for _, prefix := range f.prefixes {
		if strings.HasPrefix(topic, prefix) {
			return true
		}
	}
	return false
}
