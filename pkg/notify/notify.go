package notify

import (
	"context"
	"errors"
)

var (
	// ErrMissingTitle is returned when a notification has nothing to show.
	ErrMissingTitle = errors.New("notify: title required")
	// ErrMissingPath is returned when a client window would open nowhere.
	ErrMissingPath = errors.New("notify: path required")
)

// Action is a button attached to a notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Notification mirrors the options a page receives through showNotification.
type Notification struct {
	Title              string         `json:"title"`
	Body               string         `json:"body"`
	Icon               string         `json:"icon,omitempty"`
	Badge              string         `json:"badge,omitempty"`
	Tag                string         `json:"tag,omitempty"`
	RequireInteraction bool           `json:"requireInteraction"`
	Actions            []Action       `json:"actions,omitempty"`
	Data               map[string]any `json:"data,omitempty"`
}

// Validate checks the fields every transport depends on.
func (n Notification) Validate() error {
	if n.Title == "" {
		return ErrMissingTitle
	}
	return nil
}

// Notifier displays a system notification.
type Notifier interface {
	Show(ctx context.Context, n Notification) error
}

// Clients controls the pages attached to the controller.
type Clients interface {
	// Open focuses or opens a window at path.
	Open(ctx context.Context, path string) error
	// Claim takes control of every open page.
	Claim(ctx context.Context) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Show(ctx context.Context, n Notification) error {
	if f == nil {
		return nil
	}
	return f(ctx, n)
}

// Multi delivers to every notifier, joining failures.
type Multi []Notifier

func (m Multi) Show(ctx context.Context, n Notification) error {
	var errs []error
	for _, target := range m {
		if target == nil {
			continue
		}
		if err := target.Show(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop implements Notifier and Clients by discarding calls.
type Nop struct{}

var (
	_ Notifier = (*Nop)(nil)
	_ Clients  = (*Nop)(nil)
)

func (Nop) Show(context.Context, Notification) error { return nil }
func (Nop) Open(context.Context, string) error       { return nil }
func (Nop) Claim(context.Context) error              { return nil }
