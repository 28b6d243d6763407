package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"

	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
	"github.com/interprelab/go-offline-cache/pkg/locales"
	"github.com/interprelab/go-offline-cache/pkg/notify"
)

const (
	// SyncTagCriticalData refreshes every critical API snapshot.
	SyncTagCriticalData = "sync-critical-data"
	// PushTypeCrisisSupport is the only push type that raises a notification.
	PushTypeCrisisSupport = "crisis-support"
	// NotificationTag groups crisis notifications so a new one replaces the last.
	NotificationTag = "crisis-support"

	ActionOpenSupport = "open-support"
	ActionDismiss     = "dismiss"
)

// PushMessage is the JSON body of a push event.
type PushMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// SyncReport summarizes a background sync run.
type SyncReport struct {
	Tag       string           `json:"tag"`
	Skipped   bool             `json:"skipped"`
	Endpoints []EndpointResult `json:"endpoints"`
}

// FailedEndpoints lists endpoints that could not be refreshed.
func (r SyncReport) FailedEndpoints() []string {
	return failed(r.Endpoints)
}

// AllFailed reports whether every endpoint failed, i.e. the origin was unreachable.
func (r SyncReport) AllFailed() bool {
	return len(r.Endpoints) > 0 && len(r.FailedEndpoints()) == len(r.Endpoints)
}

// Sync handles a background sync event. Unknown tags are ignored.
func (c *Controller) Sync(ctx context.Context, tag string) (SyncReport, error) {
	report := SyncReport{Tag: tag}
	if tag != SyncTagCriticalData {
		c.logger.Debug("ignoring sync tag", logger.F("tag", tag))
		report.Skipped = true
		return report, nil
	}

	ctx, span := c.tracer.Start(ctx, "offline.sync")
	defer span.End()

	store, err := c.storage.Open(ctx, c.opts.APICache)
	if err != nil {
		span.RecordError(err)
		return report, fmt.Errorf("offline: open %s: %w", c.opts.APICache, err)
	}
	report.Endpoints = c.refresh(ctx, store, c.opts.CriticalAPI)
	c.logger.Info("background sync complete",
		logger.F("tag", tag),
		logger.F("failed", len(report.FailedEndpoints())),
	)
	return report, nil
}

// Push handles a push event. An empty payload or a type other than
// crisis-support is ignored.
func (c *Controller) Push(ctx context.Context, payload []byte) error {
	_, _, err := c.HandlePush(ctx, payload)
	return err
}

// HandlePush is Push that also returns the notification it showed, so a
// browser bridge can display it. The boolean is false when the payload was
// ignored.
func (c *Controller) HandlePush(ctx context.Context, payload []byte) (notify.Notification, bool, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return notify.Notification{}, false, nil
	}
	var msg PushMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return notify.Notification{}, false, fmt.Errorf("%w: %w", ErrInvalidPushPayload, err)
	}
	if msg.Type != PushTypeCrisisSupport {
		c.logger.Debug("ignoring push type", logger.F("type", msg.Type))
		return notify.Notification{}, false, nil
	}

	n := c.CrisisNotification(msg.Message)
	if err := c.notifier.Show(ctx, n); err != nil {
		return n, false, fmt.Errorf("offline: show notification: %w", err)
	}
	return n, true, nil
}

// CrisisNotification builds the crisis-support notification for message,
// falling back to the localized default body.
func (c *Controller) CrisisNotification(message string) notify.Notification {
	locale := c.opts.Locale
	text := func(key string) string {
		return locales.Text(c.translator, locale, key)
	}
	if c.translator == nil {
		text = func(key string) string {
			return defaultText[key]
		}
	}

	body := flatten(message)
	if body == "" {
		body = text(locales.KeyNotifyBody)
	}
	return notify.Notification{
		Title:              text(locales.KeyNotifyTitle),
		Body:               body,
		Icon:               c.opts.Icon,
		Badge:              c.opts.Badge,
		Tag:                NotificationTag,
		RequireInteraction: true,
		Actions: []notify.Action{
			{Action: ActionOpenSupport, Title: text(locales.KeyNotifyOpen)},
			{Action: ActionDismiss, Title: text(locales.KeyNotifyDismiss)},
		},
		Data: map[string]any{"url": c.opts.CrisisPath},
	}
}

// NotificationClick handles a click on a notification action. Only
// open-support navigates; every other action just closes the notification.
func (c *Controller) NotificationClick(ctx context.Context, action string) error {
	if action != ActionOpenSupport {
		return nil
	}
	if err := c.clients.Open(ctx, c.opts.CrisisPath); err != nil {
		return fmt.Errorf("offline: open %s: %w", c.opts.CrisisPath, err)
	}
	return nil
}

var defaultText = map[string]string{
	locales.KeyNotifyTitle:   "InterpreLab Crisis Support",
	locales.KeyNotifyBody:    "Crisis support is available. You are not alone.",
	locales.KeyNotifyOpen:    "Open Support",
	locales.KeyNotifyDismiss: "Dismiss",
}

var (
	markupTag = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9-]*(\s[^<>]*)?/?>`)
	// A closing tag, a self-closing tag or <br> marks a message as HTML.
	markupHint = regexp.MustCompile(`(?i)</[a-z][a-z0-9-]*\s*>|<[a-z][a-z0-9-]*(\s[^<>]*)?/>|<br\s*>`)
)

// flatten turns an HTML push message into plain text. Messages without
// tags are returned as-is, and when html2text loses text the tag-stripped
// message is used instead.
func flatten(message string) string {
	message = strings.TrimSpace(message)
	if !markupHint.MatchString(message) {
		return message
	}
	stripped := collapse(html.UnescapeString(markupTag.ReplaceAllString(message, " ")))
	text, err := html2text.FromString(message, html2text.Options{})
	if err != nil {
		return stripped
	}
	text = collapse(text)
	if len(text) < len(stripped) {
		return stripped
	}
	return text
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
