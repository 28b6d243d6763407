package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/interprelab/go-offline-cache/pkg/config"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
	"github.com/interprelab/go-offline-cache/pkg/notify"
)

const defaultEndpoint = "https://fcm.googleapis.com/fcm/send"

var (
	// ErrServerKeyRequired is returned when delivery is attempted without credentials.
	ErrServerKeyRequired = errors.New("firebase: server key required")
	// ErrTargetRequired is returned when neither tokens nor a topic are configured.
	ErrTargetRequired = errors.New("firebase: a target is required (tokens or topic)")
)

// Adapter delivers crisis notifications through Firebase Cloud Messaging
// (legacy HTTP API, server key authentication).
type Adapter struct {
	name   string
	cfg    Config
	client *http.Client
	logger logger.Logger
}

// Config holds FCM settings.
type Config struct {
	ServerKey string
	Endpoint  string
	Tokens    []string
	Topic     string
	Timeout   time.Duration
	DryRun    bool
}

// ConfigFromPush maps module push settings onto adapter config.
func ConfigFromPush(cfg config.PushConfig) Config {
	return Config{
		ServerKey: cfg.ServerKey,
		Endpoint:  cfg.Endpoint,
		Tokens:    append([]string(nil), cfg.Tokens...),
		Timeout:   cfg.Timeout,
		DryRun:    cfg.DryRun,
	}
}

type Option func(*Adapter)

// WithName overrides the adapter name.
func WithName(name string) Option {
	return func(a *Adapter) {
		if strings.TrimSpace(name) != "" {
			a.name = name
		}
	}
}

// WithConfig sets FCM configuration.
func WithConfig(cfg Config) Option {
	return func(a *Adapter) {
		a.cfg = cfg
	}
}

// WithClient injects a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.client = c
		}
	}
}

// New constructs the Firebase adapter.
func New(l logger.Logger, opts ...Option) *Adapter {
	if l == nil {
		l = &logger.Nop{}
	}
	adapter := &Adapter{
		name:   "firebase",
		logger: l,
		cfg: Config{
			Endpoint: defaultEndpoint,
			Timeout:  10 * time.Second,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	if adapter.cfg.Endpoint == "" {
		adapter.cfg.Endpoint = defaultEndpoint
	}
	if adapter.client == nil {
		adapter.client = &http.Client{Timeout: adapter.cfg.Timeout}
	}
	return adapter
}

var _ notify.Notifier = (*Adapter)(nil)

func (a *Adapter) Name() string { return a.name }

// Show sends n to every configured token (one multicast request) or topic.
func (a *Adapter) Show(ctx context.Context, n notify.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if len(a.cfg.Tokens) == 0 && strings.TrimSpace(a.cfg.Topic) == "" {
		return ErrTargetRequired
	}
	if a.cfg.DryRun {
		a.logger.Info("[firebase:dry-run] send skipped",
			logger.F("adapter", a.name),
			logger.F("tokens", notify.MaskAll(a.cfg.Tokens)),
			logger.F("title", n.Title),
		)
		return nil
	}
	if strings.TrimSpace(a.cfg.ServerKey) == "" {
		return ErrServerKeyRequired
	}

	body, err := json.Marshal(a.payload(n))
	if err != nil {
		return fmt.Errorf("firebase: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("firebase: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+strings.TrimSpace(a.cfg.ServerKey))

	resp, err := a.client.Do(req)
	if err != nil {
		a.logFailure(err)
		return fmt.Errorf("firebase: request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("firebase: unexpected status %d", resp.StatusCode)
		a.logFailure(err)
		return err
	}
	a.logger.Info("adapter delivered notification",
		logger.F("adapter", a.name),
		logger.F("tag", n.Tag),
		logger.F("tokens", notify.MaskAll(a.cfg.Tokens)),
	)
	return nil
}

func (a *Adapter) payload(n notify.Notification) map[string]any {
	data := map[string]any{
		"tag":                n.Tag,
		"requireInteraction": n.RequireInteraction,
	}
	for k, v := range n.Data {
		data[k] = v
	}
	if len(n.Actions) > 0 {
		if raw, err := json.Marshal(n.Actions); err == nil {
			data["actions"] = string(raw)
		}
	}
	notification := map[string]any{
		"title": n.Title,
		"body":  n.Body,
		"tag":   n.Tag,
	}
	if n.Icon != "" {
		notification["icon"] = n.Icon
	}
	if n.Badge != "" {
		notification["badge"] = n.Badge
	}
	if url, ok := n.Data["url"].(string); ok && url != "" {
		notification["click_action"] = url
	}

	payload := map[string]any{
		"notification": notification,
		"data":         data,
		"priority":     "high",
	}
	switch {
	case strings.TrimSpace(a.cfg.Topic) != "":
		payload["to"] = "/topics/" + strings.TrimPrefix(strings.TrimSpace(a.cfg.Topic), "/topics/")
	case len(a.cfg.Tokens) == 1:
		payload["to"] = a.cfg.Tokens[0]
	default:
		payload["registration_ids"] = a.cfg.Tokens
	}
	return payload
}

func (a *Adapter) logFailure(err error) {
	a.logger.Error("adapter delivery failed",
		logger.F("adapter", a.name),
		logger.F("server_key", notify.Mask(a.cfg.ServerKey)),
		logger.F("error", err),
	)
}
