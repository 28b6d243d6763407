package webhook

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

// ErrURLRequired is returned when delivery is attempted without a target.
var ErrURLRequired = errors.New("webhook: url is required")

// Adapter mirrors notifications to a generic HTTP endpoint, e.g. an on-call
// channel that should hear about every crisis push.
type Adapter struct {
	name   string
	cfg    Config
	client *http.Client
	logger logger.Logger
	now    func() time.Time
}

// Config configures the webhook adapter.
type Config struct {
	URL           string
	Method        string
	Headers       map[string]string
	BasicAuthUser string
	BasicAuthPass string
	Timeout       time.Duration
	DryRun        bool
}

// ConfigFrom maps module webhook settings onto adapter config.
func ConfigFrom(cfg config.WebhookConfig) Config {
	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	return Config{
		URL:           cfg.URL,
		Method:        cfg.Method,
		Headers:       headers,
		BasicAuthUser: cfg.BasicAuthUser,
		BasicAuthPass: cfg.BasicAuthPass,
		Timeout:       cfg.Timeout,
		DryRun:        cfg.DryRun,
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

// WithConfig sets the adapter configuration.
func WithConfig(cfg Config) Option {
	return func(a *Adapter) {
		a.cfg = cfg
	}
}

// WithClient allows injecting a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.client = c
		}
	}
}

// New constructs the webhook adapter.
func New(l logger.Logger, opts ...Option) *Adapter {
	if l == nil {
		l = &logger.Nop{}
	}
	adapter := &Adapter{
		name:   "webhook",
		logger: l,
		now:    func() time.Time { return time.Now().UTC() },
		cfg: Config{
			Method:  http.MethodPost,
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	if strings.TrimSpace(adapter.cfg.Method) == "" {
		adapter.cfg.Method = http.MethodPost
	}
	if adapter.client == nil {
		adapter.client = &http.Client{Timeout: adapter.cfg.Timeout}
	}
	return adapter
}

var _ notify.Notifier = (*Adapter)(nil)

func (a *Adapter) Name() string { return a.name }

// Show posts n as a JSON document.
func (a *Adapter) Show(ctx context.Context, n notify.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if a.cfg.DryRun {
		a.logger.Info("[webhook:dry-run] send skipped",
			logger.F("adapter", a.name),
			logger.F("url", a.cfg.URL),
			logger.F("title", n.Title),
		)
		return nil
	}
	if strings.TrimSpace(a.cfg.URL) == "" {
		return ErrURLRequired
	}

	body, err := json.Marshal(a.payload(n))
	if err != nil {
		return fmt.Errorf("webhook: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(a.cfg.Method), a.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	for k, v := range a.cfg.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.cfg.BasicAuthUser != "" {
		req.SetBasicAuth(a.cfg.BasicAuthUser, a.cfg.BasicAuthPass)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.logFailure(err)
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
		a.logFailure(err)
		return err
	}
	a.logger.Info("adapter delivered notification",
		logger.F("adapter", a.name),
		logger.F("tag", n.Tag),
		logger.F("url", a.cfg.URL),
	)
	return nil
}

func (a *Adapter) payload(n notify.Notification) map[string]any {
	payload := map[string]any{
		"event":              "notification",
		"title":              n.Title,
		"body":               n.Body,
		"tag":                n.Tag,
		"requireInteraction": n.RequireInteraction,
		"sent_at":            a.now().Format(time.RFC3339),
	}
	if n.Icon != "" {
		payload["icon"] = n.Icon
	}
	if n.Badge != "" {
		payload["badge"] = n.Badge
	}
	if len(n.Actions) > 0 {
		payload["actions"] = n.Actions
	}
	if len(n.Data) > 0 {
		payload["data"] = n.Data
	}
	return payload
}

func (a *Adapter) logFailure(err error) {
	fields := []logger.Field{
		logger.F("adapter", a.name),
		logger.F("url", a.cfg.URL),
		logger.F("error", err),
	}
	if a.cfg.BasicAuthUser != "" {
		fields = append(fields, logger.F("basic_auth_pass", notify.Mask(a.cfg.BasicAuthPass)))
	}
	a.logger.Error("adapter delivery failed", fields...)
}
