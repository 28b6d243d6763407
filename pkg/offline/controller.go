package offline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	i18n "github.com/goliatone/go-i18n"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/interprelab/go-offline-cache/pkg/config"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/broadcaster"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/cache"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
	"github.com/interprelab/go-offline-cache/pkg/notify"
)

const instrumentationName = "github.com/interprelab/go-offline-cache/pkg/offline"

// State tracks the controller lifecycle.
type State string

const (
	StateParsed     State = "parsed"
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActive     State = "active"
	StateRedundant  State = "redundant"
)

// PageRenderer renders the synthetic offline document for a locale.
type PageRenderer interface {
	OfflinePage(ctx context.Context, locale string) ([]byte, error)
}

// Options carries the static configuration of a controller.
type Options struct {
	CriticalCache     string
	APICache          string
	APIPrefix         string
	OfflinePage       string
	CrisisPath        string
	CriticalResources []string
	CriticalAPI       []string
	// Timeout bounds each network fetch; negative disables it.
	Timeout time.Duration
	Icon    string
	Badge   string
	Locale  string
}

// OptionsFromConfig maps module configuration onto controller options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		CriticalCache:     cfg.Cache.CriticalCacheName(),
		APICache:          cfg.Cache.APICacheName(),
		APIPrefix:         cfg.Cache.APIPrefix,
		OfflinePage:       cfg.Cache.OfflinePage,
		CrisisPath:        cfg.Cache.CrisisPath,
		CriticalResources: append([]string(nil), cfg.Cache.CriticalResources...),
		CriticalAPI:       append([]string(nil), cfg.Cache.CriticalAPI...),
		Timeout:           cfg.Network.Timeout,
		Icon:              cfg.Push.Icon,
		Badge:             cfg.Push.Badge,
		Locale:            cfg.Push.Locale,
	}
}

func (o Options) withDefaults() Options {
	defaults := OptionsFromConfig(config.Defaults())
	if o.CriticalCache == "" {
		o.CriticalCache = defaults.CriticalCache
	}
	if o.APICache == "" {
		o.APICache = defaults.APICache
	}
	if o.APIPrefix == "" {
		o.APIPrefix = defaults.APIPrefix
	}
	if o.OfflinePage == "" {
		o.OfflinePage = defaults.OfflinePage
	}
	if o.CrisisPath == "" {
		o.CrisisPath = defaults.CrisisPath
	}
	if o.CriticalResources == nil {
		o.CriticalResources = defaults.CriticalResources
	}
	if o.CriticalAPI == nil {
		o.CriticalAPI = defaults.CriticalAPI
	}
	if o.Timeout == 0 {
		o.Timeout = defaults.Timeout
	}
	if o.Icon == "" {
		o.Icon = defaults.Icon
	}
	if o.Badge == "" {
		o.Badge = defaults.Badge
	}
	if o.Locale == "" {
		o.Locale = defaults.Locale
	}
	return o
}

func (o Options) validate() error {
	if o.CriticalCache == o.APICache {
		return fmt.Errorf("%w: cache names must differ (%s)", ErrInvalidOptions, o.CriticalCache)
	}
	if !strings.HasPrefix(o.APIPrefix, "/") {
		return fmt.Errorf("%w: api prefix %q must start with /", ErrInvalidOptions, o.APIPrefix)
	}
	return nil
}

// Dependencies are the collaborators of a Controller. Storage and Network are
// required; everything else falls back to a no-op.
type Dependencies struct {
	Storage     cache.Storage
	Network     Fetcher
	Notifier    notify.Notifier
	Clients     notify.Clients
	Broadcaster broadcaster.Broadcaster
	Pages       PageRenderer
	Translator  i18n.Translator
	Logger      logger.Logger
	Tracer      trace.Tracer
}

// Controller intercepts fetches for the app and keeps the offline caches.
type Controller struct {
	opts        Options
	storage     cache.Storage
	network     Fetcher
	notifier    notify.Notifier
	clients     notify.Clients
	broadcaster broadcaster.Broadcaster
	pages       PageRenderer
	translator  i18n.Translator
	logger      logger.Logger
	tracer      trace.Tracer

	critical map[string]struct{}

	mu          sync.RWMutex
	state       State
	skipWaiting bool

	pending sync.WaitGroup
}

// New builds a controller in the parsed state.
func New(opts Options, deps Dependencies) (*Controller, error) {
	if deps.Storage == nil {
		return nil, ErrMissingStorage
	}
	if deps.Network == nil {
		return nil, ErrMissingNetwork
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Clients == nil {
		deps.Clients = notify.Nop{}
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = &broadcaster.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(instrumentationName)
	}

	critical := make(map[string]struct{}, len(opts.CriticalResources))
	for _, path := range opts.CriticalResources {
		critical[path] = struct{}{}
	}

	return &Controller{
		opts:        opts,
		storage:     deps.Storage,
		network:     deps.Network,
		notifier:    deps.Notifier,
		clients:     deps.Clients,
		broadcaster: deps.Broadcaster,
		pages:       deps.Pages,
		translator:  deps.Translator,
		logger:      deps.Logger,
		tracer:      deps.Tracer,
		critical:    critical,
		state:       StateParsed,
	}, nil
}

// Options returns the effective options.
func (c *Controller) Options() Options {
	return c.opts
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SkipWaiting reports whether the last install asked to take over immediately.
func (c *Controller) SkipWaiting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.skipWaiting
}

func (c *Controller) setState(ctx context.Context, state State) {
	c.mu.Lock()
	prev := c.state
	c.state = state
	c.mu.Unlock()
	if prev == state {
		return
	}
	c.logger.Debug("controller state changed", logger.F("from", prev), logger.F("to", state))
	if err := c.broadcaster.Broadcast(ctx, broadcaster.Event{
		Topic:   broadcaster.TopicLifecycle,
		Payload: map[string]any{"from": string(prev), "to": string(state)},
	}); err != nil {
		c.logger.Warn("lifecycle broadcast failed", logger.F("error", err))
	}
}

// Wait blocks until background cache writes started by Fetch complete.
func (c *Controller) Wait() {
	c.pending.Wait()
}

// fetchNetwork runs a network fetch bounded by the configured timeout and
// folds non-ok statuses into ErrNetwork.
func (c *Controller) fetchNetwork(ctx context.Context, req *Request) (*Response, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	resp, err := c.network.Fetch(ctx, req)
	if err != nil {
		if errors.Is(err, ErrNetwork) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response for %s", ErrNetwork, req.Path())
	}
	if !resp.OK() {
		url := resp.URL
		if url == "" {
			url = req.Path()
		}
		return nil, &StatusError{Status: resp.Status, URL: url}
	}
	if resp.Source == "" {
		resp.Source = SourceNetwork
	}
	return resp, nil
}

// match looks key up in the named store. Storage failures count as a miss.
func (c *Controller) match(ctx context.Context, storeName, key string) (*Response, bool) {
	store, err := c.storage.Open(ctx, storeName)
	if err != nil {
		c.logger.Warn("cache open failed", logger.F("store", storeName), logger.F("error", err))
		return nil, false
	}
	entry, ok, err := store.Match(ctx, key)
	if err != nil {
		c.logger.Warn("cache match failed", logger.F("store", storeName), logger.F("key", key), logger.F("error", err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return responseFromEntry(entry), true
}

// storeAsync writes a copy of resp without holding up the caller.
func (c *Controller) storeAsync(ctx context.Context, storeName, key string, resp *Response) {
	entry := resp.entry(key)
	ctx = context.WithoutCancel(ctx)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		if err := c.put(ctx, storeName, entry); err != nil {
			c.logger.Warn("cache write failed", logger.F("store", storeName), logger.F("key", key), logger.F("error", err))
		}
	}()
}

func (c *Controller) put(ctx context.Context, storeName string, entry cache.Entry) error {
	store, err := c.storage.Open(ctx, storeName)
	if err != nil {
		return err
	}
	return store.Put(ctx, entry)
}

func (c *Controller) isCritical(path string) bool {
	if path == "/" {
		return true
	}
	_, ok := c.critical[path]
	return ok
}
