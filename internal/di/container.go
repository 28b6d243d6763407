package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	i18n "github.com/goliatone/go-i18n"
	"go.opentelemetry.io/otel/trace"

	"github.com/interprelab/go-offline-cache/internal/templates"
	"github.com/interprelab/go-offline-cache/pkg/adapters/firebase"
	"github.com/interprelab/go-offline-cache/pkg/adapters/webhook"
	"github.com/interprelab/go-offline-cache/pkg/commands"
	"github.com/interprelab/go-offline-cache/pkg/config"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/broadcaster"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
	"github.com/interprelab/go-offline-cache/pkg/locales"
	"github.com/interprelab/go-offline-cache/pkg/notify"
	"github.com/interprelab/go-offline-cache/pkg/offline"
	"github.com/interprelab/go-offline-cache/pkg/storage"
	"github.com/interprelab/go-offline-cache/pkg/syncer"
)

// Options configure the DI container. Zero values fall back to the
// configured defaults.
type Options struct {
	Config     config.Config
	Storage    *storage.Provider
	Network    offline.Fetcher
	Logger     logger.Logger
	Translator i18n.Translator
	Events     *broadcaster.Recorder
	// Broadcaster receives every controller event alongside Events.
	Broadcaster broadcaster.Broadcaster
	Notifiers   []notify.Notifier
	Tracer      trace.Tracer
}

// Container wires storage, the offline controller, background sync, and
// the command registry.
type Container struct {
	Config     config.Config
	Logger     logger.Logger
	Storage    storage.Provider
	Translator i18n.Translator
	Pages      *templates.Renderer
	Events     *broadcaster.Recorder
	Bus        *broadcaster.Fanout
	Notifier   notify.Multi
	Controller *offline.Controller
	Syncs      *syncer.Manager
	Commands   *commands.Registry
}

func isZeroConfig(cfg config.Config) bool {
	return reflect.ValueOf(cfg).IsZero()
}

// New constructs the container using the supplied options. On error every
// resource opened so far is released.
func New(ctx context.Context, opts Options) (*Container, error) {
	cfg := opts.Config
	if isZeroConfig(cfg) {
		cfg = config.Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lgr := opts.Logger
	if lgr == nil {
		lgr = &logger.Nop{}
	}

	c := &Container{Config: cfg, Logger: lgr}
	if opts.Storage != nil {
		c.Storage = *opts.Storage
	} else {
		provider, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("di: open storage: %w", err)
		}
		c.Storage = provider
	}

	if err := c.build(opts); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) build(opts Options) error {
	cfg := c.Config

	c.Translator = opts.Translator
	if c.Translator == nil {
		translator, err := locales.NewTranslator(cfg.Push.Locale)
		if err != nil {
			return fmt.Errorf("di: build translator: %w", err)
		}
		c.Translator = translator
	}

	pages, err := templates.New(c.Translator, templates.WithDefaultLocale(cfg.Push.Locale))
	if err != nil {
		return fmt.Errorf("di: build offline page renderer: %w", err)
	}
	c.Pages = pages

	network := opts.Network
	if network == nil {
		timeout := cfg.Network.Timeout
		if timeout < 0 {
			timeout = 0
		}
		network, err = offline.NewHTTPFetcher(cfg.Network.Origin, &http.Client{Timeout: timeout})
		if err != nil {
			return err
		}
	}

	c.Events = opts.Events
	if c.Events == nil {
		c.Events = broadcaster.NewRecorder(100)
	}

	lifecycle := broadcaster.Func(func(ctx context.Context, evt broadcaster.Event) error {
		c.Logger.Debug("controller event", logger.F("topic", evt.Topic), logger.F("payload", evt.Payload))
		return nil
	})
	c.Bus = broadcaster.NewFanout(c.Events, opts.Broadcaster, broadcaster.NewFanout(lifecycle).Only(broadcaster.TopicLifecycle))

	c.Notifier = notify.Multi{
		notify.NewBroadcastNotifier(c.Bus, c.Logger),
		notify.NewConsole(c.Logger, notify.WithStructured(true)),
	}
	if len(cfg.Push.Tokens) > 0 && (strings.TrimSpace(cfg.Push.ServerKey) != "" || cfg.Push.DryRun) {
		c.Notifier = append(c.Notifier, firebase.New(c.Logger, firebase.WithConfig(firebase.ConfigFromPush(cfg.Push))))
	}
	if cfg.Webhook.Enabled() {
		c.Notifier = append(c.Notifier, webhook.New(c.Logger, webhook.WithConfig(webhook.ConfigFrom(cfg.Webhook))))
	}
	for _, n := range opts.Notifiers {
		if n != nil {
			c.Notifier = append(c.Notifier, n)
		}
	}

	c.Controller, err = offline.New(offline.OptionsFromConfig(cfg), offline.Dependencies{
		Storage:     c.Storage.Storage,
		Network:     network,
		Notifier:    c.Notifier,
		Clients:     notify.NewBroadcastClients(c.Bus),
		Broadcaster: c.Bus,
		Pages:       c.Pages,
		Translator:  c.Translator,
		Logger:      c.Logger,
		Tracer:      opts.Tracer,
	})
	if err != nil {
		return err
	}

	c.Syncs, err = syncer.New(syncer.Dependencies{
		Handler: c.Controller,
		Config:  cfg.Sync,
		Logger:  c.Logger,
	})
	if err != nil {
		return err
	}

	c.Commands, err = commands.New(commands.Dependencies{
		Controller: c.Controller,
		Queue:      c.Syncs,
		Logger:     c.Logger,
	})
	return err
}

// Close stops background sync, drains pending cache writes and releases
// storage.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Syncs != nil {
		errs = append(errs, c.Syncs.Close())
	}
	if c.Controller != nil {
		c.Controller.Wait()
	}
	errs = append(errs, c.Storage.Close())
	return errors.Join(errs...)
}
