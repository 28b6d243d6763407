package commands

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	command "github.com/goliatone/go-command"

	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/queue"
	"github.com/interprelab/go-offline-cache/pkg/notify"
	"github.com/interprelab/go-offline-cache/pkg/offline"
)

// Catalog exposes go-command compatible handlers for host transports.
type Catalog struct {
	Install           command.Commander[Install]
	Activate          command.Commander[Activate]
	RegisterSync      command.Commander[RegisterSync]
	RunSync           command.Commander[RunSync]
	Push              command.Commander[Push]
	NotificationClick command.Commander[NotificationClick]
}

type controller interface {
	Install(ctx context.Context) (offline.InstallReport, error)
	Activate(ctx context.Context) (offline.ActivateReport, error)
	SkipWaiting() bool
	Sync(ctx context.Context, tag string) (offline.SyncReport, error)
	HandlePush(ctx context.Context, payload []byte) (notify.Notification, bool, error)
	NotificationClick(ctx context.Context, action string) error
}

// Dependencies wires the controller and the background sync queue.
type Dependencies struct {
	Controller controller
	Queue      queue.Queue
	Logger     logger.Logger
}

// NewCatalog builds the command catalog using the supplied dependencies.
func NewCatalog(deps Dependencies) (*Catalog, error) {
	if deps.Controller == nil {
		return nil, errors.New("commands: controller is required")
	}
	if deps.Queue == nil {
		deps.Queue = &queue.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	return &Catalog{
		Install:           installCommand{ctrl: deps.Controller, logger: deps.Logger},
		Activate:          activateCommand{ctrl: deps.Controller},
		RegisterSync:      registerSyncCommand{queue: deps.Queue},
		RunSync:           runSyncCommand{ctrl: deps.Controller},
		Push:              pushCommand{ctrl: deps.Controller},
		NotificationClick: clickCommand{ctrl: deps.Controller},
	}, nil
}

// Install runs the install phase and, when the install asks to skip
// waiting, activation right after it.
type Install struct {
	Report   *offline.InstallReport  `json:"-"`
	Activate *offline.ActivateReport `json:"-"`
}

type installCommand struct {
	ctrl   controller
	logger logger.Logger
}

func (c installCommand) Execute(ctx context.Context, msg Install) error {
	report, err := c.ctrl.Install(ctx)
	if msg.Report != nil {
		*msg.Report = report
	}
	if err != nil {
		return err
	}
	if !c.ctrl.SkipWaiting() {
		c.logger.Info("install complete, waiting for activation")
		return nil
	}
	activated, err := c.ctrl.Activate(ctx)
	if msg.Activate != nil {
		*msg.Activate = activated
	}
	return err
}

// Activate purges stale stores and claims open pages.
type Activate struct {
	Report *offline.ActivateReport `json:"-"`
}

type activateCommand struct {
	ctrl controller
}

func (c activateCommand) Execute(ctx context.Context, msg Activate) error {
	report, err := c.ctrl.Activate(ctx)
	if msg.Report != nil {
		*msg.Report = report
	}
	return err
}

// RegisterSync queues a background sync for Tag.
type RegisterSync struct {
	Tag string `json:"tag"`
}

type registerSyncCommand struct {
	queue queue.Queue
}

func (c registerSyncCommand) Execute(ctx context.Context, msg RegisterSync) error {
	tag := strings.TrimSpace(msg.Tag)
	if tag == "" {
		return errors.New("commands: sync tag is required")
	}
	return c.queue.Enqueue(ctx, queue.Job{Key: "sync:" + tag, Payload: tag})
}

// RunSync performs one sync pass immediately.
type RunSync struct {
	Tag    string              `json:"tag"`
	Report *offline.SyncReport `json:"-"`
}

type runSyncCommand struct {
	ctrl controller
}

func (c runSyncCommand) Execute(ctx context.Context, msg RunSync) error {
	report, err := c.ctrl.Sync(ctx, strings.TrimSpace(msg.Tag))
	if msg.Report != nil {
		*msg.Report = report
	}
	return err
}

// Push delivers a raw push payload. When set, Notification receives the
// notification that was shown and Shown reports whether one was.
type Push struct {
	Payload      json.RawMessage      `json:"payload"`
	Notification *notify.Notification `json:"-"`
	Shown        *bool                `json:"-"`
}

type pushCommand struct {
	ctrl controller
}

func (c pushCommand) Execute(ctx context.Context, msg Push) error {
	n, shown, err := c.ctrl.HandlePush(ctx, msg.Payload)
	if msg.Notification != nil {
		*msg.Notification = n
	}
	if msg.Shown != nil {
		*msg.Shown = shown
	}
	return err
}

// NotificationClick reports a click on a notification action.
type NotificationClick struct {
	Action string `json:"action"`
}

type clickCommand struct {
	ctrl controller
}

func (c clickCommand) Execute(ctx context.Context, msg NotificationClick) error {
	return c.ctrl.NotificationClick(ctx, strings.TrimSpace(msg.Action))
}
