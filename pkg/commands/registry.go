package commands

import (
	command "github.com/goliatone/go-command"

	internalcommands "github.com/interprelab/go-offline-cache/internal/commands"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/queue"
	"github.com/interprelab/go-offline-cache/pkg/offline"
)

// Re-export request types so consumers need not import internal packages.
type (
	Install           = internalcommands.Install
	Activate          = internalcommands.Activate
	RegisterSync      = internalcommands.RegisterSync
	RunSync           = internalcommands.RunSync
	Push              = internalcommands.Push
	NotificationClick = internalcommands.NotificationClick
)

// Registry exposes go-command compatible handlers backed by the controller.
type Registry struct {
	Catalog           *internalcommands.Catalog
	Install           command.Commander[Install]
	Activate          command.Commander[Activate]
	RegisterSync      command.Commander[RegisterSync]
	RunSync           command.Commander[RunSync]
	Push              command.Commander[Push]
	NotificationClick command.Commander[NotificationClick]
}

// Dependencies mirror the internal command dependencies but keep them public.
type Dependencies struct {
	Controller *offline.Controller
	Queue      queue.Queue
	Logger     logger.Logger
}

// New builds the registry using the provided dependencies.
func New(deps Dependencies) (*Registry, error) {
	catalogDeps := internalcommands.Dependencies{
		Queue:  deps.Queue,
		Logger: deps.Logger,
	}
	if deps.Controller != nil {
		catalogDeps.Controller = deps.Controller
	}
	catalog, err := internalcommands.NewCatalog(catalogDeps)
	if err != nil {
		return nil, err
	}
	return &Registry{
		Catalog:           catalog,
		Install:           catalog.Install,
		Activate:          catalog.Activate,
		RegisterSync:      catalog.RegisterSync,
		RunSync:           catalog.RunSync,
		Push:              catalog.Push,
		NotificationClick: catalog.NotificationClick,
	}, nil
}

// Commanders returns every handler so callers can register them with go-command registries.
func (r *Registry) Commanders() []any {
	if r == nil {
		return nil
	}
	return []any{
		r.Install,
		r.Activate,
		r.RegisterSync,
		r.RunSync,
		r.Push,
		r.NotificationClick,
	}
}
