package host

import (
	_ "embed"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/interprelab/go-offline-cache/pkg/commands"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/broadcaster"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/cache"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
	"github.com/interprelab/go-offline-cache/pkg/notify"
	"github.com/interprelab/go-offline-cache/pkg/offline"
)

// AdminPrefix is where lifecycle and event routes are mounted.
const AdminPrefix = "/_offline"

//go:embed assets/sw.js
var workerScript []byte

var errControllerRequired = errors.New("host: controller is required")

// Dependencies wires the fiber app.
type Dependencies struct {
	Controller *offline.Controller
	Commands   *commands.Registry
	Storage    cache.Storage
	Syncs      interface{ Pending() []string }
	Events     *broadcaster.Recorder
	Logger     logger.Logger
	AppName    string
}

type app struct {
	deps Dependencies
}

// NewApp builds the fiber app serving the worker script, admin routes and
// every other path through the controller.
func NewApp(deps Dependencies) (*fiber.App, error) {
	if deps.Controller == nil {
		return nil, errControllerRequired
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	if deps.Commands == nil {
		registry, err := commands.New(commands.Dependencies{Controller: deps.Controller, Logger: deps.Logger})
		if err != nil {
			return nil, err
		}
		deps.Commands = registry
	}
	if deps.AppName == "" {
		deps.AppName = "InterpreLab Offline Cache"
	}

	a := &app{deps: deps}
	f := fiber.New(fiber.Config{
		AppName:               deps.AppName,
		DisableStartupMessage: true,
		BodyLimit:             MaxRequestBody,
		ErrorHandler:          a.errorHandler,
	})
	f.Use(cors.New())

	f.Get("/sw.js", a.workerScript)

	admin := f.Group(AdminPrefix)
	admin.Post("/install", a.install)
	admin.Post("/activate", a.activate)
	admin.Post("/sync/:tag", a.sync)
	admin.Post("/push", a.push)
	admin.Post("/notifications/click", a.click)
	admin.Get("/status", a.status)

	f.Use(adaptor.HTTPHandler(NewHandler(deps.Controller, deps.Logger)))
	return f, nil
}

func (a *app) workerScript(c *fiber.Ctx) error {
	c.Set("Service-Worker-Allowed", "/")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderContentType, "application/javascript; charset=utf-8")
	return c.Send(workerScript)
}

func (a *app) install(c *fiber.Ctx) error {
	var installed offline.InstallReport
	var activated offline.ActivateReport
	err := a.deps.Commands.Install.Execute(c.UserContext(), commands.Install{Report: &installed, Activate: &activated})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"state":    a.deps.Controller.State(),
		"install":  installed,
		"activate": activated,
	})
}

func (a *app) activate(c *fiber.Ctx) error {
	var report offline.ActivateReport
	if err := a.deps.Commands.Activate.Execute(c.UserContext(), commands.Activate{Report: &report}); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"state":    a.deps.Controller.State(),
		"activate": report,
	})
}

func (a *app) sync(c *fiber.Ctx) error {
	tag := c.Params("tag")
	if c.QueryBool("wait") {
		var report offline.SyncReport
		if err := a.deps.Commands.RunSync.Execute(c.UserContext(), commands.RunSync{Tag: tag, Report: &report}); err != nil {
			return err
		}
		return c.JSON(report)
	}
	if err := a.deps.Commands.RegisterSync.Execute(c.UserContext(), commands.RegisterSync{Tag: tag}); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"tag": tag, "registered": true})
}

func (a *app) push(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	var n notify.Notification
	var shown bool
	if err := a.deps.Commands.Push.Execute(c.UserContext(), commands.Push{Payload: payload, Notification: &n, Shown: &shown}); err != nil {
		return err
	}
	if !shown {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(fiber.StatusOK).JSON(n)
}

func (a *app) click(c *fiber.Ctx) error {
	var msg commands.NotificationClick
	if err := c.BodyParser(&msg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request")
	}
	if err := a.deps.Commands.NotificationClick.Execute(c.UserContext(), msg); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *app) status(c *fiber.Ctx) error {
	ctrl := a.deps.Controller
	opts := ctrl.Options()
	out := fiber.Map{
		"state":        ctrl.State(),
		"skip_waiting": ctrl.SkipWaiting(),
		"caches": fiber.Map{
			"critical": opts.CriticalCache,
			"api":      opts.APICache,
		},
	}
	if a.deps.Storage != nil {
		names, err := a.deps.Storage.Names(c.UserContext())
		if err != nil {
			return err
		}
		out["stores"] = names
	}
	if a.deps.Syncs != nil {
		out["pending_syncs"] = a.deps.Syncs.Pending()
	}
	if a.deps.Events != nil {
		out["events"] = a.deps.Events.Events()
	}
	return c.JSON(out)
}

func (a *app) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		status = fe.Code
	case errors.Is(err, offline.ErrInvalidPushPayload):
		status = fiber.StatusBadRequest
	case errors.Is(err, offline.ErrInstallFailed), errors.Is(err, offline.ErrNetwork):
		status = fiber.StatusBadGateway
	case errors.Is(err, offline.ErrRedundant):
		status = fiber.StatusConflict
	}
	if status >= http.StatusInternalServerError {
		a.deps.Logger.Error("admin request failed", logger.F("path", c.Path()), logger.F("error", err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
