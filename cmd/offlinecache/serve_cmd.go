package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/interprelab/go-offline-cache/pkg/host"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
	"github.com/interprelab/go-offline-cache/pkg/offline"
)

func newServeCmd() *cobra.Command {
	var skipInstall bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the offline-aware HTTP host",
		Long: `Serve the web app through the offline controller.

Critical resources are installed and stale caches purged on startup unless
--skip-install is set. A failed install is logged and the host keeps serving
with whatever the caches already hold.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := buildServices(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			if !skipInstall {
				if _, _, err := svc.Controller.Start(ctx); err != nil {
					if !errors.Is(err, offline.ErrInstallFailed) {
						return err
					}
					log.Warn("starting without a fresh install", logger.F("error", err))
				}
			}

			app, err := host.NewApp(host.Dependencies{
				Controller: svc.Controller,
				Commands:   svc.Commands,
				Storage:    svc.Storage.Storage,
				Syncs:      svc.Syncs,
				Events:     svc.Events,
				Logger:     log,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("listening", logger.F("addr", cfg.Server.Addr()), logger.F("origin", cfg.Network.Origin))
				errCh <- app.Listen(cfg.Server.Addr())
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return app.ShutdownWithContext(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&skipInstall, "skip-install", false, "Do not run install/activate on startup")
	return cmd
}
