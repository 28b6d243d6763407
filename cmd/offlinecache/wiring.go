package main

import (
	"context"

	"github.com/interprelab/go-offline-cache/internal/di"
	"github.com/interprelab/go-offline-cache/pkg/config"
	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
)

func buildServices(ctx context.Context, cfg config.Config, log logger.Logger) (*di.Container, error) {
	return di.New(ctx, di.Options{Config: cfg, Logger: log})
}
