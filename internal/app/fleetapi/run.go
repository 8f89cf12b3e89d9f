// Package fleetapi boots the reference fleet API the console talks to:
// Postgres-backed orders, riders, and assignment endpoints.
package fleetapi

import (
	"context"
	"fmt"

	"fleet-console/internal/common/config"
	"fleet-console/internal/common/httpx"
	"fleet-console/internal/common/logger"
	"fleet-console/internal/connections/database"
	"fleet-console/internal/upstream/handlers"
	"fleet-console/internal/upstream/repository"
	"fleet-console/internal/upstream/service"
)

func Run(ctx context.Context, cfg config.App, port int) error {
	lg := logger.New("fleet-api")

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()

	repo := repository.NewFleetRepo(pool)
	svc := service.NewFleetService(repo)
	handler := handlers.NewFleetHandler(svc, lg)

	srv := httpx.New(fmt.Sprintf(":%d", port), handlers.NewRouter(handler))
	lg.Info("fleet_api_listening", map[string]any{"port": port})
	return srv.Run(ctx)
}
