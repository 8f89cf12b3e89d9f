// Package console boots the dispatch console: upstream client, snapshot
// fetcher, override store, coordinator, and the HTTP/websocket surface.
package console

import (
	"context"
	"fmt"
	"time"

	"fleet-console/internal/common/config"
	"fleet-console/internal/common/httpx"
	"fleet-console/internal/common/logger"
	"fleet-console/internal/connections/rabbitmq"
	consolehttp "fleet-console/internal/console"
	"fleet-console/internal/dispatch"
	"fleet-console/internal/fleetapi"
	"fleet-console/internal/override"
	"fleet-console/internal/snapshot"
)

func Run(ctx context.Context, cfg config.App) error {
	lg := logger.New("console")

	api := fleetapi.New(cfg.Upstream.BaseURL, time.Duration(cfg.Upstream.Timeout)*time.Second, lg)
	cache := snapshot.NewCache()
	fetcher := snapshot.NewFetcher(api, cache, lg)
	overrides := override.NewStore()

	// The broker is optional for the console: events are best-effort, so a
	// dead RabbitMQ must not keep dispatchers off the board.
	var events dispatch.EventPublisher
	mq, err := rabbitmq.Dial(cfg.Rabbit)
	if err != nil {
		lg.Warn("rabbitmq_unavailable", map[string]any{"error": err.Error()})
	} else {
		defer mq.Close()
		if err := mq.DeclareAll(); err != nil {
			return fmt.Errorf("failed to declare rabbitmq topology: %w", err)
		}
		events = mq
	}

	coord := dispatch.NewCoordinator(
		api, fetcher, cache, overrides,
		dispatch.ParseFailurePolicy(cfg.Console.OnFailure),
		events,
		time.Duration(cfg.Console.RefreshInterval)*time.Second,
		lg,
	)

	// Run owns the initial snapshot; an unreachable upstream just means an
	// empty board until the refresh loop catches up.
	go coord.Run(ctx)

	hub := consolehttp.NewHub(coord, lg)
	hub.Run()
	defer hub.Close()

	handler := consolehttp.NewHandler(coord, lg)
	srv := httpx.New(fmt.Sprintf(":%d", cfg.Console.Port), consolehttp.Router(handler, hub))
	lg.Info("console_listening", map[string]any{"port": cfg.Console.Port})
	return srv.Run(ctx)
}
