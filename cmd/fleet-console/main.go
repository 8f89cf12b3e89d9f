package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	appconsole "fleet-console/internal/app/console"
	appfleet "fleet-console/internal/app/fleetapi"
	appnotify "fleet-console/internal/app/notify"
	"fleet-console/internal/common/config"
	"fleet-console/internal/common/logger"
)

func main() {
	mode := flag.String("mode", "", "console | fleet-api | notification-subscriber")
	cfgPath := flag.String("config", "config.yml", "path to config file")
	port := flag.Int("port", 0, "override the listen port")
	flag.Parse()

	lg := logger.New("bootstrap")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": *cfgPath})
		os.Exit(1)
	}

	switch *mode {
	case "console":
		if *port != 0 {
			cfg.Console.Port = *port
		}
		lg.Info("service_started", map[string]any{"service": "console", "port": cfg.Console.Port})
		if err := appconsole.Run(ctx, cfg); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "fleet-api":
		if *port == 0 {
			*port = 3000
		}
		lg.Info("service_started", map[string]any{"service": "fleet-api", "port": *port})
		if err := appfleet.Run(ctx, cfg, *port); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "notification-subscriber":
		lg.Info("service_started", map[string]any{"service": "notification-subscriber"})
		if err := appnotify.Run(ctx, cfg); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: console | fleet-api | notification-subscriber")
		os.Exit(2)
	}
}
