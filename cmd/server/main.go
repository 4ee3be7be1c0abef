// Command server runs the route fueling optimizer HTTP API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/app/server"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/config"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/logger"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/observability"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Component: "server"}, os.Stdout)
	log := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, log); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}
