// Command loader bulk-loads the reference data: state boundary polygons and
// fuel station prices into Postgres, then (optionally) publishes a
// prices_reloaded event so running servers flush affected cached plans.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/config"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/loader"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	var (
		statesPath = flag.String("states", cfg.StatesGeoJSON, "state boundaries GeoJSON FeatureCollection")
		pricesPath = flag.String("prices", cfg.PricesCSV, "fuel price CSV export")
		skipStates = flag.Bool("skip-states", false, "skip the boundary load")
		skipPrices = flag.Bool("skip-prices", false, "skip the price load")
		notify     = flag.Bool("notify", false, "publish a prices_reloaded event after loading prices")
	)
	flag.Parse()

	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Console: true, Component: "loader"}, os.Stdout)
	log := logger.NewSlog(&zl)

	if cfg.DatabaseURL == "" {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	l := loader.New(db, log)
	if err := l.EnsureSchema(ctx); err != nil {
		log.Error("ensure schema", "err", err)
		os.Exit(1)
	}

	if !*skipStates {
		if _, err := l.LoadBoundaries(ctx, *statesPath); err != nil {
			log.Error("load boundaries", "err", err)
			os.Exit(1)
		}
	}

	if !*skipPrices {
		states, err := l.LoadPrices(ctx, *pricesPath)
		if err != nil {
			log.Error("load prices", "err", err)
			os.Exit(1)
		}
		if *notify {
			if err := loader.PublishReload(cfg.Invalidation.Brokers, cfg.Invalidation.Topic, states, "loader"); err != nil {
				log.Error("publish reload event", "err", err)
				os.Exit(1)
			}
			log.Info("published reload event", "topic", cfg.Invalidation.Topic, "states", len(states))
		}
	}
}
