// Package server wires the components and runs the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/fuel-route-optimizer/internal/api"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache/memstore"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache/plancache"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache/redisstore"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/cache/stateindex"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/config"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/health"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/httpclient"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/invalidation/kafkaconsumer"
	imw "github.com/mohammed-shakir/fuel-route-optimizer/internal/middleware"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/observability"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/optimizer"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/planner"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/reference"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/reference/h3index"
	refpg "github.com/mohammed-shakir/fuel-route-optimizer/internal/reference/postgres"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/routing"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/segment"
	"github.com/mohammed-shakir/fuel-route-optimizer/internal/stateload"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, closeStore, err := buildCacheStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ref, closeRef, err := buildReferenceStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRef()

	ors, err := routing.NewORSClient(cfg.ORSBaseURL, cfg.ORSAPIKey, httpclient.NewOutbound(), logger)
	if err != nil {
		return fmt.Errorf("routing client: %w", err)
	}

	plans := plancache.New(store, cfg.CacheTTL, logger)
	index := stateindex.New(store, cfg.CacheTTL)
	opt := optimizer.New(
		ors, ors,
		segment.New(ref),
		plans,
		index,
		planner.Params{
			MaxRangeMiles:       cfg.MaxRangeMiles,
			MPG:                 cfg.MPG,
			StartingFuelGallons: cfg.StartingFuelGallons,
		},
		logger,
	)

	if cfg.Invalidation.Enabled {
		consumer := kafkaconsumer.New(cfg.Invalidation, logger, store, index)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				logger.Error("invalidation consumer stopped", "err", err)
			}
		}()
	}

	h := api.NewHandler(opt, logger)

	r := chi.NewRouter()
	r.Use(imw.RequestID())
	r.Use(imw.Recover(logger))
	r.Use(imw.Logging(logger))
	r.Use(imw.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(func(ctx context.Context) error {
		_, _, err := store.Get(ctx, "readyz:probe")
		return err
	}))
	r.Post("/routes/optimize", h.Optimize)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", observability.Handler())
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func buildCacheStore(ctx context.Context, cfg config.Config) (cache.Interface, func(), error) {
	switch cfg.CacheDriver {
	case "memory":
		return memstore.New(cfg.MemCacheSize, cfg.CacheTTL), func() {}, nil
	case "redis":
		rc, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, func() { _ = rc.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown CACHE_DRIVER %q", cfg.CacheDriver)
	}
}

func buildReferenceStore(ctx context.Context, cfg config.Config) (reference.Store, func(), error) {
	switch cfg.ReferenceDriver {
	case "memory":
		ix := h3index.New(h3index.WithSampleInterval(cfg.WaypointIntervalMiles))
		if err := stateload.BoundariesFromGeoJSON(ix, cfg.StatesGeoJSON); err != nil {
			return nil, nil, fmt.Errorf("load state boundaries: %w", err)
		}
		if _, err := os.Stat(cfg.PricesCSV); err == nil {
			if err := stateload.PricesFromCSV(ix, cfg.PricesCSV); err != nil {
				return nil, nil, fmt.Errorf("load fuel prices: %w", err)
			}
		}
		return ix, func() {}, nil
	case "postgres":
		st, err := refpg.Open(ctx, cfg.DatabaseURL, cfg.WaypointIntervalMiles)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres reference store: %w", err)
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown REFERENCE_DRIVER %q", cfg.ReferenceDriver)
	}
}
