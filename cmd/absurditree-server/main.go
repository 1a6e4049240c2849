// Package main is the entry point for the IdleAbsurditree game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MRamiBalles/IdleAbsurditree/internal/app"
	"github.com/MRamiBalles/IdleAbsurditree/internal/config"
	"github.com/MRamiBalles/IdleAbsurditree/internal/engine"
	"github.com/MRamiBalles/IdleAbsurditree/internal/network"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/optimization"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "absurditree-server:", err)
		os.Exit(1)
	}
}

func run() error {
	path := flag.String("config", envOr("ABSURDITREE_CONFIG", config.DefaultPath), "path to the YAML config")
	addr := flag.String("addr", "", "listen address, overrides server.addr")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	a, err := app.New(cfg, app.Options{})
	if err != nil {
		return err
	}
	log := a.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := a.Boot(ctx)
	if err != nil {
		log.Error("Failed to boot game", zap.Error(err))
		_ = a.Close(context.Background())
		return err
	}
	a.LogBoot(report)

	tuning, err := cfg.Tuning()
	if err != nil {
		_ = a.Close(context.Background())
		return err
	}

	ticker := engine.NewTicker(a.Manager, a.Manager.Settings().TickInterval, log, a.Metrics)
	hub := network.NewHub(a.Manager, cfg.GetBroadcastInterval(), log, a.Metrics).WithTuning(tuning)
	srv := network.NewServer(a.Manager, hub, log, a.Metrics, network.ServerOptions{
		DevRoutes:      cfg.Server.DevRoutes,
		ClickRate:      cfg.Server.ClickRate,
		ClickBurst:     cfg.Server.ClickBurst,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}).HTTPServer(cfg.Server.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker.Start(gctx)
		return nil
	})
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("Server listening", zap.String("addr", cfg.Server.Addr), zap.Bool("dev_routes", cfg.Server.DevRoutes))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")
		return network.Shutdown(srv, shutdownTimeout)
	})

	runErr := g.Wait()

	for _, note := range optimization.Analyze(a.Metrics.Snapshot()).Notes {
		log.Warn("Tuning advice", zap.String("profile", cfg.Server.Profile), zap.String("note", note))
	}

	// The run context is gone by now; the final save gets its own budget.
	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
