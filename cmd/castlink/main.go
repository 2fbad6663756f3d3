package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/castlink/internal/adapters/http"
	"github.com/dkeye/castlink/internal/adapters/graphql"
	"github.com/dkeye/castlink/internal/adapters/settings"
	sig "github.com/dkeye/castlink/internal/adapters/signal"
	"github.com/dkeye/castlink/internal/adapters/transport"
	"github.com/dkeye/castlink/internal/app/auth"
	"github.com/dkeye/castlink/internal/app/orch"
	"github.com/dkeye/castlink/internal/app/session"
	"github.com/dkeye/castlink/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.StateFile), 0o700); err != nil {
		log.Fatal().Err(err).Msg("failed to create state dir")
	}
	state, err := settings.Open(cfg.StateFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open state file")
	}

	machine := auth.NewMachine(nil, transport.NewHTTP(cfg.HTTPTimeout), graphql.Builder{}, cfg.GraphQLURL)
	machine.LoadState(state)
	machine.Store.EnsureTrackingID()

	var policy orch.Policy = orch.SimplePolicy{}
	if cfg.HangupWhenEmpty {
		policy = orch.HangupPolicy{}
	}
	o := &orch.Orchestrator{
		Auth:        machine,
		Sessions:    session.NewRegistry(),
		Settings:    state,
		Policy:      policy,
		JoinTimeout: cfg.JoinTimeout,
		ServiceURL:  cfg.GraphQLURL,
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router.SetupRouter(ctx, cfg, o),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("castlink started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		o.RunPeriodic(gctx, cfg.RefreshInterval)
		return nil
	})
	g.Go(func() error {
		return state.Watch(gctx, func() { o.Reload(gctx) })
	})
	if cfg.SignalURL != "" {
		g.Go(func() error {
			err := sig.NewClient(cfg.SignalURL, o).Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("castlink stopped with error")
	}
	o.Shutdown()
	log.Info().Msg("castlink exited gracefully")
}
