package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/rps/internal/config"
	"github.com/robalobadob/rps/internal/game"
	"github.com/robalobadob/rps/internal/httpserver"
	"github.com/robalobadob/rps/internal/journal"
	"github.com/robalobadob/rps/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	j, err := journal.Open(cfg.JournalDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open journal")
	}
	defer j.Close()
	if err := j.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate journal")
	}

	srv := httpserver.New(cfg, store.NewMemoryStore(), game.NewEngine(nil), j)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting rps server")
		errc <- srv.Start(cfg.Addr())
	}()

	select {
	case err := <-errc:
		if err != nil {
			log.Error().Err(err).Msg("server exited")
		}
		return
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

func setupLogging(cfg config.Config) {
	lvl, _ := cfg.Level()
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
