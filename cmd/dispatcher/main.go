package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/blockedby/chat-observer/internal/channel"
	"github.com/blockedby/chat-observer/internal/config"
	"github.com/blockedby/chat-observer/internal/dispatcher"
	"github.com/blockedby/chat-observer/internal/dom"
	"github.com/blockedby/chat-observer/internal/logger"
	"github.com/blockedby/chat-observer/internal/nats"
)

const queueGroup = "dispatchers"

func main() {
	// 1. Load config
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting dispatcher")

	if cfg.NatsURL == "" {
		log.Fatal().Msg("NATS_URL is required")
	}

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. The gate marker comes from the same selector table the observer uses
	sel, err := dom.LoadSelectors(cfg.SelectorsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.SelectorsFile).Msg("invalid selectors")
	}

	// 5. Connect to NATS
	nc, err := nats.New(ctx, cfg.NatsURL, "chat-dispatcher", logger.Component("nats"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to nats")
	}
	defer nc.Close()

	// 6. Ingestion service
	svc := dispatcher.NewService(
		cfg.IngestURL,
		nil,
		dispatcher.NewRateLimiter(cfg.IngestRPS, 1),
		sel.ProfileMarker,
		logger.Component("dispatcher"),
	)

	// 7. Serve requests until shutdown
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sub, err := channel.Serve(gctx, nc, cfg.DispatchSubject, queueGroup, svc, logger.Component("channel"))
		if err != nil {
			return err
		}
		<-gctx.Done()
		return sub.Drain()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("dispatcher stopped with error")
	}

	log.Info().Msg("shutdown complete")
}
