package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/blockedby/chat-observer/internal/api"
	"github.com/blockedby/chat-observer/internal/browser"
	"github.com/blockedby/chat-observer/internal/channel"
	"github.com/blockedby/chat-observer/internal/config"
	"github.com/blockedby/chat-observer/internal/database"
	"github.com/blockedby/chat-observer/internal/dispatcher"
	"github.com/blockedby/chat-observer/internal/dom"
	"github.com/blockedby/chat-observer/internal/extractor"
	"github.com/blockedby/chat-observer/internal/ledger"
	"github.com/blockedby/chat-observer/internal/logger"
	"github.com/blockedby/chat-observer/internal/nats"
	"github.com/blockedby/chat-observer/internal/observer"
	"github.com/blockedby/chat-observer/internal/publisher"
	"github.com/blockedby/chat-observer/internal/repository"
	"github.com/blockedby/chat-observer/internal/resolver"
	"github.com/blockedby/chat-observer/internal/submission"
	"github.com/blockedby/chat-observer/internal/telemetry"
	"github.com/blockedby/chat-observer/internal/watcher"
	"github.com/blockedby/chat-observer/internal/web"
)

var version = "dev"

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
	log.Info().Str("version", version).Msg("starting chat observer")

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

	// 4. Connect to database and load the ledger
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	stateRepo := repository.NewStateRepository(db.GORM)
	if err := stateRepo.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate state table")
	}

	led := ledger.New(ledger.NewKVStore(stateRepo, repository.LedgerKey), logger.Component("ledger"))
	if err := led.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load ledger")
	}
	defer func() {
		if err := led.Close(); err != nil {
			log.Error().Err(err).Msg("ledger flush failed")
		}
	}()

	// 5. Host DOM contract
	sel, err := dom.LoadSelectors(cfg.SelectorsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.SelectorsFile).Msg("invalid selectors")
	}

	// 6. Dispatch channel: NATS when configured, in-process otherwise
	var (
		ch     submission.Channel
		resPub telemetry.Publisher
		broker api.BrokerStatus
	)
	if cfg.NatsURL != "" {
		nc, err := nats.New(ctx, cfg.NatsURL, "chat-observer", logger.Component("nats"))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer nc.Close()
		broker = nc

		ch = channel.NewNATSChannel(nc, cfg.DispatchSubject)

		if err := nc.EnsureStream(ctx, cfg.ResultsStream, []string{cfg.ResultsSubject}); err != nil {
			log.Warn().Err(err).Msg("results stream unavailable, publishing disabled")
		} else {
			resPub = publisher.NewResultPublisher(nc, cfg.ResultsSubject)
		}
		log.Info().Str("subject", cfg.DispatchSubject).Msg("dispatching over nats")
	} else {
		svc := dispatcher.NewService(
			cfg.IngestURL,
			nil,
			dispatcher.NewRateLimiter(cfg.IngestRPS, 1),
			sel.ProfileMarker,
			logger.Component("dispatcher"),
		)
		ch = channel.NewLocal(svc)
		log.Info().Str("ingest_url", cfg.IngestURL).Msg("dispatching in-process")
	}

	// 7. Telemetry hub and submission pipeline
	hub := web.NewHub()
	go hub.Run()
	defer hub.Stop()

	reporter := telemetry.NewReporter(logger.Component("telemetry"), hub, resPub)
	pipeline := submission.New(ch, reporter, sel.ProfileMarker, cfg.DispatchTimeout, logger.Component("submission"))

	// 8. Browser session; the tab outlives ctx so in-flight panel closes can finish
	session, err := browser.Open(context.Background(), browser.Config{
		ChatURL:      cfg.ChatURL,
		DebuggerURL:  cfg.ChromeDebuggerURL,
		UserDataDir:  cfg.ChromeUserDataDir,
		Headless:     cfg.ChromeHeadless,
		PollInterval: cfg.PollInterval,
	}, logger.Component("browser"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open browser")
	}
	defer session.Close()

	signals, err := session.InstallWatch(ctx, sel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to install dom watch")
	}

	// 9. Observer components
	doc := session.Document()
	ext := extractor.New(sel, led, logger.Component("extractor"))
	res := resolver.New(doc, sel, resolver.Config{
		SettleDelay:      cfg.ProfileSettleDelay,
		CloseTimeout:     cfg.ClosePanelTimeout,
		CloseSettleDelay: cfg.CloseSettleDelay,
	}, logger.Component("resolver"))
	obs := observer.New(doc, sel, ext, res, pipeline, observer.Config{
		RescanDropped: cfg.RescanDropped,
	}, logger.Component("observer"))
	w := watcher.New(signals, obs, cfg.InitialScanDelay, logger.Component("watcher"))

	// 10. Admin API
	server := api.NewServer(&api.Config{
		Port:        cfg.HTTPPort,
		Title:       "Chat Observer API",
		Description: "Observer status, dedup ledger and live submission telemetry",
		Version:     version,
	}, &api.Dependencies{
		Ledger:   led,
		Observer: obs,
		DB:       db,
		Broker:   broker,
		Hub:      hub,
	})

	// 11. Run until a signal or the browser goes away
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.Run(gctx)
	})

	g.Go(func() error {
		log.Info().Int("port", cfg.HTTPPort).Msg("starting admin api")
		return server.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Stop(shutdownCtx)
	})

	g.Go(func() error {
		select {
		case <-session.Done():
			return errors.New("browser session closed")
		case <-gctx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("observer stopped with error")
	}

	// 12. Drain in-flight submissions before closing sinks
	log.Info().Msg("shutting down services...")
	pipeline.Wait()

	log.Info().Interface("status", obs.Status()).Msg("shutdown complete")
}
