package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"MarketTimeMachine/internal/api"
	"MarketTimeMachine/internal/collector"
	"MarketTimeMachine/internal/config"
	"MarketTimeMachine/internal/metrics"
	"MarketTimeMachine/internal/notifier"
	"MarketTimeMachine/internal/replay"
	"MarketTimeMachine/internal/scheduler"
	"MarketTimeMachine/internal/session"
	"MarketTimeMachine/internal/store"
)

const telegramSessionID = "telegram"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP/WebSocket API, the refresh scheduler and the Telegram bot",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// newFetcher picks the remote source when a base URL is configured.
func newFetcher(cfg *config.Config) collector.Fetcher {
	if cfg.DataSource.BaseURL != "" {
		return collector.NewHTTPFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.RatePerMinute)
	}
	return collector.NewFileFetcher(cfg.DataSource.DataDir)
}

// openStore falls back to memory when SQLite cannot be opened.
func openStore(cfg *config.Config) store.Store {
	if cfg.Database.SQLitePath == "" {
		return store.NewMemoryStore()
	}
	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite store failed, using memory")
		return store.NewMemoryStore()
	}
	return st
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info().Msg("MarketTimeMachine starting...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := newFetcher(cfg)
	log.Info().Str("source", fetcher.Name()).Msg("dataset source selected")

	st := openStore(cfg)
	defer st.Close()
	col := collector.NewCollector(fetcher, st)
	reg := metrics.NewRegistry()

	opts := []session.Option{
		session.WithJournalSize(cfg.Simulation.JournalSize),
		session.WithMetrics(reg),
	}

	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		opts = append(opts, session.WithObserverFactory(func(id, scenario string) replay.Observer {
			// Only the chat's own session reports back to the chat.
			if id != telegramSessionID {
				return nil
			}
			return notifier.NewReplayObserver(ctx, tn, scenario)
		}))
	}

	mgr := session.NewManager(ctx, cfg.Replay(), col, opts...)
	defer mgr.Close(5 * time.Second)

	var nt scheduler.Notifier
	if tn != nil {
		nt = tn
	}
	sched := scheduler.NewScheduler(ctx, col, nt, cfg.DataSource.Scenarios)
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, refreshing datasets now")
		go sched.RunRefreshNow()
	}

	if tn != nil {
		scenario := cfg.Telegram.DefaultScenario
		if scenario == "" && len(cfg.DataSource.Scenarios) > 0 {
			scenario = cfg.DataSource.Scenarios[0]
		}
		commands := &session.Commands{
			Manager:    mgr,
			SessionID:  telegramSessionID,
			Scenario:   scenario,
			Notional:   cfg.Simulation.Notional,
			MaxPercent: cfg.MaxPercent(),
		}
		go tn.StartPolling(ctx, commands.Handle)
		log.Info().Str("scenario", scenario).Msg("telegram polling started")
	}

	srv := api.NewServer(api.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Replay:       cfg.Replay(),
		MaxPercent:   cfg.MaxPercent(),
		Scenarios:    cfg.DataSource.Scenarios,
	}, mgr, col, st, reg)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received, stopping...")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	cancel()
	log.Info().Msg("MarketTimeMachine stopped")
	return nil
}
