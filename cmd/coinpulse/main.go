package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"CoinPulse/internal/config"
	"CoinPulse/internal/dashboard"
	"CoinPulse/internal/logging"
	"CoinPulse/internal/market"
	"CoinPulse/internal/model"
	"CoinPulse/internal/pipeline"
	"CoinPulse/internal/prefs"
	"CoinPulse/internal/recorder"
	"CoinPulse/internal/scheduler"
)

func main() {
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("CoinPulse starting")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := market.NewCoinGeckoClient(cfg.Market.BaseURL, cfg.Market.Currency, cfg.Proxy, logger)
	logger.Info("market data provider", zap.String("name", client.Name()))

	store, err := prefs.NewStore(cfg.Prefs.File)
	if err != nil {
		logger.Fatal("init preference store", zap.Error(err))
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	enricher := pipeline.NewEnricher(client, rec, cfg.Market.LookbackDays, logger)

	server := dashboard.NewServer(cfg.Server.Addr, store, logger)

	order, _ := model.ParseSortOrder(cfg.Refresh.Order)
	timeframe, _ := model.ParseTimeframe(cfg.Refresh.Timeframe)
	sched := scheduler.NewScheduler(ctx, client, enricher, server, rec,
		cfg.Interval(), cfg.Market.PageSize, logger,
		scheduler.WithDefaults(order, timeframe))
	server.AttachController(sched)

	// Daily retention sweep over the cycle journal.
	janitor := cron.New()
	retention := time.Duration(cfg.Database.RetentionDays) * 24 * time.Hour
	if _, err := janitor.AddFunc("@daily", func() {
		if err := rec.Prune(time.Now().Add(-retention)); err != nil {
			logger.Error("prune cycle journal", zap.Error(err))
		}
	}); err != nil {
		logger.Fatal("register retention job", zap.Error(err))
	}
	janitor.Start()
	defer janitor.Stop()

	sched.Start()
	defer sched.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(ctx) }()

	logger.Info("CoinPulse is running", zap.String("addr", cfg.Server.Addr),
		zap.Duration("interval", cfg.Interval()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		logger.Info("shutdown signal received, stopping")
	case err := <-errCh:
		if err != nil {
			logger.Error("dashboard server", zap.Error(err))
		}
	}
	cancel()
	logger.Info("CoinPulse stopped")
}
