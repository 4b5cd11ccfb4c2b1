package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"BandSentinel/internal/collector"
	"BandSentinel/internal/config"
	"BandSentinel/internal/logger"
	"BandSentinel/internal/metrics"
	"BandSentinel/internal/recorder"
	"BandSentinel/internal/watchlist"
)

// app bundles the components shared by every subcommand.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	metrics   *metrics.Metrics
	watchlist *watchlist.Manager
	recorder  recorder.Recorder
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation")
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	mt := metrics.NewMetrics(nil)
	if cfg.Metrics.ListenAddr != "" {
		go func() {
			if err := mt.Serve(ctx, cfg.Metrics.ListenAddr, log); err != nil {
				log.Error("metrics endpoint", zap.Error(err))
			}
		}()
	}

	fetcher := newFetcher(cfg)
	log.Info("data source", zap.String("provider", fetcher.Name()))
	col := collector.NewCollector(fetcher, cfg.DataSource.LookbackDays, log.Named("collector"))

	wl := watchlist.NewManager(col, log.Named("watchlist"),
		watchlist.WithConcurrency(cfg.Watchlist.RefreshConcurrency),
		watchlist.WithMetrics(mt),
	)

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log.Named("recorder"))
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			rec = sr
		}
	}

	return &app{cfg: cfg, log: log, metrics: mt, watchlist: wl, recorder: rec}, nil
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	switch cfg.DataSource.Provider {
	case "vstrader":
		return collector.NewVsTraderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.Timeout)
	case "mock":
		return &collector.MockFetcher{Price: 100}
	default:
		return collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.Timeout)
	}
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		a.log.Warn("close recorder", zap.Error(err))
	}
	_ = a.log.Sync()
}
