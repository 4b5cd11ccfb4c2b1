package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"BandSentinel/internal/notifier"
	"BandSentinel/internal/scheduler"
)

func init() {
	RootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the scheduled refresh and the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		log := a.log

		var n notifier.Notifier = notifier.NoopNotifier{}
		var tn *notifier.TelegramNotifier
		if cfg.Telegram.BotToken != "" {
			chatID, err := cfg.ChatID()
			if err != nil {
				return err
			}
			tn, err = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, chatID, cfg.Proxy, log.Named("telegram"))
			if err != nil {
				return errors.Wrap(err, "init telegram notifier")
			}
			n = tn
		} else {
			log.Warn("telegram.bot_token not set, dashboards are not delivered")
		}

		sched := scheduler.NewScheduler(ctx, a.watchlist, n, a.recorder, cfg.Bands, log.Named("scheduler"))
		for _, sym := range cfg.Watchlist.Symbols {
			if err := sched.AddSymbol(ctx, sym); err != nil {
				log.Warn("seed symbol rejected", zap.String("symbol", sym), zap.Error(err))
			}
		}

		if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		if tn != nil {
			go tn.StartPolling(ctx, sched.HandleCommand)
			log.Info("telegram polling started")
		}

		if os.Getenv("RUN_ON_START") == "true" {
			log.Info("RUN_ON_START enabled, refreshing now")
			go func() {
				if _, err := sched.RefreshNow(ctx); err != nil {
					log.Error("refresh", zap.Error(err))
				}
			}()
		}

		log.Info("sentinel is running",
			zap.Int("symbols", a.watchlist.Len()),
			zap.String("refresh_cron", cfg.Schedule.RefreshCron),
		)
		<-ctx.Done()
		log.Info("shutdown signal received, stopping")
		return nil
	},
}
