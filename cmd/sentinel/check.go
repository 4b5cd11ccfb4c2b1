package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"BandSentinel/internal/notifier"
	"BandSentinel/internal/scheduler"
	"BandSentinel/internal/watchlist"
)

func init() {
	checkCmd.Flags().Int("window", 0, "rolling window length (default from config)")
	checkCmd.Flags().Float64("multiplier", 0, "band width in standard deviations (default from config)")
	checkCmd.Flags().Bool("mock", false, "use generated prices instead of a live provider")
	RootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check SYMBOL...",
	Short: "evaluate symbols once and print their signals",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		window, err := cmd.Flags().GetInt("window")
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("window") {
			cfg.Bands.Window = window
		}
		multiplier, err := cmd.Flags().GetFloat64("multiplier")
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("multiplier") {
			cfg.Bands.Multiplier = multiplier
		}
		mock, err := cmd.Flags().GetBool("mock")
		if err != nil {
			return err
		}
		if mock {
			cfg.DataSource.Provider = "mock"
		}

		cfg.Metrics.ListenAddr = ""

		ctx := context.Background()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		for _, sym := range args {
			if err := a.watchlist.AddSymbol(ctx, sym, cfg.Bands); err != nil {
				fmt.Fprintln(os.Stderr, scheduler.AddMessage(err, watchlist.Normalize(sym)))
			}
		}

		results := a.watchlist.RefreshAll(ctx, cfg.Bands)
		fmt.Printf("Length %d | Multiplier %v\n", cfg.Bands.Window, cfg.Bands.Multiplier)
		notifier.RenderTable(os.Stdout, results)
		return nil
	},
}
