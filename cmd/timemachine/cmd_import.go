package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"MarketTimeMachine/internal/collector"
	"MarketTimeMachine/internal/store"
)

var importScenario string

var importCmd = &cobra.Command{
	Use:   "import <file.json>...",
	Short: "Validate dataset JSON files and store them in SQLite",
	Long: `Validate dataset JSON files and store them in the configured SQLite
database. Each file's scenario id defaults to its base name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importScenario, "scenario", "", "Scenario id (only with a single file)")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if importScenario != "" && len(args) > 1 {
		return fmt.Errorf("--scenario needs exactly one file")
	}

	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, path := range args {
		ds, err := collector.ReadDatasetFile(path, importScenario)
		if err != nil {
			return err
		}
		if err := collector.Validate(ds); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, m := range collector.MisalignedSeries(ds) {
			log.Warn().Str("scenario", ds.Scenario).Str("ticker", m.Ticker).
				Int("prices", m.Prices).Int("timestamps", m.Timestamps).Msg("price series is misaligned")
		}
		for _, e := range collector.UnmatchedEvents(ds) {
			log.Warn().Str("scenario", ds.Scenario).Str("date", e.Date).Msg("event date is not a timestamp and will never fire")
		}
		if err := st.Save(cmd.Context(), ds); err != nil {
			return fmt.Errorf("save %s: %w", ds.Scenario, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d ticks, %d tickers, %d events\n",
			ds.Scenario, ds.Len(), len(ds.MarketData.Prices), len(ds.Events))
	}
	return nil
}
