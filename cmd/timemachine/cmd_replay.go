package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"MarketTimeMachine/internal/allocation"
	"MarketTimeMachine/internal/collector"
	"MarketTimeMachine/internal/model"
	"MarketTimeMachine/internal/notifier"
	"MarketTimeMachine/internal/replay"
)

var (
	replayWeights []string
	replaySpeed   float64
	replayFile    string
)

var replayCmd = &cobra.Command{
	Use:   "replay <scenario>",
	Short: "Run one replay headless and print the equity curve",
	Long: `Run one replay in the terminal, printing each sample and event until
the simulation completes.

Example usage:
  timemachine replay gfc-2008 --weight SPY=-50 --weight GLD=50
  timemachine replay covid --file data/scenarios/covid.json --speed 10`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringArrayVar(&replayWeights, "weight", nil, "Allocation as TICKER=PERCENT, repeatable")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1, "Clock speed multiplier")
	replayCmd.Flags().StringVar(&replayFile, "file", "", "Read the dataset from this JSON file instead of the configured source")
}

// parseWeight splits "SPY=-50" into its ticker and percent.
func parseWeight(s string) (string, int, error) {
	ticker, pct, ok := strings.Cut(s, "=")
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if !ok || ticker == "" {
		return "", 0, fmt.Errorf("weight %q: want TICKER=PERCENT", s)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(pct), "%"))
	if err != nil {
		return "", 0, fmt.Errorf("weight %q: %w", s, err)
	}
	return ticker, n, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	scenario := args[0]

	alloc := allocation.New()
	for _, w := range replayWeights {
		ticker, pct, err := parseWeight(w)
		if err != nil {
			return err
		}
		if limit := cfg.MaxPercent(); pct < -limit || pct > limit {
			return fmt.Errorf("weight %s: percent must be within ±%d", ticker, limit)
		}
		alloc.SetWeight(ticker, pct)
	}

	var ds *model.Dataset
	if replayFile != "" {
		ds, err = collector.ReadDatasetFile(replayFile, scenario)
		if err == nil {
			err = collector.Validate(ds)
		}
	} else {
		st := openStore(cfg)
		defer st.Close()
		ds, err = collector.NewCollector(newFetcher(cfg), st).Collect(cmd.Context(), scenario)
	}
	if err != nil {
		return fmt.Errorf("load scenario %q: %w", scenario, err)
	}

	out := cmd.OutOrStdout()
	done := make(chan struct{})
	observer := replay.ObserverFuncs{
		Sample: func(s model.Sample) {
			fmt.Fprintf(out, "%4d  %s  %s\n", s.Index, s.Timestamp, notifier.FormatMoney(s.Value))
		},
		Event: func(e model.MarketEvent) {
			fmt.Fprintf(out, "      >>> %s: %s\n", e.Title, e.Description)
		},
		State: func(st model.State) {
			if st == model.StateComplete {
				close(done)
			}
		},
	}

	stepper := replay.New(cfg.Replay(), alloc,
		replay.WithClock(replay.ScaledClock{Speed: replaySpeed}),
		replay.WithObserver(observer),
	)
	stepper.Load(ds)
	if err := stepper.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case <-done:
	case <-ctx.Done():
		stepper.Reset()
		return ctx.Err()
	}

	snap := stepper.Snapshot()
	status := notifier.FormatStatus(snap.Value, cfg.Simulation.Notional)
	fmt.Fprintf(out, "Final: %s (%s)\n", status.Text, status.Color)
	return nil
}
