// Command kraken exports LIMS sample placements as Kraken master-plate XML.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"krakenexport/internal/config"
	"krakenexport/internal/logger"
	"krakenexport/internal/metrics"
)

// app carries the state shared by every subcommand once the root
// pre-run hook has resolved configuration.
type app struct {
	configPath string
	verbose    bool

	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Recorder
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "kraken",
		Short: "Export Kraken master-plate XML for an order",
		Long: `kraken builds the master-plate document the Kraken instrument loads.

Samples come from one of three sources:
  db     seeded wells recorded in the LIMS
  excel  a customer order form, matched to LIMS plates
  empty  synthetic wells for every seed plate of the order

Settings are read from kraken.toml (or --config) and KRAKEN_* environment
variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync(a.log)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: ./kraken.toml when present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newDBCmd(a))
	root.AddCommand(newExcelCmd(a))
	root.AddCommand(newEmptyCmd(a))
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	log, err := logger.New(cfg.Logger())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.log = log
	a.metrics = metrics.New()
	return nil
}

// flushMetrics dumps the counters when a textfile path is configured. Runs
// after success and failure alike so failed exports are visible too.
func (a *app) flushMetrics() {
	if a.cfg == nil {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		logger.OrNop(a.log).Warn("metrics textfile not written", zap.Error(err))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
