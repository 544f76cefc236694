package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/gstchain/gstio/pkg/chain"
	"github.com/gstchain/gstio/pkg/cli"
	"github.com/gstchain/gstio/pkg/config"
	"github.com/gstchain/gstio/pkg/history"
	"github.com/gstchain/gstio/pkg/resource"
	"github.com/gstchain/gstio/pkg/resource/storage"
	"github.com/gstchain/gstio/pkg/server"
	"github.com/gstchain/gstio/pkg/telemetry/logging"
	"github.com/gstchain/gstio/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the resource governance daemon",
	Long: `Start the daemon with the specified configuration.

The daemon finalizes one accounting block per block interval: staged limit
changes are settled, block parameters are refreshed, and the block's usage
is folded into the elastic averages. Ledger state is checkpointed to
SQLite and the status API serves the current resource state.

Examples:
  # Start with default config
  gstiod run

  # Start with custom config
  gstiod run --config /etc/gstio/config.yaml

  # Override the status API listen address
  gstiod run --listen 0.0.0.0:8888

  # Validate config without starting the daemon
  gstiod run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override status API listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	// Ledger checkpoint store
	backend, err := storage.NewSQLiteBackendWithConfig(storage.Config{
		DBPath:      cfg.Storage.DBPath,
		BusyTimeout: cfg.Storage.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer backend.Close()

	ledger, found, err := backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if found {
		logger.Info("ledger restored from checkpoint", "path", cfg.Storage.DBPath)
	} else {
		ledgerCfg, err := chain.LedgerConfig(cfg.Chain)
		if err != nil {
			return cli.NewConfigError("chain", err.Error())
		}
		ledger = resource.NewLedger(ledgerCfg)
		logger.Info("fresh ledger initialized")
	}

	// Metrics
	var (
		collector       *metrics.Collector
		resourceMetrics *resource.Metrics
	)
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(nil)
		resourceMetrics = resource.NewMetrics(collector.Registry())
	}

	exempt := make([]resource.AccountName, 0, len(cfg.Prepaid.ExemptAccounts))
	for _, a := range cfg.Prepaid.ExemptAccounts {
		exempt = append(exempt, resource.AccountName(a))
	}

	mgr := resource.NewManager(ledger, resource.Options{
		ExemptAccounts:   exempt,
		BootstrapAccount: resource.AccountName(cfg.Prepaid.BootstrapAccount),
		PrepaidFee:       cfg.Prepaid.Fee,
		Metrics:          resourceMetrics,
		Logger:           logger,
	})
	n := newNode(mgr)

	// Block usage history
	var recorder *history.Recorder
	if cfg.History.Enabled {
		recorder, err = history.NewRecorder(history.RecorderConfig{Path: cfg.History.DBPath})
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer recorder.Close()

		pruner := history.NewPruner(recorder, history.PrunerConfig{
			RetentionDays: cfg.History.RetentionDays,
			Schedule:      cfg.History.RetentionSchedule,
		})
		scheduler := history.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			logger.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
		}
	}

	govOpts := chain.GovernorOptions{Logger: logger}
	if recorder != nil {
		govOpts.Recorder = recorder
	}
	governor, err := chain.NewGovernor(mgr, cfg.Chain, govOpts)
	if err != nil {
		return cli.NewConfigError("chain", err.Error())
	}

	// Hot reload of the chain section
	if cfg.Chain.Watch {
		watcher, err := config.NewWatcher(config.WatcherConfig{Path: cfgFile}, logger)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		go func() {
			if err := watcher.Watch(ctx, func(newCfg *config.Config) error {
				return governor.UpdateChainConfig(newCfg.Chain)
			}); err != nil {
				logger.Error("config watcher exited", "error", err)
			}
		}()
	}

	// Scheduled snapshot exports
	if cfg.Snapshot.Enabled {
		snapCron := cron.New()
		_, err := snapCron.AddFunc(cfg.Snapshot.Schedule, func() {
			n.mu.RLock()
			defer n.mu.RUnlock()
			path, err := exportSnapshot(ledger, cfg.Snapshot.Directory)
			if err != nil {
				logger.Error("scheduled snapshot export failed", "error", err)
				return
			}
			logger.Info("snapshot exported", "path", path)
		})
		if err != nil {
			return cli.NewConfigError("snapshot.schedule", err.Error())
		}
		snapCron.Start()
		defer snapCron.Stop()
	}

	// Status API
	if cfg.Server.Enabled {
		srvOpts := server.Options{Logger: logger}
		if recorder != nil {
			srvOpts.History = recorder
		}
		if collector != nil {
			srvOpts.MetricsHandler = collector.Handler()
			srvOpts.MetricsPath = cfg.Telemetry.Metrics.Path
		}
		srv, err := server.NewServer(cfg.Server, n, srvOpts)
		if err != nil {
			return fmt.Errorf("failed to create status API: %w", err)
		}
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("status API exited", "error", err)
			}
		}()
	}

	fmt.Printf("✓ Ledger store: %s\n", cfg.Storage.DBPath)
	if cfg.Server.Enabled {
		fmt.Printf("✓ Status API listening on %s\n", cfg.Server.ListenAddress)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	runBlockLoop(ctx, cfg, logger, n, governor, backend, ledger)

	// Final checkpoint on the way out.
	saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := backend.Save(saveCtx, ledger); err != nil {
		return fmt.Errorf("final checkpoint failed: %w", err)
	}
	logger.Info("final checkpoint written")
	return nil
}

// runBlockLoop finalizes one accounting block per block interval until the
// context is cancelled.
func runBlockLoop(ctx context.Context, cfg *config.Config, logger *slog.Logger,
	n *node, governor *chain.Governor, backend *storage.SQLiteBackend, ledger *resource.Ledger) {

	// Resume the block ordinal from the restored averages.
	blockNum := ledger.State().AverageBlockCPUUsage.LastOrdinal

	ticker := time.NewTicker(cfg.Chain.BlockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down block loop", "last_block", blockNum)
			return
		case <-ticker.C:
			blockNum++

			n.mu.Lock()
			err := governor.FinalizeBlock(ctx, blockNum)
			n.mu.Unlock()
			if err != nil {
				logger.Error("block finalization failed", "block_num", blockNum, "error", err)
				continue
			}

			if cfg.Storage.CheckpointInterval > 0 && blockNum%cfg.Storage.CheckpointInterval == 0 {
				n.mu.RLock()
				err := backend.Save(ctx, ledger)
				n.mu.RUnlock()
				if err != nil {
					logger.Error("checkpoint failed", "block_num", blockNum, "error", err)
				} else {
					logger.Debug("checkpoint written", "block_num", blockNum)
				}
			}
		}
	}
}
