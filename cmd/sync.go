package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"account-sync/core/config"
	"account-sync/core/database"
	"account-sync/core/logger"
	"account-sync/core/reconcile"
	"account-sync/core/storage"
	"account-sync/feature/accounts"
	"account-sync/feature/history"
	"account-sync/feature/snapshot"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncDryRun       bool
	syncCompany      string
	syncRetries      int
	syncRetryDelay   time.Duration
	syncConcurrency  int
	syncSnapshot     bool
	syncHistory      bool
	syncFailOnErrors bool
)

// syncCmd runs one reconciliation from the source site to the target site.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the chart of accounts from source to target",
	Long: `Lists both inventories, orders source accounts by depth and reconciles them
one level at a time: missing parents are created first, matching accounts are
updated when a compared field differs, and everything else is created.

Examples:
  # Preview every decision without touching the target
  account-sync sync --dry-run

  # Sync one company, snapshotting both sides first
  account-sync sync --company "ACME Ltd" --snapshot`,
	RunE: runSync,
}

func init() {
	f := syncCmd.Flags()
	f.BoolVar(&syncDryRun, "dry-run", false, "Log decisions without writing to the target")
	f.StringVar(&syncCompany, "company", "", "Restrict both inventories to one company")
	f.IntVar(&syncRetries, "max-parent-retries", reconcile.DefaultMaxParentRetries, "Attempts to create a missing parent")
	f.DurationVar(&syncRetryDelay, "retry-delay", time.Second, "Pause between parent creation attempts")
	f.IntVar(&syncConcurrency, "concurrency", 1, "Accounts processed in parallel within one depth level")
	f.BoolVar(&syncSnapshot, "snapshot", false, "Upload both inventories to object storage before syncing")
	f.BoolVar(&syncHistory, "history", false, "Persist the run and its decisions to the database")
	f.BoolVar(&syncFailOnErrors, "fail-on-errors", false, "Exit non-zero when any account failed")

	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applySyncFlags(cmd, &cfg.Sync)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logg.Sync()

	runID := uuid.NewString()
	logg = logger.WithRun(logg, runID)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := accounts.NewRemoteStore(cfg.Source, "source", logg)
	target := accounts.NewRemoteStore(cfg.Target, "target", logg)
	opts := cfg.Sync.Options()

	var sinks []reconcile.Sink

	var snap *snapshot.Recorder
	if cfg.Sync.Snapshot {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
		snap = snapshot.NewRecorder(snapshot.NewService(client, cfg.Storage, logg), runID, opts.Company)
		sinks = append(sinks, snap)
	}

	var hist *history.Recorder
	if cfg.Sync.History {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect history database: %w", err)
		}
		svc := history.NewService(db, logg)
		if err := svc.Migrate(); err != nil {
			return err
		}
		hist = history.NewRecorder(svc, runID)
		if err := hist.Start(ctx, opts); err != nil {
			return err
		}
		sinks = append(sinks, hist)
	}

	logg.Info("Starting sync",
		zap.Bool("dry_run", opts.DryRun),
		zap.String("company", opts.Company),
		zap.Int("concurrency", opts.Concurrency),
	)

	result, err := reconcile.New(source, target, opts, logg, sinks...).Run(ctx)
	if hist != nil && snap != nil {
		hist.AttachSnapshot(context.WithoutCancel(ctx), snap.Object())
	}
	if result == nil {
		if hist != nil {
			hist.Fail(ctx, err)
		}
		return err
	}
	if err != nil {
		logg.Warn("Sync interrupted", zap.Error(err))
		return err
	}

	if syncFailOnErrors && result.Summary.Failed > 0 {
		return fmt.Errorf("%d accounts failed to sync", result.Summary.Failed)
	}
	return nil
}

// applySyncFlags overrides config values with the flags set on the command line.
func applySyncFlags(cmd *cobra.Command, sc *reconcile.Config) {
	f := cmd.Flags()
	if f.Changed("dry-run") {
		sc.DryRun = syncDryRun
	}
	if f.Changed("company") {
		sc.Company = syncCompany
	}
	if f.Changed("max-parent-retries") {
		sc.MaxParentRetries = syncRetries
	}
	if f.Changed("retry-delay") {
		sc.RetryDelay = syncRetryDelay
	}
	if f.Changed("concurrency") {
		sc.Concurrency = syncConcurrency
	}
	if f.Changed("snapshot") {
		sc.Snapshot = syncSnapshot
	}
	if f.Changed("history") {
		sc.History = syncHistory
	}
}
