package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"remediPair/internal/config"
	"remediPair/internal/model"
	"remediPair/internal/pair"
	"remediPair/internal/scenario"
	"remediPair/internal/state"
	"remediPair/internal/storage"
	"remediPair/internal/storage/postgres"
)

const resultBatchSize = 200

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks []storage.EventStorage
	if cfg.Events != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Events))
	}

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}

	pairName := pair.NameFor(cfg.AssetAName, cfg.AssetBName)
	var stateStore state.Store
	if cfg.StateFile != "" {
		stateStore = &state.FileStore{Path: cfg.StateFile}
	} else if store != nil {
		stateStore = &state.DBStore{Store: store, Name: pairName}
	}

	registry := prometheus.NewRegistry()
	metrics, err := pair.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	events := storage.NewEventBuffer()
	opts := scenario.Options{
		AssetA:  pair.Token{Name: cfg.AssetAName, Symbol: cfg.AssetASymbol},
		AssetB:  pair.Token{Name: cfg.AssetBName, Symbol: cfg.AssetBSymbol},
		FeeBps:  cfg.FeeBps,
		Sink:    events,
		Metrics: metrics,
		Logger:  logger,
	}
	world, err := loadWorld(ctx, stateStore, cfg.Resume, opts, logger)
	if err != nil {
		return err
	}

	input, err := os.Open(cfg.Input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer input.Close()

	logger.Info("simulate start",
		zap.String("pair", world.Pair.Name()),
		zap.String("input", cfg.Input),
		zap.String("results", cfg.Results),
		zap.String("events", cfg.Events),
		zap.String("state_file", cfg.StateFile),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint16("fee_bps", world.Pair.FeeBps()),
		zap.Uint64("sequence", world.Pair.Sequence()),
	)

	results := storage.NewJsonlStorage(cfg.Results)
	pending := make([]model.OperationResult, 0, resultBatchSize)
	flush := func() error {
		if err := results.PutResults(pending); err != nil {
			return fmt.Errorf("store results: %w", err)
		}
		pending = pending[:0]
		if err := events.Flush(ctx, sinks...); err != nil {
			return fmt.Errorf("store events: %w", err)
		}
		return nil
	}

	runner := scenario.NewRunner(world, logger)
	summary, runErr := runner.Run(ctx, input, func(result model.OperationResult) error {
		pending = append(pending, result)
		if len(pending) >= resultBatchSize {
			return flush()
		}
		return nil
	})
	if err := flush(); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if stateStore != nil {
		if err := stateStore.Save(ctx, world.Capture()); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}
	if cfg.MetricsOut != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsOut, registry); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	details := world.Pair.PoolDetails()
	logger.Info("simulate complete",
		zap.Int("operations", summary.Lines),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.String("reserve_a", details.ReserveA.Dec()),
		zap.String("reserve_b", details.ReserveB.Dec()),
		zap.String("share_supply", details.ShareSupply.Dec()),
	)
	return nil
}

// loadWorld resumes from the stored state when allowed and present.
func loadWorld(ctx context.Context, store state.Store, resume bool, opts scenario.Options, logger *zap.Logger) (*scenario.World, error) {
	if store != nil && resume {
		saved, ok, err := store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		if ok {
			world, err := scenario.Restore(saved, opts)
			if err != nil {
				return nil, fmt.Errorf("restore state: %w", err)
			}
			logger.Info("resume from state",
				zap.String("pair", saved.Pair.Name),
				zap.Uint64("sequence", saved.Sequence),
				zap.String("updated_at", saved.UpdatedAt),
			)
			return world, nil
		}
	}
	return scenario.NewWorld(opts)
}
