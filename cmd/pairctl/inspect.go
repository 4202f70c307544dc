package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"remediPair/internal/config"
	"remediPair/internal/model"
	"remediPair/internal/scenario"
	"remediPair/internal/state"
	"remediPair/internal/storage/postgres"
)

type inspectOutput struct {
	Pair      model.PoolSnapshot    `json:"pair"`
	Sequence  uint64                `json:"sequence"`
	UpdatedAt string                `json:"updated_at,omitempty"`
	Holdings  *model.HoldingsRecord `json:"holdings,omitempty"`
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadInspect(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var stateStore state.Store
	switch {
	case cfg.StateFile != "":
		stateStore = &state.FileStore{Path: cfg.StateFile}
	case cfg.PGDSN != "":
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		stateStore = &state.DBStore{Store: store, Name: cfg.PairName}
	default:
		return fmt.Errorf("state-file or pg-dsn is required")
	}

	logger.Debug("inspect state",
		zap.String("state_file", cfg.StateFile),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("pair_name", cfg.PairName),
	)

	return inspectState(ctx, stateStore, cfg.Account, cmd.OutOrStdout())
}

// inspectState rebuilds the stored pool so the printed details go through the
// same invariant checks as a resumed simulation.
func inspectState(ctx context.Context, store state.Store, account string, w io.Writer) error {
	saved, ok, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return fmt.Errorf("no stored state")
	}
	world, err := scenario.Restore(saved, scenario.Options{})
	if err != nil {
		return fmt.Errorf("restore state: %w", err)
	}

	out := inspectOutput{
		Pair:      world.Pair.Snapshot(),
		Sequence:  world.Pair.Sequence(),
		UpdatedAt: saved.UpdatedAt,
	}
	if account != "" {
		addr, err := scenario.ResolveAccount(account)
		if err != nil {
			return err
		}
		record := world.Pair.HoldingsOf(addr).Record(addr)
		out.Holdings = &record
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
