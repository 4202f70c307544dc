package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pairctl",
		Short:        "Constant-product liquidity pair toolkit",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a JSONL operation script against an in-memory pair",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("in", "", "input operations JSONL")
	simulateCmd.Flags().String("results", "./data/results.jsonl", "output results JSONL")
	simulateCmd.Flags().String("events", "./data/events.jsonl", "output pair events JSONL (empty disables)")
	simulateCmd.Flags().String("asset-a-name", "Token A", "display name of asset A")
	simulateCmd.Flags().String("asset-a-symbol", "TKA", "symbol of asset A")
	simulateCmd.Flags().String("asset-b-name", "Token B", "display name of asset B")
	simulateCmd.Flags().String("asset-b-symbol", "TKB", "symbol of asset B")
	simulateCmd.Flags().Int("fee-bps", 30, "swap fee in basis points")
	simulateCmd.Flags().String("state-file", "", "local state file (takes precedence over postgres)")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN for events and state")
	simulateCmd.Flags().Bool("resume", true, "resume from stored state when present")
	simulateCmd.Flags().String("metrics-out", "", "write prometheus metrics to this textfile")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote swaps, deposits and redemptions from given or on-chain reserves",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("kind", "swap", "quote kind (swap, required-a, required-b, mint, redeem)")
	quoteCmd.Flags().String("amount", "", "amount in token units (asset A for mint, shares for redeem)")
	quoteCmd.Flags().String("amount-b", "", "asset B amount for mint quotes")
	quoteCmd.Flags().String("input", "A", "input asset for swap quotes (A or B)")
	quoteCmd.Flags().String("reserve-a", "", "offline reserve of asset A in base units")
	quoteCmd.Flags().String("reserve-b", "", "offline reserve of asset B in base units")
	quoteCmd.Flags().String("supply", "", "offline share supply in base units")
	quoteCmd.Flags().Int("decimals-a", 18, "decimals of asset A (offline mode)")
	quoteCmd.Flags().Int("decimals-b", 18, "decimals of asset B (offline mode)")
	quoteCmd.Flags().Int("fee-bps", 30, "swap fee in basis points")
	quoteCmd.Flags().String("rpc", "", "RPC URL for on-chain reserves")
	quoteCmd.Flags().String("pair", "", "Uniswap V2 compatible pair address")
	quoteCmd.Flags().Uint64("block", 0, "block to read, 0 means latest")
	quoteCmd.Flags().Int("max-retries", 3, "maximum retry attempts")
	quoteCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print stored pool state",
		RunE:  runInspect,
	}

	inspectCmd.Flags().String("state-file", "", "local state file")
	inspectCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	inspectCmd.Flags().String("pair-name", "Token A - Token B Pair", "pair name used as the postgres state key")
	inspectCmd.Flags().String("account", "", "also print holdings of this account (address or label)")
	inspectCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(inspectCmd)

	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
