package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"remediPair/internal/amm"
	"remediPair/internal/chain"
	"remediPair/internal/config"
	"remediPair/internal/dex"
	"remediPair/internal/pair"
)

// shareDecimals matches the 18 decimals of V2 LP tokens.
const shareDecimals = 18

// poolView is the reserve data a quote is computed from.
type poolView struct {
	Source    string
	Pair      string
	SymbolA   string
	SymbolB   string
	DecimalsA uint8
	DecimalsB uint8
	ReserveA  *uint256.Int
	ReserveB  *uint256.Int
	Supply    *uint256.Int
	Block     uint64
}

type quoteOutput struct {
	Kind     string            `json:"kind"`
	Source   string            `json:"source"`
	Pair     string            `json:"pair,omitempty"`
	Block    uint64            `json:"block,omitempty"`
	AssetA   string            `json:"asset_a,omitempty"`
	AssetB   string            `json:"asset_b,omitempty"`
	ReserveA string            `json:"reserve_a"`
	ReserveB string            `json:"reserve_b"`
	Supply   string            `json:"share_supply,omitempty"`
	FeeBps   uint16            `json:"fee_bps"`
	Result   map[string]string `json:"result"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var view poolView
	if cfg.Pair != "" {
		view, err = fetchPoolView(ctx, cfg, logger)
	} else {
		view, err = offlinePoolView(cfg)
	}
	if err != nil {
		return err
	}

	out, err := computeQuote(cfg, view)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func fetchPoolView(ctx context.Context, cfg config.QuoteConfig, logger *zap.Logger) (poolView, error) {
	if cfg.RPCURL == "" {
		return poolView{}, fmt.Errorf("rpc url is required with --pair")
	}
	if !common.IsHexAddress(cfg.Pair) {
		return poolView{}, fmt.Errorf("invalid pair address: %s", cfg.Pair)
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return poolView{}, fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	var block *big.Int
	if cfg.Block > 0 {
		block = new(big.Int).SetUint64(cfg.Block)
	}

	reader := dex.NewReader(chainClient, dex.ReaderOptions{
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBackoff,
	}, logger)
	pairState, err := reader.FetchPairState(ctx, common.HexToAddress(cfg.Pair), block)
	if err != nil {
		return poolView{}, fmt.Errorf("fetch pair: %w", err)
	}

	var chainID *big.Int
	err = chain.WithRetry(ctx, cfg.MaxRetries, cfg.RetryBackoff, func(ctx context.Context) error {
		var idErr error
		chainID, idErr = chainClient.GetChainID(ctx)
		return idErr
	})
	if err != nil {
		return poolView{}, fmt.Errorf("chain id: %w", err)
	}

	logger.Info("pair loaded",
		zap.String("chain_id", chainID.String()),
		zap.Uint64("block", pairState.Block),
		zap.String("pair", cfg.Pair),
		zap.String("token0", pairState.Token0.Symbol),
		zap.String("token1", pairState.Token1.Symbol),
		zap.Uint32("block_timestamp_last", pairState.BlockTimestampLast),
	)

	return poolView{
		Source:    "rpc",
		Pair:      pairState.Address.Hex(),
		SymbolA:   pairState.Token0.Symbol,
		SymbolB:   pairState.Token1.Symbol,
		DecimalsA: pairState.Token0.Decimals,
		DecimalsB: pairState.Token1.Decimals,
		ReserveA:  pairState.Reserve0,
		ReserveB:  pairState.Reserve1,
		Supply:    pairState.TotalSupply,
		Block:     pairState.Block,
	}, nil
}

func offlinePoolView(cfg config.QuoteConfig) (poolView, error) {
	reserveA, err := amm.ParseAmount(cfg.ReserveA)
	if err != nil {
		return poolView{}, fmt.Errorf("reserve-a: %w", err)
	}
	reserveB, err := amm.ParseAmount(cfg.ReserveB)
	if err != nil {
		return poolView{}, fmt.Errorf("reserve-b: %w", err)
	}
	supply, err := amm.ParseAmount(cfg.Supply)
	if err != nil {
		return poolView{}, fmt.Errorf("supply: %w", err)
	}
	return poolView{
		Source:    "offline",
		SymbolA:   "A",
		SymbolB:   "B",
		DecimalsA: cfg.DecimalsA,
		DecimalsB: cfg.DecimalsB,
		ReserveA:  reserveA,
		ReserveB:  reserveB,
		Supply:    supply,
	}, nil
}

// computeQuote runs the requested quote against view. Amounts in cfg are
// token units; results are formatted with the matching decimals.
func computeQuote(cfg config.QuoteConfig, view poolView) (quoteOutput, error) {
	out := quoteOutput{
		Kind:     strings.ToLower(cfg.Kind),
		Source:   view.Source,
		Pair:     view.Pair,
		Block:    view.Block,
		AssetA:   view.SymbolA,
		AssetB:   view.SymbolB,
		ReserveA: amm.FormatUnits(view.ReserveA, view.DecimalsA),
		ReserveB: amm.FormatUnits(view.ReserveB, view.DecimalsB),
		Supply:   amm.FormatUnits(view.Supply, shareDecimals),
		FeeBps:   cfg.FeeBps,
		Result:   make(map[string]string),
	}
	if err := amm.ValidateFee(cfg.FeeBps); err != nil {
		return quoteOutput{}, err
	}

	switch out.Kind {
	case "swap":
		input, err := pair.ParseAsset(cfg.Input)
		if err != nil {
			return quoteOutput{}, err
		}
		reserveIn, reserveOut := view.ReserveA, view.ReserveB
		decIn, decOut := view.DecimalsA, view.DecimalsB
		if input == pair.AssetB {
			reserveIn, reserveOut = view.ReserveB, view.ReserveA
			decIn, decOut = view.DecimalsB, view.DecimalsA
		}
		amountIn, err := amm.ParseUnits(cfg.Amount, decIn)
		if err != nil {
			return quoteOutput{}, fmt.Errorf("amount: %w", err)
		}
		amountOut, err := amm.QuoteSwapOutput(amountIn, reserveIn, reserveOut, cfg.FeeBps)
		if err != nil {
			return quoteOutput{}, err
		}
		out.Result["input"] = input.String()
		out.Result["amount_in"] = amm.FormatUnits(amountIn, decIn)
		out.Result["amount_out"] = amm.FormatUnits(amountOut, decOut)

	case "required-a":
		amountB, err := amm.ParseUnits(cfg.Amount, view.DecimalsB)
		if err != nil {
			return quoteOutput{}, fmt.Errorf("amount: %w", err)
		}
		required, err := amm.QuoteCounterAmount(amountB, view.ReserveB, view.ReserveA)
		if err != nil {
			return quoteOutput{}, err
		}
		out.Result["amount_b"] = amm.FormatUnits(amountB, view.DecimalsB)
		out.Result["required_a"] = amm.FormatUnits(required, view.DecimalsA)

	case "required-b":
		amountA, err := amm.ParseUnits(cfg.Amount, view.DecimalsA)
		if err != nil {
			return quoteOutput{}, fmt.Errorf("amount: %w", err)
		}
		required, err := amm.QuoteCounterAmount(amountA, view.ReserveA, view.ReserveB)
		if err != nil {
			return quoteOutput{}, err
		}
		out.Result["amount_a"] = amm.FormatUnits(amountA, view.DecimalsA)
		out.Result["required_b"] = amm.FormatUnits(required, view.DecimalsB)

	case "mint":
		amountA, err := amm.ParseUnits(cfg.Amount, view.DecimalsA)
		if err != nil {
			return quoteOutput{}, fmt.Errorf("amount: %w", err)
		}
		amountB, err := amm.ParseUnits(cfg.AmountB, view.DecimalsB)
		if err != nil {
			return quoteOutput{}, fmt.Errorf("amount-b: %w", err)
		}
		usedA, usedB, err := amm.OptimalDeposit(amountA, amountB, view.ReserveA, view.ReserveB)
		if err != nil {
			return quoteOutput{}, err
		}
		shares, err := amm.QuoteShareMint(usedA, usedB, view.ReserveA, view.ReserveB, view.Supply)
		if err != nil {
			return quoteOutput{}, err
		}
		out.Result["used_a"] = amm.FormatUnits(usedA, view.DecimalsA)
		out.Result["used_b"] = amm.FormatUnits(usedB, view.DecimalsB)
		out.Result["shares"] = amm.FormatUnits(shares, shareDecimals)

	case "redeem":
		shares, err := amm.ParseUnits(cfg.Amount, shareDecimals)
		if err != nil {
			return quoteOutput{}, fmt.Errorf("amount: %w", err)
		}
		amountA, amountB, err := amm.QuoteShareRedemption(shares, view.ReserveA, view.ReserveB, view.Supply)
		if err != nil {
			return quoteOutput{}, err
		}
		out.Result["shares"] = amm.FormatUnits(shares, shareDecimals)
		out.Result["amount_a"] = amm.FormatUnits(amountA, view.DecimalsA)
		out.Result["amount_b"] = amm.FormatUnits(amountB, view.DecimalsB)

	default:
		return quoteOutput{}, fmt.Errorf("unknown quote kind %q", cfg.Kind)
	}

	return out, nil
}
