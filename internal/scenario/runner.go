package scenario

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"remediPair/internal/amm"
	"remediPair/internal/ledger"
	"remediPair/internal/model"
	"remediPair/internal/pair"
)

// Operation names accepted in scripts.
const (
	OpMint     = "mint"
	OpApprove  = "approve"
	OpProvide  = "provide"
	OpWithdraw = "withdraw"
	OpSwap     = "swap"
	OpDetails  = "details"
	OpHoldings = "holdings"
	OpRequired = "required"
)

// ErrUnknownOp is returned for an op name the runner does not know.
var ErrUnknownOp = errors.New("unknown op")

// Summary counts the outcome of a run.
type Summary struct {
	Lines     int
	Succeeded int
	Failed    int
}

// Runner applies operations to a World one at a time.
type Runner struct {
	world  *World
	logger *zap.Logger
	now    func() time.Time
}

func NewRunner(world *World, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{world: world, logger: logger, now: time.Now}
}

// Run reads JSONL operations from in and reports one result per non-blank
// line through emit. A failed operation is reported, not returned; only
// read, emit, and context errors stop the run.
func (r *Runner) Run(ctx context.Context, in io.Reader, emit func(model.OperationResult) error) (Summary, error) {
	var summary Summary
	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		summary.Lines++

		var op model.Operation
		result := model.OperationResult{Line: lineNo}
		if err := json.Unmarshal([]byte(line), &op); err != nil {
			result.Error = fmt.Sprintf("parse operation: %v", err)
		} else {
			result.Op = op.Op
			result.Account = op.Account
			output, err := r.Apply(op)
			if err != nil {
				result.Error = err.Error()
			} else {
				result.OK = true
				result.Output = output
			}
		}
		result.Timestamp = r.now().UTC().Format(time.RFC3339Nano)

		if result.OK {
			summary.Succeeded++
		} else {
			summary.Failed++
			r.logger.Info("operation failed", zap.Int("line", lineNo), zap.String("op", result.Op), zap.String("error", result.Error))
		}
		if emit != nil {
			if err := emit(result); err != nil {
				return summary, fmt.Errorf("emit result: %w", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("read operations: %w", err)
	}
	return summary, nil
}

// Apply executes a single operation and returns its JSON output.
func (r *Runner) Apply(op model.Operation) (json.RawMessage, error) {
	var (
		output interface{}
		err    error
	)
	switch op.Op {
	case OpMint:
		output, err = r.mint(op)
	case OpApprove:
		output, err = r.approve(op)
	case OpProvide:
		output, err = r.provide(op)
	case OpWithdraw:
		output, err = r.withdraw(op)
	case OpSwap:
		output, err = r.swap(op)
	case OpDetails:
		output = r.world.Pair.Snapshot()
	case OpHoldings:
		output, err = r.holdings(op)
	case OpRequired:
		output, err = r.required(op)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownOp, op.Op)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(output)
}

type balanceOutput struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Balance string `json:"balance"`
}

type allowanceOutput struct {
	Asset     string `json:"asset"`
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Allowance string `json:"allowance"`
}

type depositOutput struct {
	AmountA string `json:"amount_a"`
	AmountB string `json:"amount_b"`
	Shares  string `json:"shares"`
}

type swapOutput struct {
	Input     string `json:"input"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
}

type requiredOutput struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

func (r *Runner) mint(op model.Operation) (interface{}, error) {
	account, err := ResolveAccount(op.Account)
	if err != nil {
		return nil, err
	}
	token, err := r.token(op.Asset)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", op.Amount)
	if err != nil {
		return nil, err
	}
	if err := token.Mint(account, amount); err != nil {
		return nil, err
	}
	return balanceOutput{Asset: op.Asset, Account: account.Hex(), Balance: token.BalanceOf(account).Dec()}, nil
}

func (r *Runner) approve(op model.Operation) (interface{}, error) {
	owner, err := ResolveAccount(op.Account)
	if err != nil {
		return nil, err
	}
	spender := r.world.Pair.Address()
	if op.Spender != "" {
		if spender, err = ResolveAccount(op.Spender); err != nil {
			return nil, err
		}
	}
	token, err := r.token(op.Asset)
	if err != nil {
		return nil, err
	}
	amount := new(uint256.Int).SetAllOne()
	if !strings.EqualFold(op.Amount, "max") {
		if amount, err = parseAmount("amount", op.Amount); err != nil {
			return nil, err
		}
	}
	token.Approve(owner, spender, amount)
	return allowanceOutput{Asset: op.Asset, Owner: owner.Hex(), Spender: spender.Hex(), Allowance: amount.Dec()}, nil
}

func (r *Runner) provide(op model.Operation) (interface{}, error) {
	provider, err := ResolveAccount(op.Account)
	if err != nil {
		return nil, err
	}
	amountA, err := parseAmount("amount", op.Amount)
	if err != nil {
		return nil, err
	}
	amountB, err := parseAmount("amount_b", op.AmountB)
	if err != nil {
		return nil, err
	}
	deposit, err := r.world.Pair.ProvideLiquidity(provider, amountA, amountB)
	if err != nil {
		return nil, err
	}
	return depositOutput{AmountA: deposit.AmountA.Dec(), AmountB: deposit.AmountB.Dec(), Shares: deposit.Shares.Dec()}, nil
}

func (r *Runner) withdraw(op model.Operation) (interface{}, error) {
	provider, err := ResolveAccount(op.Account)
	if err != nil {
		return nil, err
	}
	shares, err := parseAmount("shares", op.Shares)
	if err != nil {
		return nil, err
	}
	withdrawal, err := r.world.Pair.WithdrawLiquidity(provider, shares)
	if err != nil {
		return nil, err
	}
	return depositOutput{AmountA: withdrawal.AmountA.Dec(), AmountB: withdrawal.AmountB.Dec(), Shares: withdrawal.Shares.Dec()}, nil
}

func (r *Runner) swap(op model.Operation) (interface{}, error) {
	trader, err := ResolveAccount(op.Account)
	if err != nil {
		return nil, err
	}
	input, err := pair.ParseAsset(op.Asset)
	if err != nil {
		return nil, err
	}
	amountIn, err := parseAmount("amount", op.Amount)
	if err != nil {
		return nil, err
	}
	minOut, err := amm.ParseAmount(op.MinOut)
	if err != nil {
		return nil, fmt.Errorf("min_out: %w", err)
	}
	result, err := r.world.Pair.Swap(trader, input, amountIn, minOut)
	if err != nil {
		return nil, err
	}
	return swapOutput{Input: result.Input.String(), AmountIn: result.AmountIn.Dec(), AmountOut: result.AmountOut.Dec()}, nil
}

func (r *Runner) holdings(op model.Operation) (interface{}, error) {
	account, err := ResolveAccount(op.Account)
	if err != nil {
		return nil, err
	}
	return r.world.Pair.HoldingsOf(account).Record(account), nil
}

// required quotes the amount of op.Asset matching op.Amount of the other asset.
func (r *Runner) required(op model.Operation) (interface{}, error) {
	asset, err := pair.ParseAsset(op.Asset)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", op.Amount)
	if err != nil {
		return nil, err
	}
	var quoted *uint256.Int
	if asset == pair.AssetA {
		quoted, err = r.world.Pair.RequiredTokenA(amount)
	} else {
		quoted, err = r.world.Pair.RequiredTokenB(amount)
	}
	if err != nil {
		return nil, err
	}
	return requiredOutput{Asset: asset.String(), Amount: quoted.Dec()}, nil
}

func (r *Runner) token(asset string) (*ledger.Token, error) {
	parsed, err := pair.ParseAsset(asset)
	if err != nil {
		return nil, err
	}
	if parsed == pair.AssetB {
		return r.world.TokenB, nil
	}
	return r.world.TokenA, nil
}

func parseAmount(field, value string) (*uint256.Int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	amount, err := amm.ParseAmount(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return amount, nil
}
