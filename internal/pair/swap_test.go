package pair_test

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"remediPair/internal/amm"
	"remediPair/internal/model"
	"remediPair/internal/pair"
)

func seeded(t *testing.T, a, b uint64) *harness {
	t.Helper()
	h := newHarness(t, nil)
	h.fund(t, provider1, u(a), u(b))
	_, err := h.pair.ProvideLiquidity(provider1, u(a), u(b))
	require.NoError(t, err)
	return h
}

func TestParseAsset(t *testing.T) {
	for input, want := range map[string]pair.Asset{"A": pair.AssetA, "a": pair.AssetA, " B ": pair.AssetB} {
		got, err := pair.ParseAsset(input)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := pair.ParseAsset("C")
	require.Error(t, err)
}

func TestSwapAForB(t *testing.T) {
	h := seeded(t, 1_000_000, 1_000_000)
	h.fund(t, swapper, u(1000), u(0))

	quoted, err := h.pair.QuoteSwap(pair.AssetA, u(1000))
	require.NoError(t, err)
	require.Equal(t, u(996), quoted)

	result, err := h.pair.Swap(swapper, pair.AssetA, u(1000), u(996))
	require.NoError(t, err)
	require.Equal(t, u(996), result.AmountOut)

	details := h.pair.PoolDetails()
	require.Equal(t, u(1_001_000), details.ReserveA)
	require.Equal(t, u(999_004), details.ReserveB)

	holdings := h.pair.HoldingsOf(swapper)
	require.True(t, holdings.AssetA.IsZero())
	require.Equal(t, u(996), holdings.AssetB)
}

func TestSwapBForA(t *testing.T) {
	h := seeded(t, 5_000, 20_000)
	h.fund(t, swapper, u(0), u(400))

	result, err := h.pair.Swap(swapper, pair.AssetB, u(400), nil)
	require.NoError(t, err)
	// 400 * 9970 / 10000 = 398; 5000 * 398 / 20398 = 97
	require.Equal(t, u(97), result.AmountOut)

	details := h.pair.PoolDetails()
	require.Equal(t, u(4_903), details.ReserveA)
	require.Equal(t, u(20_400), details.ReserveB)
}

func TestSwapSlippageLeavesStateUntouched(t *testing.T) {
	h := seeded(t, 1_000_000, 1_000_000)
	h.fund(t, swapper, u(1000), u(0))

	before := h.state()
	_, err := h.pair.Swap(swapper, pair.AssetA, u(1000), u(997))
	require.ErrorIs(t, err, amm.ErrSlippageExceeded)
	require.Equal(t, before, h.state())
	require.Equal(t, uint64(1), h.pair.Sequence())
}

func TestSwapRejections(t *testing.T) {
	h := newHarness(t, nil)
	h.fund(t, swapper, u(1000), u(1000))

	_, err := h.pair.Swap(swapper, pair.AssetA, u(10), nil)
	require.ErrorIs(t, err, amm.ErrPoolInactive)

	h = seeded(t, 1_000, 1_000)
	h.fund(t, swapper, u(1000), u(1000))

	_, err = h.pair.Swap(swapper, pair.AssetA, u(0), nil)
	require.ErrorIs(t, err, amm.ErrZeroAmount)

	// the fee eats the whole input
	_, err = h.pair.Swap(swapper, pair.AssetA, u(1), nil)
	require.ErrorIs(t, err, amm.ErrInsufficientOutput)

	_, err = h.pair.Swap(swapper, pair.AssetB, u(5000), nil)
	require.ErrorIs(t, err, amm.ErrCollaboratorFailure)
}

func TestSwapsNeverShrinkProduct(t *testing.T) {
	h := seeded(t, 3_000_000, 7_000_000)
	h.fund(t, swapper, u(10_000_000), u(10_000_000))

	product := func() *uint256.Int {
		d := h.pair.PoolDetails()
		return new(uint256.Int).Mul(d.ReserveA, d.ReserveB)
	}

	last := product()
	amounts := []uint64{17, 1_000, 33_333, 250_000, 9, 77_777, 1_234_567}
	for i, amount := range amounts {
		input := pair.AssetA
		if i%2 == 1 {
			input = pair.AssetB
		}
		_, err := h.pair.Swap(swapper, input, u(amount), nil)
		require.NoError(t, err)

		next := product()
		require.Falsef(t, next.Lt(last), "product shrank after swap %d", i)
		last = next
	}
}

func TestConcurrentSwapsKeepCustody(t *testing.T) {
	h := seeded(t, 50_000_000, 50_000_000)
	h.fund(t, swapper, u(5_000_000), u(5_000_000))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := pair.AssetA
			if i%2 == 0 {
				input = pair.AssetB
			}
			for j := 0; j < 25; j++ {
				if _, err := h.pair.Swap(swapper, input, u(10_000), nil); err != nil {
					t.Error(err)
					return
				}
				_ = h.pair.PoolDetails()
			}
		}(i)
	}
	wg.Wait()

	details := h.pair.PoolDetails()
	require.Equal(t, h.tokenA.BalanceOf(poolAddr), details.ReserveA)
	require.Equal(t, h.tokenB.BalanceOf(poolAddr), details.ReserveB)
	require.Equal(t, uint64(1+8*25), h.pair.Sequence())
}

func TestEventsFollowCommits(t *testing.T) {
	h := seeded(t, 1_000, 4_000)
	h.fund(t, swapper, u(100), u(0))

	_, err := h.pair.Swap(swapper, pair.AssetA, u(100), nil)
	require.NoError(t, err)
	_, err = h.pair.Swap(swapper, pair.AssetA, u(100), nil)
	require.Error(t, err)
	_, err = h.pair.WithdrawLiquidity(provider1, u(1_000))
	require.NoError(t, err)

	require.Len(t, h.sink.events, 3)
	kinds := []string{model.EventMint, model.EventSwap, model.EventBurn}
	for i, event := range h.sink.events {
		require.Equal(t, kinds[i], event.Kind)
		require.Equal(t, uint64(i+1), event.Sequence)
		require.Equal(t, "Token A - Token B Pair", event.Pair)
	}

	swap := h.sink.events[1]
	require.Equal(t, "A", swap.InputAsset)
	require.Equal(t, "100", swap.AmountIn)
	require.Equal(t, swapper.Hex(), swap.Account)
}

func TestRestore(t *testing.T) {
	h := seeded(t, 5, 20)

	require.ErrorIs(t, h.pair.Restore(u(5), u(0), 9), amm.ErrInvariantViolation)
	require.ErrorIs(t, h.pair.Restore(u(6), u(20), 9), amm.ErrInvariantViolation)

	require.NoError(t, h.pair.Restore(u(5), u(20), 9))
	require.Equal(t, uint64(9), h.pair.Sequence())
}

// phantomDeposit acknowledges TransferIn without moving any funds once armed.
type phantomDeposit struct {
	pair.AssetLedger
	armed bool
}

func (p *phantomDeposit) TransferIn(from common.Address, amount *uint256.Int) error {
	if p.armed {
		return nil
	}
	return p.AssetLedger.TransferIn(from, amount)
}

func TestSwapCustodyViolationAbortsBeforeCommit(t *testing.T) {
	var phantom *phantomDeposit
	h := newHarness(t, func(deps *pair.Dependencies) {
		phantom = &phantomDeposit{AssetLedger: deps.LedgerA}
		deps.LedgerA = phantom
	})
	h.fund(t, provider1, u(1_000_000), u(1_000_000))
	_, err := h.pair.ProvideLiquidity(provider1, u(1_000_000), u(1_000_000))
	require.NoError(t, err)
	h.fund(t, swapper, u(1000), u(0))
	events := len(h.sink.events)

	before := h.state()
	phantom.armed = true
	_, err = h.pair.Swap(swapper, pair.AssetA, u(1000), nil)
	require.ErrorIs(t, err, amm.ErrInvariantViolation)
	require.Equal(t, before, h.state())
	require.Len(t, h.sink.events, events)
	require.Equal(t, uint64(1), h.pair.Sequence())
	require.True(t, h.tokenB.BalanceOf(swapper).IsZero())
}

func TestSwapRejectsUnknownAssetAndMissingAmounts(t *testing.T) {
	h := seeded(t, 1_000, 1_000)
	h.fund(t, swapper, u(1000), u(1000))
	bogus := pair.Asset(7)
	require.Equal(t, "Asset(7)", bogus.String())

	before := h.state()
	_, err := h.pair.Swap(swapper, bogus, u(100), nil)
	require.ErrorIs(t, err, pair.ErrUnknownAsset)
	_, err = h.pair.QuoteSwap(bogus, u(100))
	require.ErrorIs(t, err, pair.ErrUnknownAsset)
	_, err = pair.ParseAsset("C")
	require.ErrorIs(t, err, pair.ErrUnknownAsset)

	_, err = h.pair.Swap(swapper, pair.AssetA, nil, nil)
	require.ErrorIs(t, err, amm.ErrZeroAmount)
	_, err = h.pair.QuoteSwap(pair.AssetA, nil)
	require.ErrorIs(t, err, amm.ErrZeroAmount)
	_, err = h.pair.ProvideLiquidity(swapper, nil, u(10))
	require.ErrorIs(t, err, amm.ErrZeroAmount)
	_, err = h.pair.WithdrawLiquidity(provider1, nil)
	require.ErrorIs(t, err, amm.ErrZeroAmount)
	_, _, err = h.pair.QuoteWithdraw(nil)
	require.ErrorIs(t, err, amm.ErrZeroAmount)
	_, err = h.pair.RequiredTokenA(nil)
	require.ErrorIs(t, err, amm.ErrZeroAmount)
	_, err = h.pair.RequiredTokenB(nil)
	require.ErrorIs(t, err, amm.ErrZeroAmount)

	require.Equal(t, before, h.state())
}
