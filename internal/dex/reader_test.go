package dex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	testPair   = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	testToken0 = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	testToken1 = common.HexToAddress("0x00000000000000000000000000000000000000a1")
)

// fakeChain answers eth_call from canned responses keyed by contract and
// method selector.
type fakeChain struct {
	responses map[common.Address]map[[4]byte][]byte
	failures  int
	calls     int
	head      uint64
	headCalls int
	blocks    []*big.Int
}

func newFakeChain() *fakeChain {
	return &fakeChain{responses: make(map[common.Address]map[[4]byte][]byte)}
}

func (f *fakeChain) set(t *testing.T, to common.Address, parsed abi.ABI, method string, values ...interface{}) {
	t.Helper()
	m, ok := parsed.Methods[method]
	if !ok {
		t.Fatalf("unknown method %s", method)
	}
	out, err := m.Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	if f.responses[to] == nil {
		f.responses[to] = make(map[[4]byte][]byte)
	}
	var id [4]byte
	copy(id[:], m.ID)
	f.responses[to][id] = out
}

func (f *fakeChain) LatestBlockNumber(ctx context.Context) (uint64, error) {
	f.headCalls++
	return f.head, nil
}

func (f *fakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls++
	f.blocks = append(f.blocks, blockNumber)
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("connection reset")
	}
	var id [4]byte
	copy(id[:], msg.Data)
	resp, ok := f.responses[*msg.To][id]
	if !ok {
		return nil, fmt.Errorf("execution reverted")
	}
	return resp, nil
}

func seedChain(t *testing.T) *fakeChain {
	t.Helper()
	pairABI, err := V2PairABI()
	if err != nil {
		t.Fatalf("pair abi: %v", err)
	}
	erc20, err := ERC20ABI()
	if err != nil {
		t.Fatalf("erc20 abi: %v", err)
	}

	fc := newFakeChain()
	fc.set(t, testPair, pairABI, "token0", testToken0)
	fc.set(t, testPair, pairABI, "token1", testToken1)
	fc.set(t, testPair, pairABI, "getReserves", big.NewInt(5_000_000), big.NewInt(20_000_000), uint32(1700000000))
	fc.set(t, testPair, pairABI, "totalSupply", big.NewInt(10_000_000))
	fc.set(t, testToken0, erc20, "decimals", uint8(6))
	fc.set(t, testToken0, erc20, "symbol", "USDC")
	fc.set(t, testToken0, erc20, "name", "USD Coin")
	fc.set(t, testToken1, erc20, "decimals", uint8(18))
	fc.set(t, testToken1, erc20, "symbol", "WETH")
	fc.set(t, testToken1, erc20, "name", "Wrapped Ether")
	return fc
}

func TestFetchPairState(t *testing.T) {
	fc := seedChain(t)
	reader := NewReader(fc, ReaderOptions{}, nil)

	state, err := reader.FetchPairState(context.Background(), testPair, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !state.Reserve0.Eq(uint256.NewInt(5_000_000)) || !state.Reserve1.Eq(uint256.NewInt(20_000_000)) {
		t.Fatalf("unexpected reserves %s/%s", state.Reserve0.Dec(), state.Reserve1.Dec())
	}
	if !state.TotalSupply.Eq(uint256.NewInt(10_000_000)) {
		t.Fatalf("unexpected supply %s", state.TotalSupply.Dec())
	}
	if state.BlockTimestampLast != 1700000000 {
		t.Fatalf("unexpected timestamp %d", state.BlockTimestampLast)
	}
	if state.Token0.Symbol != "USDC" || state.Token0.Decimals != 6 || state.Token1.Name != "Wrapped Ether" {
		t.Fatalf("unexpected token meta %+v %+v", state.Token0, state.Token1)
	}
	if state.Token0.Address != testToken0.Hex() {
		t.Fatalf("unexpected token0 address %s", state.Token0.Address)
	}
}

func TestFetchPairStatePinsOneBlock(t *testing.T) {
	fc := seedChain(t)
	fc.head = 19_000_123
	reader := NewReader(fc, ReaderOptions{}, nil)

	state, err := reader.FetchPairState(context.Background(), testPair, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if state.Block != fc.head || fc.headCalls != 1 {
		t.Fatalf("expected block %d from one head lookup, got %d after %d lookups", fc.head, state.Block, fc.headCalls)
	}
	if len(fc.blocks) == 0 {
		t.Fatalf("no calls recorded")
	}
	for i, block := range fc.blocks {
		if block == nil || block.Uint64() != fc.head {
			t.Fatalf("call %d made at block %v, want %d", i, block, fc.head)
		}
	}

	fc = seedChain(t)
	reader = NewReader(fc, ReaderOptions{}, nil)
	if _, err := reader.FetchPairState(context.Background(), testPair, big.NewInt(77)); err != nil {
		t.Fatalf("fetch at block: %v", err)
	}
	if fc.headCalls != 0 {
		t.Fatalf("explicit block still looked up the head")
	}
	for i, block := range fc.blocks {
		if block == nil || block.Int64() != 77 {
			t.Fatalf("call %d made at block %v, want 77", i, block)
		}
	}
}

func TestFetchTokenMetaIsCached(t *testing.T) {
	fc := seedChain(t)
	reader := NewReader(fc, ReaderOptions{}, nil)

	if _, err := reader.FetchTokenMeta(context.Background(), testToken1); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	calls := fc.calls
	if _, err := reader.FetchTokenMeta(context.Background(), testToken1); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if fc.calls != calls {
		t.Fatalf("expected cached metadata, saw %d extra calls", fc.calls-calls)
	}
}

func TestFetchTokenMetaBytes32Symbol(t *testing.T) {
	fc := newFakeChain()
	erc20, _ := ERC20ABI()
	legacy, err := erc20Bytes32ABI.get()
	if err != nil {
		t.Fatalf("bytes32 abi: %v", err)
	}
	var symbol [32]byte
	copy(symbol[:], "MKR")
	fc.set(t, testToken0, erc20, "decimals", uint8(18))
	fc.set(t, testToken0, legacy, "symbol", symbol)

	reader := NewReader(fc, ReaderOptions{}, nil)
	meta, err := reader.FetchTokenMeta(context.Background(), testToken0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if meta.Symbol != "MKR" || meta.Name != "" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestFetchPairStateRetries(t *testing.T) {
	fc := seedChain(t)
	fc.failures = 2
	reader := NewReader(fc, ReaderOptions{MaxRetries: 2, RetryBaseDelay: time.Millisecond}, nil)

	if _, err := reader.FetchPairState(context.Background(), testPair, nil); err != nil {
		t.Fatalf("expected retry to recover: %v", err)
	}
}

func TestFetchPairStateMissingContract(t *testing.T) {
	reader := NewReader(newFakeChain(), ReaderOptions{}, nil)
	if _, err := reader.FetchPairState(context.Background(), testPair, nil); err == nil {
		t.Fatalf("expected error for missing pair")
	}
}

func TestBytes32ToString(t *testing.T) {
	var raw [32]byte
	copy(raw[:], "DAI")
	got, ok := bytes32ToString(raw)
	if !ok || got != "DAI" {
		t.Fatalf("unexpected %q", got)
	}
	if got, ok := bytes32ToString(bytes.Repeat([]byte{0}, 4)); !ok || got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
