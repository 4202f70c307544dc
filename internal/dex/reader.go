package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"remediPair/internal/chain"
	"remediPair/internal/model"
)

// Caller performs eth_call and reports the chain head. *chain.Client
// satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// PairState is a V2 pair read at one block.
type PairState struct {
	Address            common.Address
	Token0             model.TokenMeta
	Token1             model.TokenMeta
	Reserve0           *uint256.Int
	Reserve1           *uint256.Int
	TotalSupply        *uint256.Int
	BlockTimestampLast uint32
	Block              uint64
}

// ReaderOptions tune RPC retries.
type ReaderOptions struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Reader loads V2 pair reserves and token metadata over RPC.
type Reader struct {
	caller     Caller
	tokens     *TokenMetaCache
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

func NewReader(caller Caller, opts ReaderOptions, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		caller:     caller,
		tokens:     NewTokenMetaCache(),
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.RetryBaseDelay,
		logger:     logger,
	}
}

// FetchPairState reads tokens, reserves and LP supply of pair. Every call is
// made at the same block; a nil block is pinned to the current head first.
func (r *Reader) FetchPairState(ctx context.Context, pair common.Address, block *big.Int) (PairState, error) {
	if r.caller == nil {
		return PairState{}, fmt.Errorf("chain client is nil")
	}
	pairABI, err := V2PairABI()
	if err != nil {
		return PairState{}, fmt.Errorf("parse pair abi: %w", err)
	}
	if block == nil {
		var head uint64
		err := chain.WithRetry(ctx, r.maxRetries, r.baseDelay, func(ctx context.Context) error {
			var headErr error
			head, headErr = r.caller.LatestBlockNumber(ctx)
			return headErr
		})
		if err != nil {
			return PairState{}, fmt.Errorf("latest block: %w", err)
		}
		block = new(big.Int).SetUint64(head)
	}

	state := PairState{Address: pair, Block: block.Uint64()}

	values, err := r.call(ctx, pair, pairABI, "token0", block)
	if err != nil {
		return PairState{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return PairState{}, fmt.Errorf("token0: %w", err)
	}

	values, err = r.call(ctx, pair, pairABI, "token1", block)
	if err != nil {
		return PairState{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return PairState{}, fmt.Errorf("token1: %w", err)
	}

	values, err = r.call(ctx, pair, pairABI, "getReserves", block)
	if err != nil {
		return PairState{}, err
	}
	if len(values) < 3 {
		return PairState{}, fmt.Errorf("getReserves: expected 3 values, got %d", len(values))
	}
	if state.Reserve0, err = asUint256(values[0]); err != nil {
		return PairState{}, fmt.Errorf("reserve0: %w", err)
	}
	if state.Reserve1, err = asUint256(values[1]); err != nil {
		return PairState{}, fmt.Errorf("reserve1: %w", err)
	}
	if ts, ok := values[2].(uint32); ok {
		state.BlockTimestampLast = ts
	}

	values, err = r.call(ctx, pair, pairABI, "totalSupply", block)
	if err != nil {
		return PairState{}, err
	}
	if state.TotalSupply, err = asUint256(values[0]); err != nil {
		return PairState{}, fmt.Errorf("total supply: %w", err)
	}

	if state.Token0, err = r.fetchTokenMeta(ctx, token0, block); err != nil {
		return PairState{}, fmt.Errorf("token0 metadata: %w", err)
	}
	if state.Token1, err = r.fetchTokenMeta(ctx, token1, block); err != nil {
		return PairState{}, fmt.Errorf("token1 metadata: %w", err)
	}

	r.logger.Debug("pair state fetched",
		zap.String("pair", pair.Hex()),
		zap.Uint64("block", state.Block),
		zap.String("reserve0", state.Reserve0.Dec()),
		zap.String("reserve1", state.Reserve1.Dec()),
		zap.String("total_supply", state.TotalSupply.Dec()),
	)
	return state, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls. Decimals are
// required; symbol and name are best effort.
func (r *Reader) FetchTokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	return r.fetchTokenMeta(ctx, token, nil)
}

func (r *Reader) fetchTokenMeta(ctx context.Context, token common.Address, block *big.Int) (model.TokenMeta, error) {
	if meta, ok := r.tokens.Get(token); ok {
		return meta, nil
	}
	meta := model.TokenMeta{Address: token.Hex()}
	if r.caller == nil {
		return meta, fmt.Errorf("chain client is nil")
	}

	stringABI, err := erc20StringABI.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20Bytes32ABI.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := r.call(ctx, token, stringABI, "decimals", block)
	if err != nil {
		return meta, err
	}
	if meta.Decimals, err = asUint8(values[0]); err != nil {
		return meta, err
	}

	meta.Symbol = r.textField(ctx, token, stringABI, bytes32ABI, "symbol", block)
	meta.Name = r.textField(ctx, token, stringABI, bytes32ABI, "name", block)

	r.tokens.Set(token, meta)
	return meta, nil
}

func (r *Reader) textField(ctx context.Context, token common.Address, stringABI, bytes32ABI abi.ABI, method string, block *big.Int) string {
	if values, err := r.call(ctx, token, stringABI, method, block); err == nil {
		if s, ok := values[0].(string); ok {
			return s
		}
	}
	values, err := r.call(ctx, token, bytes32ABI, method, block)
	if err != nil {
		r.logger.Debug(method+" call failed", zap.String("token", token.Hex()), zap.Error(err))
		return ""
	}
	s, _ := bytes32ToString(values[0])
	return s
}

func (r *Reader) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}

	var resp []byte
	err = chain.WithRetry(ctx, r.maxRetries, r.baseDelay, func(ctx context.Context) error {
		var callErr error
		resp, callErr = r.caller.CallContract(ctx, msg, block)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asUint256(value interface{}) (*uint256.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		out, overflow := uint256.FromBig(v)
		if overflow || v.Sign() < 0 {
			return nil, fmt.Errorf("value %s does not fit uint256", v.String())
		}
		return out, nil
	case uint8:
		return uint256.NewInt(uint64(v)), nil
	case uint16:
		return uint256.NewInt(uint64(v)), nil
	case uint32:
		return uint256.NewInt(uint64(v)), nil
	case uint64:
		return uint256.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("decimals %s out of range", v.String())
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
