package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"remediPair/internal/model"
)

// Set PAIR_TEST_PG_DSN to run against a scratch database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("PAIR_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("PAIR_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return store
}

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestPoolStateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	name := fmt.Sprintf("test-%d", time.Now().UnixNano())

	if _, ok, err := store.LoadPoolState(ctx, name); err != nil || ok {
		t.Fatalf("expected no state, got ok=%v err=%v", ok, err)
	}

	state := model.PoolState{
		Pair:     model.PoolSnapshot{Name: name, ReserveA: "5", ReserveB: "20", ShareSupply: "10", Active: true},
		Supplies: []model.SupplyEntry{{Token: "0x01", Amount: "10"}},
		Sequence: 4,
	}
	if err := store.SavePoolState(ctx, name, state); err != nil {
		t.Fatalf("save: %v", err)
	}
	state.Sequence = 5
	if err := store.SavePoolState(ctx, name, state); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, ok, err := store.LoadPoolState(ctx, name)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Sequence != 5 || got.Pair.ReserveB != "20" || len(got.Supplies) != 1 {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestPutEventsIgnoresReplays(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	name := fmt.Sprintf("test-%d", time.Now().UnixNano())

	events := []model.PairEvent{
		{Pair: name, Sequence: 1, Kind: model.EventMint, Account: "0x01", AmountA: "5", AmountB: "20", Shares: "10", ReserveA: "5", ReserveB: "20", ShareSupply: "10", Timestamp: time.Now().UTC()},
		{Pair: name, Sequence: 2, Kind: model.EventSwap, Account: "0x02", InputAsset: "A", AmountIn: "1", AmountOut: "2", ReserveA: "6", ReserveB: "18", ShareSupply: "10", Timestamp: time.Now().UTC()},
	}
	if err := store.PutEvents(ctx, events); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.PutEvents(ctx, events); err != nil {
		t.Fatalf("replay: %v", err)
	}

	var count int
	if err := store.pool.QueryRow(ctx, `SELECT count(*) FROM pair_events WHERE pair=$1`, name).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}
}
