package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"remediPair/internal/amm"
	"remediPair/internal/model"
	"remediPair/internal/pair"
	"remediPair/internal/storage"
)

const script = `{"op":"mint","account":"alice","asset":"A","amount":"5000"}
{"op":"mint","account":"alice","asset":"B","amount":"20000"}
{"op":"approve","account":"alice","asset":"A","amount":"max"}
{"op":"approve","account":"alice","asset":"B","amount":"max"}
{"op":"provide","account":"alice","amount":"5000","amount_b":"20000"}

# quotes on a 1:4 pool
{"op":"required","asset":"A","amount":"75"}
{"op":"required","asset":"B","amount":"1"}
{"op":"swap","account":"alice","asset":"A","amount":"100"}
{"op":"bogus"}
not json
{"op":"details"}
{"op":"holdings","account":"alice"}
`

func newTestWorld(t *testing.T, sink pair.EventSink) *World {
	t.Helper()
	w, err := NewWorld(Options{
		AssetA: pair.Token{Name: "Token A", Symbol: "TKA"},
		AssetB: pair.Token{Name: "Token B", Symbol: "TKB"},
		FeeBps: amm.DefaultFeeBps,
		Sink:   sink,
		Now:    func() time.Time { return time.Unix(1700000000, 0) },
	})
	require.NoError(t, err)
	return w
}

func runScript(t *testing.T, w *World, body string) ([]model.OperationResult, Summary) {
	t.Helper()
	var results []model.OperationResult
	summary, err := NewRunner(w, nil).Run(context.Background(), strings.NewReader(body), func(r model.OperationResult) error {
		results = append(results, r)
		return nil
	})
	require.NoError(t, err)
	return results, summary
}

func TestRunScript(t *testing.T) {
	events := storage.NewEventBuffer()
	w := newTestWorld(t, events)

	results, summary := runScript(t, w, script)
	require.Equal(t, Summary{Lines: 12, Succeeded: 9, Failed: 3}, summary)
	require.Len(t, results, 12)

	byLine := make(map[int]model.OperationResult, len(results))
	for _, r := range results {
		byLine[r.Line] = r
	}

	var deposit depositOutput
	require.True(t, byLine[5].OK, byLine[5].Error)
	require.NoError(t, json.Unmarshal(byLine[5].Output, &deposit))
	require.Equal(t, depositOutput{AmountA: "5000", AmountB: "20000", Shares: "10000"}, deposit)

	var required requiredOutput
	require.NoError(t, json.Unmarshal(byLine[8].Output, &required))
	require.Equal(t, requiredOutput{Asset: "A", Amount: "18"}, required)
	require.NoError(t, json.Unmarshal(byLine[9].Output, &required))
	require.Equal(t, requiredOutput{Asset: "B", Amount: "4"}, required)

	require.False(t, byLine[10].OK)
	require.Contains(t, byLine[10].Error, "collaborator")
	require.False(t, byLine[11].OK)
	require.Contains(t, byLine[11].Error, ErrUnknownOp.Error())
	require.False(t, byLine[12].OK)
	require.Contains(t, byLine[12].Error, "parse operation")

	var snapshot model.PoolSnapshot
	require.NoError(t, json.Unmarshal(byLine[13].Output, &snapshot))
	require.Equal(t, "Token A - Token B Pair", snapshot.Name)
	require.Equal(t, "5000", snapshot.ReserveA)
	require.Equal(t, "20000", snapshot.ReserveB)
	require.True(t, snapshot.Active)

	var holdings model.HoldingsRecord
	require.NoError(t, json.Unmarshal(byLine[14].Output, &holdings))
	require.Equal(t, "0", holdings.AssetA)
	require.Equal(t, "10000", holdings.Shares)

	drained := events.Drain()
	require.Len(t, drained, 1)
	require.Equal(t, model.EventMint, drained[0].Kind)
}

func TestApplyRejectsMissingFields(t *testing.T) {
	w := newTestWorld(t, nil)
	r := NewRunner(w, nil)

	_, err := r.Apply(model.Operation{Op: OpMint, Account: "alice", Asset: "A"})
	require.Error(t, err)
	_, err = r.Apply(model.Operation{Op: OpMint, Account: "alice", Asset: "C", Amount: "1"})
	require.Error(t, err)
	_, err = r.Apply(model.Operation{Op: OpProvide, Amount: "1", AmountB: "1"})
	require.Error(t, err)
	_, err = r.Apply(model.Operation{Op: OpRequired, Asset: "A", Amount: "1"})
	require.ErrorIs(t, err, amm.ErrPoolInactive)
	_, err = r.Apply(model.Operation{Op: "launch"})
	require.True(t, errors.Is(err, ErrUnknownOp))
}

func TestCaptureRestoreResumes(t *testing.T) {
	w := newTestWorld(t, nil)
	runScript(t, w, script)

	saved := w.Capture()
	require.Equal(t, uint64(1), saved.Sequence)
	require.Len(t, saved.Tokens, 3)
	require.Len(t, saved.Minters, 1)

	events := storage.NewEventBuffer()
	restored, err := Restore(saved, Options{Sink: events})
	require.NoError(t, err)
	require.Equal(t, saved, restored.Capture())
	require.Equal(t, w.Pair.Address(), restored.Pair.Address())

	results, summary := runScript(t, restored, `{"op":"mint","account":"bob","asset":"B","amount":"400"}
{"op":"approve","account":"bob","asset":"B","amount":"400"}
{"op":"swap","account":"bob","asset":"B","amount":"400","min_out":"97"}
`)
	require.Equal(t, 3, summary.Succeeded, results)

	var swap swapOutput
	require.NoError(t, json.Unmarshal(results[2].Output, &swap))
	require.Equal(t, swapOutput{Input: "B", AmountIn: "400", AmountOut: "97"}, swap)

	drained := events.Drain()
	require.Len(t, drained, 1)
	require.Equal(t, uint64(2), drained[0].Sequence)
}

func TestRestoreRejectsInconsistentState(t *testing.T) {
	w := newTestWorld(t, nil)
	runScript(t, w, script)

	saved := w.Capture()
	saved.Pair.ReserveA = "5001"
	_, err := Restore(saved, Options{})
	require.ErrorIs(t, err, amm.ErrInvariantViolation)

	saved = w.Capture()
	saved.Pair.Address = "nope"
	_, err = Restore(saved, Options{})
	require.Error(t, err)
}

func TestResolveAccount(t *testing.T) {
	hex := "0x1111111111111111111111111111111111111111"
	got, err := ResolveAccount(hex)
	require.NoError(t, err)
	require.Equal(t, hex, strings.ToLower(got.Hex()))

	alice1, err := ResolveAccount("alice")
	require.NoError(t, err)
	alice2, err := ResolveAccount(" Alice ")
	require.NoError(t, err)
	require.Equal(t, alice1, alice2)

	_, err = ResolveAccount("0x1234")
	require.Error(t, err)
	_, err = ResolveAccount("")
	require.Error(t, err)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	w := newTestWorld(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(w, nil).Run(ctx, strings.NewReader(script), nil)
	require.ErrorIs(t, err, context.Canceled)
}
