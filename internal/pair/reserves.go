package pair

import (
	"fmt"

	"github.com/holiman/uint256"

	"remediPair/internal/amm"
)

// delta is a signed change to one reserve.
type delta struct {
	amount *uint256.Int
	debit  bool
}

func credit(amount *uint256.Int) delta { return delta{amount: amount} }
func debit(amount *uint256.Int) delta  { return delta{amount: amount, debit: true} }

// reserveLedger holds the pool's balances of both assets. Values are never
// mutated in place; apply returns a new ledger.
type reserveLedger struct {
	a *uint256.Int
	b *uint256.Int
}

func newReserveLedger() reserveLedger {
	return reserveLedger{a: new(uint256.Int), b: new(uint256.Int)}
}

// apply returns the reserves after both deltas, or an error leaving the
// receiver unchanged if either leg cannot be applied.
func (r reserveLedger) apply(da, db delta) (reserveLedger, error) {
	a, err := applyDelta(r.a, da)
	if err != nil {
		return reserveLedger{}, fmt.Errorf("reserve A: %w", err)
	}
	b, err := applyDelta(r.b, db)
	if err != nil {
		return reserveLedger{}, fmt.Errorf("reserve B: %w", err)
	}
	return reserveLedger{a: a, b: b}, nil
}

func applyDelta(reserve *uint256.Int, d delta) (*uint256.Int, error) {
	if d.debit {
		return amm.Sub(reserve, d.amount)
	}
	return amm.Add(reserve, d.amount)
}

func (r reserveLedger) empty() bool {
	return r.a.IsZero() && r.b.IsZero()
}

// checkShape enforces that the reserves and the share supply are either all
// zero or all positive.
func (r reserveLedger) checkShape(supply *uint256.Int) error {
	zeroA, zeroB, zeroS := r.a.IsZero(), r.b.IsZero(), supply.IsZero()
	if zeroA == zeroB && zeroB == zeroS {
		return nil
	}
	return fmt.Errorf("%w: reserves (%s, %s) with share supply %s", amm.ErrInvariantViolation, r.a.Dec(), r.b.Dec(), supply.Dec())
}
