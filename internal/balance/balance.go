// Package balance holds the polarity rules that turn debits and credits into
// running balances.
package balance

import (
	"errors"
	"fmt"
	"math"

	"github.com/cleared-dev/debs/internal/model"
)

// ErrInvalidAccountType is returned for a type outside the closed set.
var ErrInvalidAccountType = errors.New("invalid account type")

// ErrOverflow is returned when a balance or derived amount does not fit in
// int64 minor units.
var ErrOverflow = errors.New("amount out of range")

// Apply returns the balance after posting debit and credit to an account of
// type t whose balance was old.
func Apply(t model.AccountType, old, debit, credit int64) (int64, error) {
	var delta int64
	var ok bool
	switch t.Polarity() {
	case model.CreditNormal:
		delta, ok = sub(credit, debit)
	case model.DebitNormal:
		delta, ok = sub(debit, credit)
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAccountType, t)
	}
	if !ok {
		return 0, fmt.Errorf("%w: debit %d, credit %d", ErrOverflow, debit, credit)
	}
	b, ok := add(old, delta)
	if !ok {
		return 0, fmt.Errorf("%w: %d%+d", ErrOverflow, old, delta)
	}
	return b, nil
}

// DeriveFromTarget returns the single leg that moves old to target. Both
// amounts are zero when target == old.
func DeriveFromTarget(t model.AccountType, old, target int64) (debit, credit int64, err error) {
	if !t.Valid() {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidAccountType, t)
	}
	delta, ok := sub(target, old)
	if !ok || delta == math.MinInt64 {
		return 0, 0, fmt.Errorf("%w: %d to %d", ErrOverflow, old, target)
	}
	switch t.Polarity() {
	case model.CreditNormal:
		if delta > 0 {
			return 0, delta, nil
		}
		return -delta, 0, nil
	case model.DebitNormal:
		if delta > 0 {
			return delta, 0, nil
		}
		return 0, -delta, nil
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidAccountType, t)
	}
}

// Contribution is the signed share of a balance in the accounting equation:
// credit-normal balances count positive, debit-normal negative. The
// contributions of all accounts sum to zero in a consistent ledger.
func Contribution(t model.AccountType, b int64) int64 {
	switch t.Polarity() {
	case model.CreditNormal:
		return b
	case model.DebitNormal:
		return -b
	default:
		return 0
	}
}

func add(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

func sub(a, b int64) (int64, bool) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, false
	}
	return a - b, true
}
