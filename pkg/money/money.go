// Package money provides the monetary primitives for the balance ledger.
//
// Amounts are unsigned integers in the smallest currency unit. Arithmetic
// rejects overflow instead of wrapping; debits reject insufficiency. Value
// models detached funds that have left an aggregate (the result of an
// expense payment) and supports split/merge without creating or destroying
// units.
package money

import (
	"math"

	"medledger/pkg/platform/sentinel"
)

// Amount is a balance or payment size in minor currency units.
type Amount uint64

// Add returns a+b, or sentinel.ErrInvalidState when the sum would overflow.
// Balances must never wrap.
func (a Amount) Add(b Amount) (Amount, error) {
	if a > math.MaxUint64-b {
		return 0, sentinel.ErrInvalidState
	}
	return a + b, nil
}

// Sub returns a-b, or sentinel.ErrInsufficientFunds when b exceeds a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, sentinel.ErrInsufficientFunds
	}
	return a - b, nil
}

// Value is a detached pool of funds. The zero Value is empty and ready to
// use. Funds move between Values and aggregate balances only through Take
// and Merge, so the total in flight is conserved.
type Value struct {
	amount Amount
}

// Zero returns an empty Value.
func Zero() *Value { return &Value{} }

// NewValue mints a Value holding amount. Only boundary code (deposits
// entering the system) should mint; internal movements use Take/Merge.
func NewValue(amount Amount) *Value { return &Value{amount: amount} }

// Amount reports the funds currently held.
func (v *Value) Amount() Amount { return v.amount }

// IsZero reports whether the value holds no funds.
func (v *Value) IsZero() bool { return v.amount == 0 }

// Take splits amount out of v into a new detached Value. Refuses with
// sentinel.ErrInsufficientFunds when v holds less than amount; v is
// unchanged on failure.
func (v *Value) Take(amount Amount) (*Value, error) {
	rest, err := v.amount.Sub(amount)
	if err != nil {
		return nil, err
	}
	v.amount = rest
	return &Value{amount: amount}, nil
}

// Merge moves all funds from other into v. Other is emptied; on overflow
// neither side changes.
func (v *Value) Merge(other *Value) error {
	sum, err := v.amount.Add(other.amount)
	if err != nil {
		return err
	}
	v.amount = sum
	other.amount = 0
	return nil
}
