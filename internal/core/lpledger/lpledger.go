// Package lpledger maintains LP token balances, the (pool, holder) side of
// liquidity accounting. The pool record owns the matching total supply; the
// pool operations call Mint and Burn in the same sandbox that updates the
// supply, so the conservation invariant sum(balances) == total supply holds
// at every commit point. Transfer moves balance between holders and leaves
// the supply untouched.
package lpledger

import (
	"fmt"

	"github.com/TopCodeBeast/subswap/internal/core/asset"
	"github.com/TopCodeBeast/subswap/internal/core/state"
	"github.com/TopCodeBeast/subswap/internal/core/state/keys"
	"github.com/TopCodeBeast/subswap/internal/core/swaperr"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

// Ledger reads and writes LP balance records through a state view.
type Ledger struct {
	view state.View
}

// New returns a ledger over the given view.
func New(view state.View) *Ledger {
	return &Ledger{view: view}
}

// Balance returns the holder's LP balance in the pool, zero if no record
// exists.
func (l *Ledger) Balance(pool keys.Key, holder asset.AccountID) (u128.Uint128, error) {
	data, err := l.view.Read(keys.LPBalance(pool, holder))
	if err != nil {
		return u128.Zero, err
	}
	if data == nil {
		return u128.Zero, nil
	}
	return u128.FromBytes(data)
}

// Mint credits amount to the holder. The caller must raise the pool's total
// supply by the same amount in the same sandbox.
func (l *Ledger) Mint(pool keys.Key, holder asset.AccountID, amount u128.Uint128) error {
	if amount.IsZero() {
		return nil
	}
	bal, err := l.Balance(pool, holder)
	if err != nil {
		return err
	}
	next, err := bal.Add(amount)
	if err != nil {
		return fmt.Errorf("mint %s to %s: %w", amount, holder, swaperr.ErrArithmeticOverflow)
	}
	return l.write(pool, holder, next)
}

// Burn debits amount from the holder. The balance check precedes the
// subtraction; a short balance fails with ErrInsufficientBalance and no
// record changes. The caller must lower the pool's total supply by the same
// amount in the same sandbox.
func (l *Ledger) Burn(pool keys.Key, holder asset.AccountID, amount u128.Uint128) error {
	if amount.IsZero() {
		return nil
	}
	bal, err := l.Balance(pool, holder)
	if err != nil {
		return err
	}
	if amount.Gt(bal) {
		return fmt.Errorf("burn %s exceeds balance %s: %w", amount, bal, swaperr.ErrInsufficientBalance)
	}
	next, err := bal.Sub(amount)
	if err != nil {
		return fmt.Errorf("burn %s from %s: %w", amount, holder, swaperr.ErrArithmeticOverflow)
	}
	return l.write(pool, holder, next)
}

// Transfer moves amount from one holder to another. Total supply is
// unaffected.
func (l *Ledger) Transfer(pool keys.Key, from, to asset.AccountID, amount u128.Uint128) error {
	if amount.IsZero() || from == to {
		return nil
	}
	if err := l.Burn(pool, from, amount); err != nil {
		return err
	}
	return l.Mint(pool, to, amount)
}

// SumBalances adds up every LP balance record of the pool. Used by the
// invariant checker and tests to verify conservation against the pool's
// recorded supply.
func (l *Ledger) SumBalances(pool keys.Key) (u128.Uint128, error) {
	prefix := keys.LPPrefix(pool)
	sum := u128.Zero
	var walkErr error
	err := l.view.ForEach(func(k keys.Key, data []byte) bool {
		if !k.HasPrefix(prefix) {
			return true
		}
		bal, err := u128.FromBytes(data)
		if err != nil {
			walkErr = err
			return false
		}
		sum, err = sum.Add(bal)
		if err != nil {
			walkErr = err
			return false
		}
		return true
	})
	if err != nil {
		return u128.Zero, err
	}
	if walkErr != nil {
		return u128.Zero, walkErr
	}
	return sum, nil
}

// write stores the balance, erasing the record when it reaches zero.
func (l *Ledger) write(pool keys.Key, holder asset.AccountID, bal u128.Uint128) error {
	k := keys.LPBalance(pool, holder)
	if bal.IsZero() {
		return l.view.Erase(k)
	}
	exists, err := l.view.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return l.view.Update(k, bal.Bytes())
	}
	return l.view.Insert(k, bal.Bytes())
}
