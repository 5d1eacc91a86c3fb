// Package fees routes the protocol slice of swap fees to the treasury
// collaborator. The LP slice never passes through here: it stays in the
// pool reserves, which is the whole of the LP reward bookkeeping. The
// treasury balance record is credited by this core and mutated thereafter
// only by the treasury module itself.
package fees

import (
	"fmt"

	"github.com/TopCodeBeast/subswap/internal/core/state"
	"github.com/TopCodeBeast/subswap/internal/core/state/keys"
	"github.com/TopCodeBeast/subswap/internal/core/swaperr"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

// DefaultProtocolShareBps is the slice of every swap fee routed to the
// treasury when the configuration does not override it: one sixth.
const DefaultProtocolShareBps uint16 = 1667

// Treasury is the external treasury collaborator. Credit is a one-way
// push; the core never reads back or decrements what it credited.
type Treasury interface {
	Credit(amount u128.Uint128) error
}

// Accumulator credits the treasury balance record inside the same sandbox
// as the swap that earned the fee, so the split is atomic with the swap.
type Accumulator struct {
	view state.View
}

// NewAccumulator returns an accumulator writing through the given view.
func NewAccumulator(view state.View) *Accumulator {
	return &Accumulator{view: view}
}

// Credit implements Treasury against the state view.
func (a *Accumulator) Credit(amount u128.Uint128) error {
	if amount.IsZero() {
		return nil
	}
	bal, err := a.Balance()
	if err != nil {
		return err
	}
	next, err := bal.Add(amount)
	if err != nil {
		return fmt.Errorf("treasury credit %s: %w", amount, swaperr.ErrArithmeticOverflow)
	}
	k := keys.Treasury()
	exists, err := a.view.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return a.view.Update(k, next.Bytes())
	}
	return a.view.Insert(k, next.Bytes())
}

// Balance returns the accumulated treasury balance.
func (a *Accumulator) Balance() (u128.Uint128, error) {
	data, err := a.view.Read(keys.Treasury())
	if err != nil {
		return u128.Zero, err
	}
	if data == nil {
		return u128.Zero, nil
	}
	return u128.FromBytes(data)
}
