package pool

import (
	"fmt"

	"github.com/TopCodeBeast/subswap/internal/core/swaperr"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

// DepositResult reports what a deposit actually did. Accepted amounts can
// be below the supplied amounts when the pool trims to the reserve ratio.
type DepositResult struct {
	AcceptedA u128.Uint128
	AcceptedB u128.Uint128
	LPMinted  u128.Uint128
}

// WithdrawResult reports the pro-rata amounts paid out for a burn.
type WithdrawResult struct {
	AmountA u128.Uint128
	AmountB u128.Uint128
}

// Deposit adds liquidity. On an empty pool the amounts seed the reserves
// directly and the mint is floor(sqrt(a*b)), the one point where LP supply
// is not proportional. On a funded pool the largest pair not exceeding the
// supplied amounts that matches the reserve ratio is accepted; toleranceBps
// bounds how far below the supplied amounts the trim may go. The mint uses
// the smaller of the two asset-implied proportions, so rounding can only
// dilute the depositor, never the existing holders.
//
// The caller mints LPMinted to the depositor in the same sandbox; the
// supply update here and that balance update commit or fail together.
func (p *Pool) Deposit(amountA, amountB u128.Uint128, toleranceBps uint16) (DepositResult, error) {
	if amountA.IsZero() || amountB.IsZero() {
		return DepositResult{}, fmt.Errorf("zero deposit amount: %w", swaperr.ErrRatioMismatch)
	}

	if p.IsEmpty() {
		product, err := amountA.Mul(amountB)
		if err != nil {
			// sqrt(a*b) <= 2^64-1 always fits, but the product itself can
			// exceed 128 bits; go through the wide path.
			seed, werr := wideSqrt(amountA, amountB)
			if werr != nil {
				return DepositResult{}, werr
			}
			return p.seed(amountA, amountB, seed)
		}
		return p.seed(amountA, amountB, product.Sqrt())
	}

	// Trim to the current ratio: largest (a', b') <= (a, b) with
	// b' = floor(a' * rB / rA).
	acceptedA := amountA
	implied, err := u128.MulDiv(amountB, p.ReserveA, p.ReserveB)
	if err != nil {
		return DepositResult{}, fmt.Errorf("ratio: %w", swaperr.ErrArithmeticOverflow)
	}
	if implied.Lt(acceptedA) {
		acceptedA = implied
	}
	acceptedB, err := u128.MulDiv(acceptedA, p.ReserveB, p.ReserveA)
	if err != nil {
		return DepositResult{}, fmt.Errorf("ratio: %w", swaperr.ErrArithmeticOverflow)
	}
	if acceptedB.Gt(amountB) {
		acceptedB = amountB
	}
	if acceptedA.IsZero() || acceptedB.IsZero() {
		return DepositResult{}, fmt.Errorf("amounts do not fit ratio %s/%s: %w",
			p.ReserveA, p.ReserveB, swaperr.ErrRatioMismatch)
	}

	// The trimmed pair must stay within the caller's tolerance of what was
	// offered.
	if err := withinTolerance(acceptedA, amountA, toleranceBps); err != nil {
		return DepositResult{}, err
	}
	if err := withinTolerance(acceptedB, amountB, toleranceBps); err != nil {
		return DepositResult{}, err
	}

	mintA, err := u128.MulDiv(p.LPSupply, acceptedA, p.ReserveA)
	if err != nil {
		return DepositResult{}, fmt.Errorf("mint share: %w", swaperr.ErrArithmeticOverflow)
	}
	mintB, err := u128.MulDiv(p.LPSupply, acceptedB, p.ReserveB)
	if err != nil {
		return DepositResult{}, fmt.Errorf("mint share: %w", swaperr.ErrArithmeticOverflow)
	}
	minted := mintA
	if mintB.Lt(minted) {
		minted = mintB
	}
	if minted.IsZero() {
		return DepositResult{}, fmt.Errorf("deposit too small to mint a share: %w",
			swaperr.ErrInsufficientLiquidity)
	}

	newRA, err := p.ReserveA.Add(acceptedA)
	if err != nil {
		return DepositResult{}, fmt.Errorf("reserve a: %w", swaperr.ErrArithmeticOverflow)
	}
	newRB, err := p.ReserveB.Add(acceptedB)
	if err != nil {
		return DepositResult{}, fmt.Errorf("reserve b: %w", swaperr.ErrArithmeticOverflow)
	}
	newSupply, err := p.LPSupply.Add(minted)
	if err != nil {
		return DepositResult{}, fmt.Errorf("lp supply: %w", swaperr.ErrArithmeticOverflow)
	}

	p.ReserveA, p.ReserveB, p.LPSupply = newRA, newRB, newSupply
	return DepositResult{AcceptedA: acceptedA, AcceptedB: acceptedB, LPMinted: minted}, nil
}

func (p *Pool) seed(amountA, amountB, minted u128.Uint128) (DepositResult, error) {
	if minted.IsZero() {
		return DepositResult{}, fmt.Errorf("seed amounts too small: %w", swaperr.ErrInsufficientLiquidity)
	}
	p.ReserveA, p.ReserveB, p.LPSupply = amountA, amountB, minted
	return DepositResult{AcceptedA: amountA, AcceptedB: amountB, LPMinted: minted}, nil
}

// wideSqrt computes floor(sqrt(a*b)) through a 256-bit product.
func wideSqrt(a, b u128.Uint128) (u128.Uint128, error) {
	p := a.Big()
	p.Mul(p, b.Big())
	return u128.FromBig(p.Sqrt(p))
}

// withinTolerance fails with RatioMismatch when accepted fell more than
// toleranceBps below offered.
func withinTolerance(accepted, offered u128.Uint128, toleranceBps uint16) error {
	if toleranceBps >= FeeDenominator {
		return nil
	}
	floor, err := u128.MulDiv(offered, u128.New(uint64(FeeDenominator-toleranceBps)), u128.New(FeeDenominator))
	if err != nil {
		return fmt.Errorf("tolerance: %w", swaperr.ErrArithmeticOverflow)
	}
	if accepted.Lt(floor) {
		return fmt.Errorf("accepted %s below tolerance floor %s of offered %s: %w",
			accepted, floor, offered, swaperr.ErrRatioMismatch)
	}
	return nil
}

// Withdraw burns lpAmount of supply and pays out pro-rata reserves, both
// sides floored so the pool keeps any remainder. The caller must have
// burned lpAmount from the holder's balance in the same sandbox; the
// InsufficientBalance check lives there, before this runs.
func (p *Pool) Withdraw(lpAmount u128.Uint128) (WithdrawResult, error) {
	if lpAmount.IsZero() {
		return WithdrawResult{}, fmt.Errorf("zero burn: %w", swaperr.ErrInsufficientBalance)
	}
	if lpAmount.Gt(p.LPSupply) {
		return WithdrawResult{}, fmt.Errorf("burn %s exceeds supply %s: %w",
			lpAmount, p.LPSupply, swaperr.ErrInsufficientBalance)
	}

	outA, err := u128.MulDiv(p.ReserveA, lpAmount, p.LPSupply)
	if err != nil {
		return WithdrawResult{}, fmt.Errorf("payout a: %w", swaperr.ErrArithmeticOverflow)
	}
	outB, err := u128.MulDiv(p.ReserveB, lpAmount, p.LPSupply)
	if err != nil {
		return WithdrawResult{}, fmt.Errorf("payout b: %w", swaperr.ErrArithmeticOverflow)
	}

	newSupply, err := p.LPSupply.Sub(lpAmount)
	if err != nil {
		return WithdrawResult{}, fmt.Errorf("lp supply: %w", swaperr.ErrArithmeticOverflow)
	}
	newRA, err := p.ReserveA.Sub(outA)
	if err != nil {
		return WithdrawResult{}, fmt.Errorf("reserve a: %w", swaperr.ErrArithmeticOverflow)
	}
	newRB, err := p.ReserveB.Sub(outB)
	if err != nil {
		return WithdrawResult{}, fmt.Errorf("reserve b: %w", swaperr.ErrArithmeticOverflow)
	}

	if newSupply.IsZero() {
		// Full drain: any floor remainder has no shares left to claim it;
		// pay it to the last holder so the empty-pool invariant
		// (supply == 0 ⇔ reserves == 0) holds and the pair can re-seed.
		outA, err = outA.Add(newRA)
		if err != nil {
			return WithdrawResult{}, fmt.Errorf("payout a: %w", swaperr.ErrArithmeticOverflow)
		}
		outB, err = outB.Add(newRB)
		if err != nil {
			return WithdrawResult{}, fmt.Errorf("payout b: %w", swaperr.ErrArithmeticOverflow)
		}
		newRA, newRB = u128.Zero, u128.Zero
	}

	p.ReserveA, p.ReserveB, p.LPSupply = newRA, newRB, newSupply
	return WithdrawResult{AmountA: outA, AmountB: outB}, nil
}
