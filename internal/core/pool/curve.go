package pool

import (
	"fmt"
	"math/big"

	"github.com/TopCodeBeast/subswap/internal/core/swaperr"
	"github.com/TopCodeBeast/subswap/internal/core/u128"
)

// maxWeightSum caps weighted-pool weights; keeps the big.Int exponents in
// the root solver small.
const maxWeightSum = 64

// newtonIterations bounds every iterative solve. The solvers converge in a
// handful of steps; the bound exists so a replica can never loop without
// limit.
const newtonIterations = 255

// Every formula below rounds so the pool keeps the remainder: output-side
// reserve targets round up (smaller payout), input-side reserve targets
// round up as well (larger charge). The invariant value of a pool is
// non-decreasing across any swap.

// amountOut solves the curve for an exact net input: given dxNet added to
// rIn, how much of rOut the pool pays. Fees are already off dxNet.
func (p *Pool) amountOut(rIn, rOut u128.Uint128, wIn, wOut uint32, dxNet u128.Uint128) (u128.Uint128, error) {
	newRIn, err := rIn.Add(dxNet)
	if err != nil {
		return u128.Zero, fmt.Errorf("input reserve: %w", swaperr.ErrArithmeticOverflow)
	}

	var newROut u128.Uint128
	switch p.Curve {
	case ConstantProduct:
		// newROut = ceil(rIn*rOut / (rIn+dxNet))
		newROut, err = u128.MulDivCeil(rIn, rOut, newRIn)
		if err != nil {
			return u128.Zero, fmt.Errorf("constant product: %w", swaperr.ErrArithmeticOverflow)
		}
	case StableSwap:
		d := stableD(rIn.Big(), rOut.Big(), p.Params.Amplification)
		y := stableY(newRIn.Big(), d, p.Params.Amplification)
		// One unit of slack absorbs solver convergence error, in the
		// pool's favor.
		y.Add(y, big.NewInt(1))
		newROut, err = u128.FromBig(y)
		if err != nil {
			return u128.Zero, fmt.Errorf("stable solve: %w", swaperr.ErrArithmeticOverflow)
		}
	case Weighted:
		newROut, err = weightedTarget(rIn, rOut, newRIn, wIn, wOut)
		if err != nil {
			return u128.Zero, err
		}
	default:
		return u128.Zero, fmt.Errorf("curve %d: %w", p.Curve, swaperr.ErrArithmeticOverflow)
	}

	if newROut.Gte(rOut) {
		// The solve moved nothing; trade too small for the curve.
		return u128.Zero, fmt.Errorf("%s: %w", p.Pair, swaperr.ErrInsufficientLiquidity)
	}
	dy, err := rOut.Sub(newROut)
	if err != nil {
		return u128.Zero, fmt.Errorf("output: %w", swaperr.ErrArithmeticOverflow)
	}
	return dy, nil
}

// amountIn solves the curve for an exact output: given dy removed from
// rOut, the net input the pool must be paid. The result excludes fees.
func (p *Pool) amountIn(rIn, rOut u128.Uint128, wIn, wOut uint32, dy u128.Uint128) (u128.Uint128, error) {
	if dy.Gte(rOut) {
		return u128.Zero, fmt.Errorf("output %s >= reserve %s: %w", dy, rOut, swaperr.ErrInsufficientLiquidity)
	}
	newROut, err := rOut.Sub(dy)
	if err != nil {
		return u128.Zero, fmt.Errorf("output reserve: %w", swaperr.ErrArithmeticOverflow)
	}

	var newRIn u128.Uint128
	switch p.Curve {
	case ConstantProduct:
		// newRIn = ceil(rIn*rOut / (rOut-dy))
		newRIn, err = u128.MulDivCeil(rIn, rOut, newROut)
		if err != nil {
			return u128.Zero, fmt.Errorf("constant product: %w", swaperr.ErrArithmeticOverflow)
		}
	case StableSwap:
		d := stableD(rIn.Big(), rOut.Big(), p.Params.Amplification)
		x := stableY(newROut.Big(), d, p.Params.Amplification)
		x.Add(x, big.NewInt(1))
		newRIn, err = u128.FromBig(x)
		if err != nil {
			return u128.Zero, fmt.Errorf("stable solve: %w", swaperr.ErrArithmeticOverflow)
		}
	case Weighted:
		newRIn, err = weightedTarget(rOut, rIn, newROut, wOut, wIn)
		if err != nil {
			return u128.Zero, err
		}
	default:
		return u128.Zero, fmt.Errorf("curve %d: %w", p.Curve, swaperr.ErrArithmeticOverflow)
	}

	if newRIn.Lte(rIn) {
		return u128.Zero, fmt.Errorf("%s: %w", p.Pair, swaperr.ErrInsufficientLiquidity)
	}
	dxNet, err := newRIn.Sub(rIn)
	if err != nil {
		return u128.Zero, fmt.Errorf("input: %w", swaperr.ErrArithmeticOverflow)
	}
	return dxNet, nil
}

// InvariantValue returns the curve's invariant over the current reserves:
// x*y for constant product, D for stable, x^wA * y^wB for weighted. Swaps
// never decrease it; tests and the post-apply checker compare before and
// after.
func (p *Pool) InvariantValue() *big.Int {
	x, y := p.ReserveA.Big(), p.ReserveB.Big()
	switch p.Curve {
	case StableSwap:
		return stableD(x, y, p.Params.Amplification)
	case Weighted:
		xa := new(big.Int).Exp(x, big.NewInt(int64(p.Params.WeightA)), nil)
		yb := new(big.Int).Exp(y, big.NewInt(int64(p.Params.WeightB)), nil)
		return xa.Mul(xa, yb)
	default:
		return new(big.Int).Mul(x, y)
	}
}

// weightedTarget solves x^wIn * y^wOut = const for the counter-reserve
// after one side moves to newRIn, rounding up so the pool keeps the
// remainder: newROut = ceil((rIn^wIn * rOut^wOut / newRIn^wIn)^(1/wOut)).
func weightedTarget(rIn, rOut, newRIn u128.Uint128, wIn, wOut uint32) (u128.Uint128, error) {
	if wIn == 0 || wOut == 0 {
		return u128.Zero, fmt.Errorf("zero weight: %w", swaperr.ErrArithmeticOverflow)
	}
	num := new(big.Int).Exp(rIn.Big(), big.NewInt(int64(wIn)), nil)
	num.Mul(num, new(big.Int).Exp(rOut.Big(), big.NewInt(int64(wOut)), nil))
	den := new(big.Int).Exp(newRIn.Big(), big.NewInt(int64(wIn)), nil)
	if den.Sign() == 0 {
		return u128.Zero, fmt.Errorf("weighted solve: %w", swaperr.ErrArithmeticOverflow)
	}
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	root := nthRootCeil(q, int64(wOut))
	out, err := u128.FromBig(root)
	if err != nil {
		return u128.Zero, fmt.Errorf("weighted solve: %w", swaperr.ErrArithmeticOverflow)
	}
	return out, nil
}

// nthRootCeil returns ceil(v^(1/n)) by binary search over the bit length.
func nthRootCeil(v *big.Int, n int64) *big.Int {
	if v.Sign() <= 0 {
		return big.NewInt(0)
	}
	if n == 1 {
		return new(big.Int).Set(v)
	}
	bigN := big.NewInt(n)
	// hi = 2^ceil(bitlen/n) is always >= the root.
	hi := new(big.Int).Lsh(big.NewInt(1), uint(v.BitLen())/uint(n)+1)
	lo := big.NewInt(0)
	// Find the largest r with r^n <= v.
	for lo.Cmp(hi) < 0 {
		mid := new(big.Int).Add(lo, hi)
		mid.Add(mid, big.NewInt(1))
		mid.Rsh(mid, 1)
		if new(big.Int).Exp(mid, bigN, nil).Cmp(v) <= 0 {
			lo = mid
		} else {
			hi = new(big.Int).Sub(mid, big.NewInt(1))
		}
	}
	if new(big.Int).Exp(lo, bigN, nil).Cmp(v) < 0 {
		lo.Add(lo, big.NewInt(1))
	}
	return lo
}

// stableD computes the stable-swap invariant D for two reserves by Newton
// iteration. Ann = A * n^n with n = 2.
func stableD(x, y *big.Int, amplification uint64) *big.Int {
	s := new(big.Int).Add(x, y)
	if s.Sign() == 0 {
		return big.NewInt(0)
	}
	if x.Sign() == 0 || y.Sign() == 0 {
		// Degenerate: invariant collapses to the sum.
		return s
	}
	ann := new(big.Int).SetUint64(amplification * 4)
	d := new(big.Int).Set(s)
	one := big.NewInt(1)
	for i := 0; i < newtonIterations; i++ {
		// dP = d^3 / (4*x*y)
		dP := new(big.Int).Mul(d, d)
		dP.Mul(dP, d)
		den := new(big.Int).Mul(x, y)
		den.Mul(den, big.NewInt(4))
		dP.Quo(dP, den)

		prev := new(big.Int).Set(d)
		// d = (ann*s + 2*dP) * d / ((ann-1)*d + 3*dP)
		num := new(big.Int).Mul(ann, s)
		num.Add(num, new(big.Int).Mul(dP, big.NewInt(2)))
		num.Mul(num, d)
		den = new(big.Int).Sub(ann, one)
		den.Mul(den, d)
		den.Add(den, new(big.Int).Mul(dP, big.NewInt(3)))
		d.Quo(num, den)

		diff := new(big.Int).Sub(d, prev)
		if diff.CmpAbs(one) <= 0 {
			break
		}
	}
	return d
}

// stableY solves the stable-swap invariant for the counter-reserve given
// one reserve fixed at x and invariant d.
func stableY(x, d *big.Int, amplification uint64) *big.Int {
	if x.Sign() == 0 || d.Sign() == 0 {
		return new(big.Int).Set(d)
	}
	ann := new(big.Int).SetUint64(amplification * 4)
	// c = d^3 / (4 * x * ann)
	c := new(big.Int).Mul(d, d)
	c.Mul(c, d)
	den := new(big.Int).Mul(x, big.NewInt(4))
	den.Mul(den, ann)
	c.Quo(c, den)
	// b = x + d/ann
	b := new(big.Int).Quo(d, ann)
	b.Add(b, x)

	y := new(big.Int).Set(d)
	one := big.NewInt(1)
	for i := 0; i < newtonIterations; i++ {
		prev := new(big.Int).Set(y)
		// y = (y^2 + c) / (2y + b - d)
		num := new(big.Int).Mul(y, y)
		num.Add(num, c)
		den := new(big.Int).Lsh(y, 1)
		den.Add(den, b)
		den.Sub(den, d)
		if den.Sign() <= 0 {
			break
		}
		y.Quo(num, den)
		diff := new(big.Int).Sub(y, prev)
		if diff.CmpAbs(one) <= 0 {
			break
		}
	}
	return y
}
