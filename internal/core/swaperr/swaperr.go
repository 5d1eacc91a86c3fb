// Package swaperr defines the failure taxonomy of the swap core. Every
// entry point returns one of these sentinels (usually wrapped with
// context), never a generic failure, so callers can react to the specific
// kind: re-quote on slippage, re-fund on insufficient balance, and so on.
package swaperr

import "errors"

var (
	// ErrUnknownAsset: a referenced asset is absent from the registry.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrPoolNotFound: no pool exists for the requested pair.
	ErrPoolNotFound = errors.New("pool not found")

	// ErrRatioMismatch: no acceptable deposit pair exists within the
	// caller's tolerance of the current reserve ratio.
	ErrRatioMismatch = errors.New("deposit ratio mismatch")

	// ErrInsufficientBalance: an LP burn or transfer exceeds the holder's
	// balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientLiquidity: reserves are too small to quote or fill the
	// request.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrSlippageExceeded: the realized price is worse than the caller's
	// declared tolerance.
	ErrSlippageExceeded = errors.New("slippage exceeded")

	// ErrExcessiveInput: an exact-output swap implies more input than the
	// caller's maximum.
	ErrExcessiveInput = errors.New("excessive input")

	// ErrExpired: the request deadline passed before execution.
	ErrExpired = errors.New("request expired")

	// ErrArithmeticOverflow: checked arithmetic overflowed or divided by
	// zero. Never silently wrapped.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrUnauthorized: a privileged call without the governance capability.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidRequest: a request rejected in stateless validation before
	// touching any state (malformed amounts, out-of-range parameters,
	// identical pair assets).
	ErrInvalidRequest = errors.New("invalid request")
)

// taxonomy lists every sentinel with its wire name, in a fixed order.
var taxonomy = []struct {
	err  error
	name string
}{
	{ErrUnknownAsset, "UnknownAsset"},
	{ErrPoolNotFound, "PoolNotFound"},
	{ErrRatioMismatch, "RatioMismatch"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrInsufficientLiquidity, "InsufficientLiquidity"},
	{ErrSlippageExceeded, "SlippageExceeded"},
	{ErrExcessiveInput, "ExcessiveInput"},
	{ErrExpired, "Expired"},
	{ErrArithmeticOverflow, "ArithmeticOverflow"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrInvalidRequest, "InvalidRequest"},
}

// Name returns the wire name of the sentinel err wraps, or "Internal" when
// err is outside the taxonomy.
func Name(err error) string {
	for _, t := range taxonomy {
		if errors.Is(err, t.err) {
			return t.name
		}
	}
	return "Internal"
}

// IsCoreError reports whether err belongs to the taxonomy.
func IsCoreError(err error) bool {
	for _, t := range taxonomy {
		if errors.Is(err, t.err) {
			return true
		}
	}
	return false
}
