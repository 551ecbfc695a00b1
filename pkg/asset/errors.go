package asset

import "errors"

// Domain errors. None of these should be reachable with inputs that passed
// upstream transaction validation; hitting one aborts the whole in-progress
// operation so the caller's outer batch can be discarded.
var (
	// ErrInsufficientBalance - an order commitment exceeds the creator's
	// available have-asset balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNegativeBalance - a ledger delta would take a balance below zero.
	// Invariant breach, never clamped.
	ErrNegativeBalance = errors.New("balance would go negative")

	// ErrFractionalAmount - an indivisible asset would receive a quantity
	// with a fractional part. Silently rounding would leak or destroy value.
	ErrFractionalAmount = errors.New("fractional amount of indivisible asset")

	// ErrUnknownAsset - referenced asset id is not in the catalog.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrUnknownOrder - referenced order id is not in the order store.
	ErrUnknownOrder = errors.New("unknown order")
)
