package asset

import "github.com/ethereum/go-ethereum/common"

// Asset is on-chain fungible asset metadata. Immutable during matching;
// assets are only issued or de-issued by block processing.
type Asset struct {
	ID          uint64         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Owner       common.Address `json:"owner"`

	// Divisible assets trade in 10^-8 steps; indivisible ones only in
	// whole units (multiples of Multiplier).
	Divisible bool `json:"divisible"`

	// Unspendable assets can only be moved by their owner.
	Unspendable bool `json:"unspendable,omitempty"`
}
