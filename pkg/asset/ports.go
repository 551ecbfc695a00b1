package asset

import "github.com/ethereum/go-ethereum/common"

// Ledger is the account balance store mutated by order placement and trade
// settlement. A zero balance is equivalent to no row at all.
type Ledger interface {
	// Balance returns the current balance, 0 when no row exists.
	Balance(addr common.Address, assetID uint64) Amount

	// ApplyDelta adds delta (which may be negative) to the balance,
	// materializing the account on first credit and removing the row when
	// the result is zero. Returns ErrNegativeBalance if the result would be
	// negative.
	ApplyDelta(addr common.Address, assetID uint64, delta Amount) error

	// EnsureAccount materializes the account record if absent.
	EnsureAccount(addr common.Address) error
}

// Catalog is read-only asset metadata lookup. Implementations must not
// mutate assets while matching is in progress.
type Catalog interface {
	// Asset returns metadata for assetID, or ErrUnknownAsset.
	Asset(assetID uint64) (*Asset, error)
}

// OrderStore persists orders and answers the order-book query that drives
// matching. CRUD only; no business logic.
type OrderStore interface {
	SaveOrder(o *Order) error
	Order(id OrderID) (*Order, error)
	DeleteOrder(id OrderID) error

	// OpenOrdersCrossing returns open orders with the given have/want assets
	// whose price is no worse than limitPrice from the opposite side's point
	// of view, best price first. Prices only get worse as the slice is
	// walked, which is what lets the matching loop stop early.
	OpenOrdersCrossing(haveAssetID, wantAssetID uint64, limitPrice Amount) ([]*Order, error)
}

// TradeStore persists trades and indexes them by initiating order so a
// reorg can unwind them newest-first.
type TradeStore interface {
	SaveTrade(t *Trade) error
	DeleteTrade(t *Trade) error

	// TradesByInitiator returns all trades initiated by the given order,
	// newest first.
	TradesByInitiator(id OrderID) ([]*Trade, error)
}

// TradeListener observes settled trades, e.g. to feed them to websocket
// subscribers. Reversed trades are not re-announced.
type TradeListener func(t *Trade)
