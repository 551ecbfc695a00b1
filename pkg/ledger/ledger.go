package ledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/quillchain/quill/pkg/asset"
)

// BalanceRow is one (address, asset) balance. Rows with a zero balance are
// never stored; absence means zero.
type BalanceRow struct {
	Address common.Address `json:"address"`
	AssetID uint64         `json:"assetId"`
	Balance asset.Amount   `json:"balance"`
}

// Store is the durable side of the ledger. Implemented by pkg/storage.
type Store interface {
	LoadBalances() ([]BalanceRow, error)
	LoadAccounts() ([]common.Address, error)
	SaveBalance(addr common.Address, assetID uint64, balance asset.Amount) error
	DeleteBalance(addr common.Address, assetID uint64) error
	SaveAccount(addr common.Address) error
}

type balanceKey struct {
	addr    common.Address
	assetID uint64
}

// Ledger keeps every account's per-asset balance, in-memory cache over
// durable rows. Deltas are applied by the single block-processing thread;
// the mutex only guards concurrent API reads.
type Ledger struct {
	mu       sync.RWMutex
	balances map[balanceKey]asset.Amount
	accounts map[common.Address]struct{}
	store    Store
	log      *zap.SugaredLogger
}

// New loads the full balance set from the store.
func New(store Store, log *zap.SugaredLogger) (*Ledger, error) {
	rows, err := store.LoadBalances()
	if err != nil {
		return nil, fmt.Errorf("loading balances: %w", err)
	}
	addrs, err := store.LoadAccounts()
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}

	l := &Ledger{
		balances: make(map[balanceKey]asset.Amount, len(rows)),
		accounts: make(map[common.Address]struct{}, len(addrs)),
		store:    store,
		log:      log,
	}
	for _, row := range rows {
		l.balances[balanceKey{row.Address, row.AssetID}] = row.Balance
	}
	for _, addr := range addrs {
		l.accounts[addr] = struct{}{}
	}
	return l, nil
}

// Balance returns the current balance, 0 when no row exists.
func (l *Ledger) Balance(addr common.Address, assetID uint64) asset.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[balanceKey{addr, assetID}]
}

// ApplyDelta adds delta to the balance. The first credit materializes the
// account record; a result of exactly zero removes the row. A negative
// result is an invariant breach: logged, surfaced, never clamped.
func (l *Ledger) ApplyDelta(addr common.Address, assetID uint64, delta asset.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := balanceKey{addr, assetID}
	oldBalance := l.balances[key]
	newBalance := oldBalance + delta

	if newBalance < 0 {
		l.log.Errorw("balance delta would go negative",
			"address", addr, "asset", assetID,
			"balance", asset.Pretty(oldBalance), "delta", asset.Pretty(delta))
		return fmt.Errorf("%s asset %d balance %s + delta %s: %w",
			addr, assetID, asset.Pretty(oldBalance), asset.Pretty(delta), asset.ErrNegativeBalance)
	}

	if newBalance == 0 {
		if err := l.store.DeleteBalance(addr, assetID); err != nil {
			return fmt.Errorf("deleting zero balance row: %w", err)
		}
		delete(l.balances, key)
		return nil
	}

	if err := l.ensureAccountLocked(addr); err != nil {
		return err
	}
	if err := l.store.SaveBalance(addr, assetID, newBalance); err != nil {
		return fmt.Errorf("saving balance row: %w", err)
	}
	l.balances[key] = newBalance

	l.log.Debugw("balance changed",
		"address", addr, "asset", assetID,
		"delta", asset.Pretty(delta), "balance", asset.Pretty(newBalance))
	return nil
}

// EnsureAccount materializes the account record if absent.
func (l *Ledger) EnsureAccount(addr common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensureAccountLocked(addr)
}

func (l *Ledger) ensureAccountLocked(addr common.Address) error {
	if _, ok := l.accounts[addr]; ok {
		return nil
	}
	if err := l.store.SaveAccount(addr); err != nil {
		return fmt.Errorf("saving account record: %w", err)
	}
	l.accounts[addr] = struct{}{}
	return nil
}

// HasAccount reports whether the account record exists.
func (l *Ledger) HasAccount(addr common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.accounts[addr]
	return ok
}

// Balances returns all non-zero balances of one address, ordered by asset id.
func (l *Ledger) Balances(addr common.Address) []BalanceRow {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var rows []BalanceRow
	for key, balance := range l.balances {
		if key.addr == addr {
			rows = append(rows, BalanceRow{Address: addr, AssetID: key.assetID, Balance: balance})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AssetID < rows[j].AssetID })
	return rows
}

var _ asset.Ledger = (*Ledger)(nil)
