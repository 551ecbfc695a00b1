package ledger

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/quillchain/quill/pkg/asset"
)

var (
	addrA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	addrB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

type memStore struct {
	rows     map[balanceKey]asset.Amount
	accounts map[common.Address]bool
}

func newMemStore() *memStore {
	return &memStore{
		rows:     make(map[balanceKey]asset.Amount),
		accounts: make(map[common.Address]bool),
	}
}

func (m *memStore) LoadBalances() ([]BalanceRow, error) {
	var rows []BalanceRow
	for key, balance := range m.rows {
		rows = append(rows, BalanceRow{Address: key.addr, AssetID: key.assetID, Balance: balance})
	}
	return rows, nil
}

func (m *memStore) LoadAccounts() ([]common.Address, error) {
	var addrs []common.Address
	for addr := range m.accounts {
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

func (m *memStore) SaveBalance(addr common.Address, assetID uint64, balance asset.Amount) error {
	m.rows[balanceKey{addr, assetID}] = balance
	return nil
}

func (m *memStore) DeleteBalance(addr common.Address, assetID uint64) error {
	delete(m.rows, balanceKey{addr, assetID})
	return nil
}

func (m *memStore) SaveAccount(addr common.Address) error {
	m.accounts[addr] = true
	return nil
}

func newTestLedger(t *testing.T) (*Ledger, *memStore) {
	t.Helper()
	store := newMemStore()
	l, err := New(store, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l, store
}

func TestApplyDelta(t *testing.T) {
	l, _ := newTestLedger(t)

	if err := l.ApplyDelta(addrA, 0, 100*asset.Multiplier); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if got := l.Balance(addrA, 0); got != 100*asset.Multiplier {
		t.Errorf("balance = %s, want 100", asset.Pretty(got))
	}

	if err := l.ApplyDelta(addrA, 0, -30*asset.Multiplier); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if got := l.Balance(addrA, 0); got != 70*asset.Multiplier {
		t.Errorf("balance = %s, want 70", asset.Pretty(got))
	}
}

func TestApplyDeltaRejectsNegativeResult(t *testing.T) {
	l, _ := newTestLedger(t)

	if err := l.ApplyDelta(addrA, 0, 10); err != nil {
		t.Fatalf("credit: %v", err)
	}
	err := l.ApplyDelta(addrA, 0, -11)
	if !errors.Is(err, asset.ErrNegativeBalance) {
		t.Fatalf("overdraft = %v, want ErrNegativeBalance", err)
	}
	if got := l.Balance(addrA, 0); got != 10 {
		t.Errorf("balance after rejected delta = %d, want 10 unchanged", got)
	}
}

func TestZeroBalanceRemovesRow(t *testing.T) {
	l, store := newTestLedger(t)

	if err := l.ApplyDelta(addrA, 0, 42); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.ApplyDelta(addrA, 0, -42); err != nil {
		t.Fatalf("debit to zero: %v", err)
	}

	if got := l.Balance(addrA, 0); got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
	if _, ok := store.rows[balanceKey{addrA, 0}]; ok {
		t.Error("zero balance row still persisted")
	}
	if rows := l.Balances(addrA); len(rows) != 0 {
		t.Errorf("Balances returned %d rows, want none", len(rows))
	}
}

func TestFirstCreditMaterializesAccount(t *testing.T) {
	l, store := newTestLedger(t)

	if l.HasAccount(addrA) {
		t.Fatal("account exists before any credit")
	}
	if err := l.ApplyDelta(addrA, 3, 1); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if !l.HasAccount(addrA) || !store.accounts[addrA] {
		t.Error("first credit did not materialize the account record")
	}
}

func TestBalancesSortedByAsset(t *testing.T) {
	l, _ := newTestLedger(t)

	for _, assetID := range []uint64{7, 0, 3} {
		if err := l.ApplyDelta(addrA, assetID, 5); err != nil {
			t.Fatalf("credit asset %d: %v", assetID, err)
		}
	}
	if err := l.ApplyDelta(addrB, 1, 9); err != nil {
		t.Fatalf("credit other address: %v", err)
	}

	rows := l.Balances(addrA)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	for i, want := range []uint64{0, 3, 7} {
		if rows[i].AssetID != want {
			t.Errorf("rows[%d].AssetID = %d, want %d", i, rows[i].AssetID, want)
		}
	}
}

func TestReloadFromStore(t *testing.T) {
	l, store := newTestLedger(t)

	if err := l.ApplyDelta(addrA, 0, 123); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.ApplyDelta(addrB, 5, 456); err != nil {
		t.Fatalf("credit: %v", err)
	}

	reloaded, err := New(store, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New from populated store: %v", err)
	}
	if got := reloaded.Balance(addrA, 0); got != 123 {
		t.Errorf("reloaded balance = %d, want 123", got)
	}
	if got := reloaded.Balance(addrB, 5); got != 456 {
		t.Errorf("reloaded balance = %d, want 456", got)
	}
	if !reloaded.HasAccount(addrA) || !reloaded.HasAccount(addrB) {
		t.Error("account records lost on reload")
	}
}
