package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/quillchain/quill/pkg/asset"
	"github.com/quillchain/quill/pkg/ledger"
)

// SaveBalance writes one ledger row. Zero balances are never written; the
// ledger deletes the row instead.
func (s *Store) SaveBalance(addr common.Address, assetID uint64, balance asset.Amount) error {
	row := ledger.BalanceRow{Address: addr, AssetID: assetID, Balance: balance}
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshalling balance row: %w", err)
	}
	if err := s.set(balanceKey(addr, assetID), data); err != nil {
		return fmt.Errorf("saving balance row: %w", err)
	}
	return nil
}

// DeleteBalance removes a ledger row (balance reached zero).
func (s *Store) DeleteBalance(addr common.Address, assetID uint64) error {
	if err := s.delete(balanceKey(addr, assetID)); err != nil {
		return fmt.Errorf("deleting balance row: %w", err)
	}
	return nil
}

// LoadBalances returns every non-zero ledger row.
func (s *Store) LoadBalances() ([]ledger.BalanceRow, error) {
	prefix := []byte(prefixBalance)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("opening balance iterator: %w", err)
	}
	defer iter.Close()

	var rows []ledger.BalanceRow
	for iter.First(); iter.Valid(); iter.Next() {
		var row ledger.BalanceRow
		if err := json.Unmarshal(iter.Value(), &row); err != nil {
			return nil, fmt.Errorf("unmarshalling balance row: %w", err)
		}
		rows = append(rows, row)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scanning balances: %w", err)
	}
	return rows, nil
}

// SaveAccount materializes an account record.
func (s *Store) SaveAccount(addr common.Address) error {
	if err := s.set(accountKey(addr), []byte{1}); err != nil {
		return fmt.Errorf("saving account record: %w", err)
	}
	return nil
}

// LoadAccounts returns every known account address.
func (s *Store) LoadAccounts() ([]common.Address, error) {
	prefix := []byte(prefixAccount)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("opening account iterator: %w", err)
	}
	defer iter.Close()

	var addrs []common.Address
	for iter.First(); iter.Valid(); iter.Next() {
		hex := strings.TrimPrefix(string(iter.Key()), prefixAccount)
		if !common.IsHexAddress(hex) {
			return nil, fmt.Errorf("invalid account key %q", iter.Key())
		}
		addrs = append(addrs, common.HexToAddress(hex))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scanning accounts: %w", err)
	}
	return addrs, nil
}

var _ ledger.Store = (*Store)(nil)
