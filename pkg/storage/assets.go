package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/quillchain/quill/pkg/asset"
)

// SaveAsset persists asset metadata.
func (s *Store) SaveAsset(a *asset.Asset) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshalling asset %d: %w", a.ID, err)
	}
	if err := s.set(assetKey(a.ID), data); err != nil {
		return fmt.Errorf("saving asset %d: %w", a.ID, err)
	}
	return nil
}

// DeleteAsset removes asset metadata (orphaning an issuance).
func (s *Store) DeleteAsset(assetID uint64) error {
	if err := s.delete(assetKey(assetID)); err != nil {
		return fmt.Errorf("deleting asset %d: %w", assetID, err)
	}
	return nil
}

// LoadAssets returns all issued assets, ordered by id.
func (s *Store) LoadAssets() ([]*asset.Asset, error) {
	prefix := []byte(prefixAsset)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("opening asset iterator: %w", err)
	}
	defer iter.Close()

	var assets []*asset.Asset
	for iter.First(); iter.Valid(); iter.Next() {
		var a asset.Asset
		if err := json.Unmarshal(iter.Value(), &a); err != nil {
			return nil, fmt.Errorf("unmarshalling asset: %w", err)
		}
		assets = append(assets, &a)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scanning assets: %w", err)
	}
	return assets, nil
}

var _ asset.AssetPersister = (*Store)(nil)
