package asset

import (
	"fmt"
	"sort"
	"sync"
)

// AssetPersister stores asset rows durably. Implemented by pkg/storage.
type AssetPersister interface {
	SaveAsset(a *Asset) error
	DeleteAsset(assetID uint64) error
}

// Registry is the in-memory asset catalog, loaded from and persisted to an
// AssetPersister. Reads during matching are lock-cheap; issuance only
// happens between blocks.
type Registry struct {
	mu     sync.RWMutex
	assets map[uint64]*Asset
	byName map[string]uint64
	store  AssetPersister
}

// NewRegistry creates a registry backed by the given persister, pre-loaded
// with any previously issued assets.
func NewRegistry(store AssetPersister, existing []*Asset) *Registry {
	r := &Registry{
		assets: make(map[uint64]*Asset),
		byName: make(map[string]uint64),
		store:  store,
	}
	for _, a := range existing {
		r.assets[a.ID] = a
		r.byName[a.Name] = a.ID
	}
	return r
}

// Asset returns metadata for assetID, or ErrUnknownAsset.
func (r *Registry) Asset(assetID uint64) (*Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("asset %d: %w", assetID, ErrUnknownAsset)
	}
	return a, nil
}

// AssetByName looks an asset up by its unique name.
func (r *Registry) AssetByName(name string) (*Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("asset %q: %w", name, ErrUnknownAsset)
	}
	return r.assets[id], nil
}

// Issue registers a newly issued asset and persists it.
func (r *Registry) Issue(a *Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.assets[a.ID]; exists {
		return fmt.Errorf("asset id %d already issued", a.ID)
	}
	if _, exists := r.byName[a.Name]; exists {
		return fmt.Errorf("asset name %q already issued", a.Name)
	}

	if err := r.store.SaveAsset(a); err != nil {
		return fmt.Errorf("persisting asset %d: %w", a.ID, err)
	}

	r.assets[a.ID] = a
	r.byName[a.Name] = a.ID
	return nil
}

// Deissue removes an asset again; the inverse of Issue, used only when the
// issuing block is orphaned.
func (r *Registry) Deissue(assetID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.assets[assetID]
	if !ok {
		return fmt.Errorf("asset %d: %w", assetID, ErrUnknownAsset)
	}

	if err := r.store.DeleteAsset(assetID); err != nil {
		return fmt.Errorf("deleting asset %d: %w", assetID, err)
	}

	delete(r.byName, a.Name)
	delete(r.assets, assetID)
	return nil
}

// List returns all assets ordered by id.
func (r *Registry) List() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Asset, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of issued assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assets)
}

var _ Catalog = (*Registry)(nil)
