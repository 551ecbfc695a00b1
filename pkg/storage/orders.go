package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/quillchain/quill/pkg/asset"
)

// SaveOrder persists an order row and keeps the price-sorted book index in
// step: open orders own one index row, closed or exhausted orders none.
func (s *Store) SaveOrder(o *asset.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshalling order %s: %w", o.ID, err)
	}
	if err := s.set(orderKey(o.ID), data); err != nil {
		return fmt.Errorf("saving order %s: %w", o.ID, err)
	}

	ixKey := bookKey(o.HaveAssetID, o.WantAssetID, o.Price, o.ID)
	if !o.Closed && o.AmountLeft() > 0 {
		return s.set(ixKey, o.ID.Bytes())
	}
	return s.delete(ixKey)
}

// Order loads an order by id, or asset.ErrUnknownOrder.
func (s *Store) Order(id asset.OrderID) (*asset.Order, error) {
	data, err := s.get(orderKey(id))
	if err != nil {
		return nil, fmt.Errorf("getting order %s: %w", id, err)
	}
	if data == nil {
		return nil, fmt.Errorf("order %s: %w", id, asset.ErrUnknownOrder)
	}

	var o asset.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("unmarshalling order %s: %w", id, err)
	}
	return &o, nil
}

// DeleteOrder removes an order row and its book index entry.
func (s *Store) DeleteOrder(id asset.OrderID) error {
	o, err := s.Order(id)
	if err != nil {
		return err
	}
	if err := s.delete(bookKey(o.HaveAssetID, o.WantAssetID, o.Price, o.ID)); err != nil {
		return fmt.Errorf("deleting book index for order %s: %w", id, err)
	}
	if err := s.delete(orderKey(id)); err != nil {
		return fmt.Errorf("deleting order %s: %w", id, err)
	}
	return nil
}

// OpenOrdersCrossing returns open (have, want) orders whose price is no
// worse than limitPrice from the opposite side's point of view, best price
// first.
//
// The index key embeds the price zero-padded, so ascending iteration is
// ascending price. Which end is "best" depends on the initiating side: an
// initiator with have < want pays the price, so lower is better; an
// initiator with have > want receives it, so higher is better.
func (s *Store) OpenOrdersCrossing(haveAssetID, wantAssetID uint64, limitPrice asset.Amount) ([]*asset.Order, error) {
	ascending := wantAssetID < haveAssetID // initiator's have < want

	var lower, upper []byte
	if ascending {
		lower = bookPrefix(haveAssetID, wantAssetID)
		upper = bookPriceBound(haveAssetID, wantAssetID, limitPrice+1)
	} else {
		lower = bookPriceBound(haveAssetID, wantAssetID, limitPrice)
		upper = keyUpperBound(bookPrefix(haveAssetID, wantAssetID))
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("opening book iterator: %w", err)
	}
	defer iter.Close()

	var orders []*asset.Order
	appendOrder := func() error {
		id := asset.OrderID(common.BytesToHash(iter.Value()))
		o, err := s.Order(id)
		if err != nil {
			return err
		}
		// The index row should already be gone for these; skip defensively.
		if o.Closed || o.AmountLeft() <= 0 {
			return nil
		}
		orders = append(orders, o)
		return nil
	}

	if ascending {
		for iter.First(); iter.Valid(); iter.Next() {
			if err := appendOrder(); err != nil {
				return nil, err
			}
		}
	} else {
		for iter.Last(); iter.Valid(); iter.Prev() {
			if err := appendOrder(); err != nil {
				return nil, err
			}
		}
	}

	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scanning book index: %w", err)
	}
	return orders, nil
}

var _ asset.OrderStore = (*Store)(nil)
