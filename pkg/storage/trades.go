package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/quillchain/quill/pkg/asset"
)

// SaveTrade persists a trade row, assigning its creation sequence number on
// first save, plus an index row keyed by initiating order.
func (s *Store) SaveTrade(t *asset.Trade) error {
	if t.Seq == 0 {
		seq, err := s.nextTradeSeq()
		if err != nil {
			return err
		}
		t.Seq = seq
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshalling trade %d: %w", t.Seq, err)
	}
	if err := s.set(tradeKey(t.Seq), data); err != nil {
		return fmt.Errorf("saving trade %d: %w", t.Seq, err)
	}
	if err := s.set(tradeIxKey(t.Initiator, t.Seq), uint64Bytes(t.Seq)); err != nil {
		return fmt.Errorf("saving trade index %d: %w", t.Seq, err)
	}
	return nil
}

// DeleteTrade removes a trade row and its initiator index entry.
func (s *Store) DeleteTrade(t *asset.Trade) error {
	if err := s.delete(tradeIxKey(t.Initiator, t.Seq)); err != nil {
		return fmt.Errorf("deleting trade index %d: %w", t.Seq, err)
	}
	if err := s.delete(tradeKey(t.Seq)); err != nil {
		return fmt.Errorf("deleting trade %d: %w", t.Seq, err)
	}
	return nil
}

// TradesByInitiator returns all trades initiated by the given order, newest
// first, which is the replay order for orphaning.
func (s *Store) TradesByInitiator(id asset.OrderID) ([]*asset.Trade, error) {
	prefix := tradeIxPrefix(id)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("opening trade index iterator: %w", err)
	}
	defer iter.Close()

	var trades []*asset.Trade
	for iter.Last(); iter.Valid(); iter.Prev() {
		t, err := s.tradeBySeq(bytesUint64(iter.Value()))
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scanning trade index: %w", err)
	}
	return trades, nil
}

// RecentTrades returns the most recent trades across all pairs, newest
// first, up to limit.
func (s *Store) RecentTrades(limit int) ([]*asset.Trade, error) {
	prefix := []byte(prefixTrade)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("opening trade iterator: %w", err)
	}
	defer iter.Close()

	var trades []*asset.Trade
	for iter.Last(); iter.Valid() && len(trades) < limit; iter.Prev() {
		var t asset.Trade
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			return nil, fmt.Errorf("unmarshalling trade: %w", err)
		}
		trades = append(trades, &t)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scanning trades: %w", err)
	}
	return trades, nil
}

func (s *Store) tradeBySeq(seq uint64) (*asset.Trade, error) {
	data, err := s.get(tradeKey(seq))
	if err != nil {
		return nil, fmt.Errorf("getting trade %d: %w", seq, err)
	}
	if data == nil {
		return nil, fmt.Errorf("trade %d not found", seq)
	}
	var t asset.Trade
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("unmarshalling trade %d: %w", seq, err)
	}
	return &t, nil
}

func (s *Store) nextTradeSeq() (uint64, error) {
	data, err := s.get([]byte(keyTradeSeq))
	if err != nil {
		return 0, fmt.Errorf("getting trade sequence: %w", err)
	}
	seq := bytesUint64(data) + 1
	if err := s.set([]byte(keyTradeSeq), uint64Bytes(seq)); err != nil {
		return 0, fmt.Errorf("saving trade sequence: %w", err)
	}
	return seq, nil
}

var _ asset.TradeStore = (*Store)(nil)
