package storage

import (
	"testing"

	"github.com/quillchain/quill/pkg/asset"
)

func TestSaveTradeAssignsSequence(t *testing.T) {
	s := newTestStore(t)

	first := &asset.Trade{Initiator: testOrderID(1), Target: testOrderID(2), TargetAmount: 10}
	second := &asset.Trade{Initiator: testOrderID(1), Target: testOrderID(3), TargetAmount: 20}

	if err := s.SaveTrade(first); err != nil {
		t.Fatalf("SaveTrade: %v", err)
	}
	if err := s.SaveTrade(second); err != nil {
		t.Fatalf("SaveTrade: %v", err)
	}

	if first.Seq == 0 || second.Seq <= first.Seq {
		t.Errorf("sequences %d, %d not strictly increasing from 1", first.Seq, second.Seq)
	}

	// Re-saving must not burn a new sequence number.
	seq := second.Seq
	if err := s.SaveTrade(second); err != nil {
		t.Fatalf("re-SaveTrade: %v", err)
	}
	if second.Seq != seq {
		t.Errorf("re-save changed seq %d to %d", seq, second.Seq)
	}
}

func TestTradesByInitiatorNewestFirst(t *testing.T) {
	s := newTestStore(t)

	for i := byte(1); i <= 3; i++ {
		err := s.SaveTrade(&asset.Trade{
			Initiator: testOrderID(7), Target: testOrderID(i),
			TargetAmount: asset.Amount(i) * asset.Multiplier,
		})
		if err != nil {
			t.Fatalf("SaveTrade %d: %v", i, err)
		}
	}
	// A trade by a different order must not show up.
	if err := s.SaveTrade(&asset.Trade{Initiator: testOrderID(8), Target: testOrderID(9)}); err != nil {
		t.Fatalf("SaveTrade: %v", err)
	}

	trades, err := s.TradesByInitiator(testOrderID(7))
	if err != nil {
		t.Fatalf("TradesByInitiator: %v", err)
	}
	if len(trades) != 3 {
		t.Fatalf("got %d trades, want 3", len(trades))
	}
	for i, want := range []byte{3, 2, 1} {
		if trades[i].Target != testOrderID(want) {
			t.Errorf("trades[%d].Target = %s, want target %d", i, trades[i].Target, want)
		}
	}
}

func TestDeleteTrade(t *testing.T) {
	s := newTestStore(t)

	trade := &asset.Trade{Initiator: testOrderID(1), Target: testOrderID(2)}
	if err := s.SaveTrade(trade); err != nil {
		t.Fatalf("SaveTrade: %v", err)
	}
	if err := s.DeleteTrade(trade); err != nil {
		t.Fatalf("DeleteTrade: %v", err)
	}

	trades, err := s.TradesByInitiator(testOrderID(1))
	if err != nil {
		t.Fatalf("TradesByInitiator: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("deleted trade still indexed: %d entries", len(trades))
	}
	recent, err := s.RecentTrades(10)
	if err != nil {
		t.Fatalf("RecentTrades: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("deleted trade still listed: %d entries", len(recent))
	}
}

func TestRecentTradesLimit(t *testing.T) {
	s := newTestStore(t)

	for i := byte(1); i <= 5; i++ {
		err := s.SaveTrade(&asset.Trade{Initiator: testOrderID(i), Target: testOrderID(i + 10)})
		if err != nil {
			t.Fatalf("SaveTrade %d: %v", i, err)
		}
	}

	recent, err := s.RecentTrades(2)
	if err != nil {
		t.Fatalf("RecentTrades: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d trades, want 2", len(recent))
	}
	if recent[0].Initiator != testOrderID(5) || recent[1].Initiator != testOrderID(4) {
		t.Errorf("recent trades = %s, %s; want newest first", recent[0].Initiator, recent[1].Initiator)
	}
}
