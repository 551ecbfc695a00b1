package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quillchain/quill/pkg/asset"
)

// Pebble key schema. Numeric key segments are zero-padded decimal so
// lexicographic iteration order equals numeric order, which is what makes
// the order-book and trade-history scans cheap prefix walks.
const (
	prefixAsset   = "ast:"  // asset metadata
	prefixOrder   = "ord:"  // order rows
	prefixBook    = "idx:"  // open-order book index, price-sorted
	prefixTrade   = "trd:"  // trade rows, creation-sequence-sorted
	prefixTradeIx = "tix:"  // trades by initiating order
	prefixBalance = "bal:"  // ledger balance rows
	prefixAccount = "acc:"  // account records
	prefixBlock   = "blk:"  // gob-encoded blocks by height
	keyTradeSeq   = "meta:tradeseq"
	keyHeight     = "meta:height"
)

// assetKey: "ast:{id:020d}"
func assetKey(assetID uint64) []byte {
	return fmt.Appendf(nil, "%s%020d", prefixAsset, assetID)
}

// orderKey: "ord:{orderID}"
func orderKey(id asset.OrderID) []byte {
	return fmt.Appendf(nil, "%s%s", prefixOrder, id.Hex())
}

// bookKey: "idx:{have:020d}:{want:020d}:{price:020d}:{orderID}"
// One row per open order; iterating the pair prefix walks prices in
// ascending numeric order.
func bookKey(haveAssetID, wantAssetID uint64, price asset.Amount, id asset.OrderID) []byte {
	return fmt.Appendf(nil, "%s%020d:%020d:%020d:%s", prefixBook, haveAssetID, wantAssetID, price, id.Hex())
}

// bookPrefix: "idx:{have:020d}:{want:020d}:"
func bookPrefix(haveAssetID, wantAssetID uint64) []byte {
	return fmt.Appendf(nil, "%s%020d:%020d:", prefixBook, haveAssetID, wantAssetID)
}

// bookPriceBound: "idx:{have:020d}:{want:020d}:{price:020d}"
// Used as an iterator bound; all keys for this price sort after it because
// of the trailing ":" in full keys.
func bookPriceBound(haveAssetID, wantAssetID uint64, price asset.Amount) []byte {
	return fmt.Appendf(nil, "%s%020d:%020d:%020d", prefixBook, haveAssetID, wantAssetID, price)
}

// tradeKey: "trd:{seq:020d}"
func tradeKey(seq uint64) []byte {
	return fmt.Appendf(nil, "%s%020d", prefixTrade, seq)
}

// tradeIxKey: "tix:{initiator}:{seq:020d}"
func tradeIxKey(initiator asset.OrderID, seq uint64) []byte {
	return fmt.Appendf(nil, "%s%s:%020d", prefixTradeIx, initiator.Hex(), seq)
}

// tradeIxPrefix: "tix:{initiator}:"
func tradeIxPrefix(initiator asset.OrderID) []byte {
	return fmt.Appendf(nil, "%s%s:", prefixTradeIx, initiator.Hex())
}

// balanceKey: "bal:{address}:{assetID:020d}"
func balanceKey(addr common.Address, assetID uint64) []byte {
	return fmt.Appendf(nil, "%s%s:%020d", prefixBalance, addr.Hex(), assetID)
}

// accountKey: "acc:{address}"
func accountKey(addr common.Address) []byte {
	return fmt.Appendf(nil, "%s%s", prefixAccount, addr.Hex())
}

// blockKey: "blk:{height:020d}"
func blockKey(height uint64) []byte {
	return fmt.Appendf(nil, "%s%020d", prefixBlock, height)
}

// keyUpperBound is the exclusive upper bound for a prefix scan: the prefix
// with its last byte incremented.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
