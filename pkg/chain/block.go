package chain

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/quillchain/quill/pkg/asset"
)

// TxType discriminates the asset transaction family this node processes.
type TxType string

const (
	TxIssueAsset    TxType = "issue_asset"
	TxTransferAsset TxType = "transfer_asset"
	TxPlaceOrder    TxType = "place_order"
	TxCancelOrder   TxType = "cancel_order"
)

// Tx is one validated, authorized transaction. Signature checking and fee
// handling happen upstream; by the time a Tx reaches the processor it is
// well-formed apart from the balance/divisibility checks applied here.
type Tx struct {
	Type TxType `json:"type"`

	IssueAsset    *IssueAssetTx    `json:"issueAsset,omitempty"`
	TransferAsset *TransferAssetTx `json:"transferAsset,omitempty"`
	PlaceOrder    *PlaceOrderTx    `json:"placeOrder,omitempty"`
	CancelOrder   *CancelOrderTx   `json:"cancelOrder,omitempty"`
}

// IssueAssetTx registers a new asset and credits its initial supply to the
// owner.
type IssueAssetTx struct {
	AssetID     uint64         `json:"assetId"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Owner       common.Address `json:"owner"`
	Supply      asset.Amount   `json:"supply"`
	Divisible   bool           `json:"divisible"`
	Unspendable bool           `json:"unspendable,omitempty"`
}

// TransferAssetTx moves an amount of one asset between accounts.
type TransferAssetTx struct {
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	AssetID uint64         `json:"assetId"`
	Amount  asset.Amount   `json:"amount"`
}

// PlaceOrderTx creates and matches a new exchange order. The order id is
// the hash of the transaction that carried it, assigned upstream.
type PlaceOrderTx struct {
	OrderID     asset.OrderID  `json:"orderId"`
	Creator     common.Address `json:"creator"`
	HaveAssetID uint64         `json:"haveAssetId"`
	WantAssetID uint64         `json:"wantAssetId"`
	Amount      asset.Amount   `json:"amount"`
	Price       asset.Amount   `json:"price"`
}

// CancelOrderTx closes an open order and refunds its unfilled remainder.
type CancelOrderTx struct {
	OrderID asset.OrderID  `json:"orderId"`
	Creator common.Address `json:"creator"`
}

// Block is a committed batch of transactions. Consensus, signatures and
// linkage live outside this node core; heights are strictly sequential and
// only the tip can be orphaned.
type Block struct {
	Height    uint64 `json:"height"`
	Timestamp int64  `json:"timestamp"`
	Txs       []Tx   `json:"txs"`
}

// BlockStore persists committed blocks by height. Implemented by
// pkg/storage.
type BlockStore interface {
	SaveBlock(b *Block) error
	Block(height uint64) (*Block, error)
	DeleteBlock(height uint64) error
	SaveHeight(height uint64) error
	LoadHeight() (uint64, error)
}
