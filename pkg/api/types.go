package api

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/quillchain/quill/pkg/asset"
)

// AssetInfo is the API rendering of asset metadata.
type AssetInfo struct {
	ID          uint64         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Owner       common.Address `json:"owner"`
	Divisible   bool           `json:"divisible"`
	Unspendable bool           `json:"unspendable,omitempty"`
}

// OrderInfo is the API rendering of an order.
type OrderInfo struct {
	ID          asset.OrderID  `json:"id"`
	Creator     common.Address `json:"creator"`
	HaveAssetID uint64         `json:"haveAssetId"`
	WantAssetID uint64         `json:"wantAssetId"`
	Amount      asset.Amount   `json:"amount"`
	Price       asset.Amount   `json:"price"`
	Fulfilled   asset.Amount   `json:"fulfilled"`
	AmountLeft  asset.Amount   `json:"amountLeft"`
	Closed      bool           `json:"closed"`
	PricePair   string         `json:"pricePair,omitempty"`
	Timestamp   int64          `json:"timestamp"`
}

// BalanceInfo is one ledger row with the amount rendered both raw and
// human-readable.
type BalanceInfo struct {
	AssetID   uint64       `json:"assetId"`
	AssetName string       `json:"assetName,omitempty"`
	Balance   asset.Amount `json:"balance"`
	Pretty    string       `json:"pretty"`
}

// TradeInfo is the API and websocket rendering of a settled trade.
type TradeInfo struct {
	Initiator       asset.OrderID `json:"initiator"`
	Target          asset.OrderID `json:"target"`
	TargetAmount    asset.Amount  `json:"targetAmount"`
	InitiatorAmount asset.Amount  `json:"initiatorAmount"`
	InitiatorSaving asset.Amount  `json:"initiatorSaving,omitempty"`
	Timestamp       int64         `json:"timestamp"`
}

// PlaceOrderRequest creates a new order; the node assigns the order id.
type PlaceOrderRequest struct {
	Creator     common.Address `json:"creator"`
	HaveAssetID uint64         `json:"haveAssetId"`
	WantAssetID uint64         `json:"wantAssetId"`
	Amount      asset.Amount   `json:"amount"`
	Price       asset.Amount   `json:"price"`
}

// CancelOrderRequest closes an open order.
type CancelOrderRequest struct {
	Creator common.Address `json:"creator"`
	OrderID asset.OrderID  `json:"orderId"`
}

// StatusResponse reports node liveness.
type StatusResponse struct {
	Height uint64 `json:"height"`
	Assets int    `json:"assets"`
	Uptime string `json:"uptime"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// WSSubscribeRequest is the websocket control message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}
