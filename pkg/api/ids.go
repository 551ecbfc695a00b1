package api

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/quillchain/quill/pkg/asset"
)

// newOrderID derives an order id from the request contents and submission
// time. On a full network the id is the hash of the signed transaction;
// locally submitted orders get the same shape of identifier.
func newOrderID(req *PlaceOrderRequest, nanos int64) asset.OrderID {
	buf := make([]byte, 0, 20+8*5)
	buf = append(buf, req.Creator.Bytes()...)
	buf = binary.BigEndian.AppendUint64(buf, req.HaveAssetID)
	buf = binary.BigEndian.AppendUint64(buf, req.WantAssetID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(req.Amount))
	buf = binary.BigEndian.AppendUint64(buf, uint64(req.Price))
	buf = binary.BigEndian.AppendUint64(buf, uint64(nanos))
	return crypto.Keccak256Hash(buf)
}
