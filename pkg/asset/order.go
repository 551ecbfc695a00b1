package asset

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OrderID is the 32-byte identifier of an order (the hash of the
// transaction that created it).
type OrderID = common.Hash

// Order is one resting or newly placed exchange order.
//
// Pricing convention: the asset with the lower id is the pricing base, so
// Amount and Fulfilled are always denominated in the HIGHER-id asset of the
// have/want pair, and Price is lower-asset units per one higher-asset unit.
type Order struct {
	ID          OrderID        `json:"id"`
	Creator     common.Address `json:"creator"`
	HaveAssetID uint64         `json:"haveAssetId"`
	WantAssetID uint64         `json:"wantAssetId"`
	Amount      Amount         `json:"amount"`
	Price       Amount         `json:"price"`
	Fulfilled   Amount         `json:"fulfilled"`
	Closed      bool           `json:"closed"`
	Timestamp   int64          `json:"timestamp"`
}

// AmountInWantAsset reports whether the Amount field is denominated in the
// want-asset, i.e. the want-asset has the higher id.
func (o *Order) AmountInWantAsset() bool {
	return o.HaveAssetID < o.WantAssetID
}

// AmountLeft is the unmatched remainder of the order.
func (o *Order) AmountLeft() Amount {
	return o.Amount - o.Fulfilled
}

// IsFulfilled reports whether the order has been completely matched.
func (o *Order) IsFulfilled() bool {
	return o.Fulfilled == o.Amount
}

// AmountAssetID is the asset the Amount field is denominated in
// (the higher-id asset of the pair).
func (o *Order) AmountAssetID() uint64 {
	if o.WantAssetID > o.HaveAssetID {
		return o.WantAssetID
	}
	return o.HaveAssetID
}

// ReturnAssetID is the other (pricing base, lower-id) asset of the pair.
func (o *Order) ReturnAssetID() uint64 {
	if o.HaveAssetID < o.WantAssetID {
		return o.HaveAssetID
	}
	return o.WantAssetID
}

// PricePair renders the pricing pair, lower-id asset first, e.g. "QORT/GOLD".
func (o *Order) PricePair(assets Catalog) (string, error) {
	have, err := assets.Asset(o.HaveAssetID)
	if err != nil {
		return "", err
	}
	want, err := assets.Asset(o.WantAssetID)
	if err != nil {
		return "", err
	}
	if o.HaveAssetID > o.WantAssetID {
		return fmt.Sprintf("%s/%s", want.Name, have.Name), nil
	}
	return fmt.Sprintf("%s/%s", have.Name, want.Name), nil
}

// haveCommitment is the amount of have-asset debited from the creator when
// the order is placed. Rounded up so the book never under-collects.
func (o *Order) haveCommitment() Amount {
	if !o.AmountInWantAsset() {
		return o.Amount
	}
	return RoundUpScaledMultiply(o.Amount, o.Price)
}

// haveRefund is the have-asset owed back for an unfilled remainder, used on
// cancel and its inverse. Same rounding as the commitment so the round trip
// is exact.
func (o *Order) haveRefund(remaining Amount) Amount {
	if !o.AmountInWantAsset() {
		return remaining
	}
	return RoundUpScaledMultiply(remaining, o.Price)
}

// CalculateAmountGranularity returns the smallest tradable increment of the
// matched (amount) asset, given the price and both assets' divisibility, such
// that the corresponding return-asset amount is exactly representable: an
// integer number of units if the return asset is indivisible, a multiple of
// 10^-8 if divisible.
func CalculateAmountGranularity(isAmountAssetDivisible, isReturnAssetDivisible bool, price Amount) Amount {
	returnUnit := big.NewInt(Multiplier)
	matchedUnit := big.NewInt(price)

	gcd := new(big.Int).GCD(nil, nil, returnUnit, matchedUnit)
	returnUnit.Div(returnUnit, gcd)
	matchedUnit.Div(matchedUnit, gcd)

	// Expand to the smallest representable fraction on each divisible side.
	if isAmountAssetDivisible {
		returnUnit.Mul(returnUnit, multiplierBig)
	}
	if isReturnAssetDivisible {
		matchedUnit.Mul(matchedUnit, multiplierBig)
	}

	gcd = new(big.Int).GCD(nil, nil, returnUnit, matchedUnit)

	granularity := new(big.Int).Mul(returnUnit, multiplierBig)
	granularity.Div(granularity, gcd)
	if isAmountAssetDivisible {
		granularity.Div(granularity, multiplierBig)
	}

	return granularity.Int64()
}
