package asset

import (
	"fmt"

	"go.uber.org/zap"
)

// Engine owns order placement, continuous matching, cancellation and the
// exact inverse of each of those, mutating the ledger and the order/trade
// stores. It is single-threaded per ledger snapshot: the block-processing
// goroutine that owns the current batch is the only caller, so the engine
// itself takes no locks.
type Engine struct {
	ledger Ledger
	assets Catalog
	orders OrderStore
	trades TradeStore
	log    *zap.SugaredLogger

	onTrade TradeListener
}

// NewEngine wires the matching engine to its collaborators.
func NewEngine(ledger Ledger, assets Catalog, orders OrderStore, trades TradeStore, log *zap.SugaredLogger) *Engine {
	return &Engine{
		ledger: ledger,
		assets: assets,
		orders: orders,
		trades: trades,
		log:    log,
	}
}

// SetTradeListener registers a callback invoked after each settled trade.
func (e *Engine) SetTradeListener(fn TradeListener) {
	e.onTrade = fn
}

// Order loads an order by id.
func (e *Engine) Order(id OrderID) (*Order, error) {
	return e.orders.Order(id)
}

// Place debits the creator's have-asset commitment, persists the order and
// matches it against crossing counter-orders until it is exhausted or no
// counter-order crosses. Any error leaves nothing applied beyond what the
// caller's outer batch will discard.
func (e *Engine) Place(order *Order) error {
	commitment := order.haveCommitment()

	// Upstream validation should have rejected underfunded orders already,
	// so insufficiency here is surfaced loudly rather than retried.
	if e.ledger.Balance(order.Creator, order.HaveAssetID) < commitment {
		e.log.Errorw("order underfunded at placement",
			"order", order.ID, "creator", order.Creator, "commitment", Pretty(commitment))
		return fmt.Errorf("placing order %s: %w", order.ID, ErrInsufficientBalance)
	}
	if err := e.ledger.ApplyDelta(order.Creator, order.HaveAssetID, -commitment); err != nil {
		return fmt.Errorf("committing have-asset for order %s: %w", order.ID, err)
	}

	// Save before matching so the order can be loaded by trade settlement.
	if err := e.orders.SaveOrder(order); err != nil {
		return fmt.Errorf("saving order %s: %w", order.ID, err)
	}

	e.log.Debugw("processing order",
		"order", order.ID,
		"have", order.HaveAssetID, "want", order.WantAssetID,
		"amount", Pretty(order.Amount), "price", Pretty(order.Price))

	// Counter-orders have our want/have reversed. Best price first, bounded
	// by our limit price.
	candidates, err := e.orders.OpenOrdersCrossing(order.WantAssetID, order.HaveAssetID, order.Price)
	if err != nil {
		return fmt.Errorf("fetching counter-orders for %s: %w", order.ID, err)
	}
	if len(candidates) == 0 {
		return nil
	}

	return e.matchOrders(order, candidates)
}

// matchOrders walks pre-sorted counter-orders, settling one trade per
// crossing candidate. Deterministic: same candidates in, same trades out.
func (e *Engine) matchOrders(order *Order, candidates []*Order) error {
	matchingAsset, err := e.assets.Asset(order.AmountAssetID())
	if err != nil {
		return err
	}
	returnAsset, err := e.assets.Asset(order.ReturnAssetID())
	if err != nil {
		return err
	}

	ourPrice := order.Price

	for _, theirOrder := range candidates {
		theirPrice := theirOrder.Price

		// Candidates are sorted best price first, so once one is worse than
		// our limit all the rest are too.
		if (order.HaveAssetID < order.WantAssetID && theirPrice > ourPrice) ||
			(order.HaveAssetID > order.WantAssetID && theirPrice < ourPrice) {
			break
		}

		ourMaxAmount := order.AmountLeft()
		theirAmountLeft := theirOrder.AmountLeft()

		interimMatched := min(ourMaxAmount, theirAmountLeft)
		if interimMatched <= 0 {
			continue
		}

		// Snap the matched amount to the granularity that keeps the
		// return-asset amount exactly representable at their price.
		granularity := CalculateAmountGranularity(matchingAsset.Divisible, returnAsset.Divisible, theirPrice)
		matchedAmount := interimMatched - interimMatched%granularity
		if matchedAmount <= 0 {
			continue
		}

		if err := e.checkDivisibility(matchingAsset, matchedAmount, theirOrder.ID); err != nil {
			return err
		}

		// Total cost to us in return-asset, at their (better or equal) price.
		returnAmount := RoundDownScaledMultiply(matchedAmount, theirPrice)

		if err := e.checkDivisibility(returnAsset, returnAmount, order.ID); err != nil {
			return err
		}

		tradedWantAmount := returnAmount
		tradedHaveAmount := matchedAmount
		if order.AmountInWantAsset() {
			tradedWantAmount = matchedAmount
			tradedHaveAmount = returnAmount
		}

		// Price-improvement refund of have-asset; only arises when our
		// amount is in want-asset. The asymmetry is deliberate.
		var initiatorSaving Amount
		if order.AmountInWantAsset() {
			initiatorSaving = RoundDownScaledMultiply(matchedAmount, absInt64(ourPrice-theirPrice))
		}

		trade := &Trade{
			Initiator:       order.ID,
			Target:          theirOrder.ID,
			TargetAmount:    tradedWantAmount,
			InitiatorAmount: tradedHaveAmount,
			InitiatorSaving: initiatorSaving,
			Timestamp:       order.Timestamp,
		}

		e.log.Debugw("matched",
			"initiator", order.ID, "target", theirOrder.ID,
			"matched", Pretty(matchedAmount), "return", Pretty(returnAmount),
			"price", Pretty(theirPrice), "saving", Pretty(initiatorSaving))

		if err := e.settleTrade(trade); err != nil {
			return err
		}

		// Settlement persisted both orders; track our fulfilment locally so
		// the loop sees the updated remainder.
		order.Fulfilled += matchedAmount

		if order.AmountLeft() <= 0 {
			break
		}
	}

	return nil
}

// checkDivisibility rejects a fractional quantity of an indivisible asset.
// Unreachable given the granularity snap; kept as a hard failure because
// rounding here would leak or destroy value.
func (e *Engine) checkDivisibility(a *Asset, amount Amount, orderID OrderID) error {
	if a.Divisible || amount%Multiplier == 0 {
		return nil
	}

	e.log.Errorw("refusing to trade fractional amount of indivisible asset",
		"asset", a.ID, "amount", Pretty(amount), "order", orderID)
	return fmt.Errorf("%s of asset %d for order %s: %w", Pretty(amount), a.ID, orderID, ErrFractionalAmount)
}

// Cancel closes an order and refunds the unfilled remainder to its creator.
func (e *Engine) Cancel(id OrderID) error {
	order, err := e.orders.Order(id)
	if err != nil {
		return err
	}

	order.Closed = true
	if err := e.orders.SaveOrder(order); err != nil {
		return fmt.Errorf("saving cancelled order %s: %w", id, err)
	}

	return e.ledger.ApplyDelta(order.Creator, order.HaveAssetID, order.haveRefund(order.AmountLeft()))
}

// Reopen is the exact inverse of Cancel, used when the cancelling
// transaction itself is orphaned: claw back the refund, reopen the order.
func (e *Engine) Reopen(id OrderID) error {
	order, err := e.orders.Order(id)
	if err != nil {
		return err
	}

	if err := e.ledger.ApplyDelta(order.Creator, order.HaveAssetID, -order.haveRefund(order.AmountLeft())); err != nil {
		return err
	}

	order.Closed = false
	return e.orders.SaveOrder(order)
}

// Orphan undoes the placement of an order because the block containing it
// was reorganized away: every trade it initiated is reversed newest-first,
// the order row is deleted, and the original commitment is credited back.
func (e *Engine) Orphan(id OrderID) error {
	order, err := e.orders.Order(id)
	if err != nil {
		return err
	}

	// Newest-first so each reversal sees the order/ledger state the trade
	// left behind.
	trades, err := e.trades.TradesByInitiator(id)
	if err != nil {
		return fmt.Errorf("fetching trades for order %s: %w", id, err)
	}
	for _, t := range trades {
		if err := e.reverseTrade(t); err != nil {
			return err
		}
	}

	if err := e.orders.DeleteOrder(id); err != nil {
		return fmt.Errorf("deleting order %s: %w", id, err)
	}

	return e.ledger.ApplyDelta(order.Creator, order.HaveAssetID, order.haveCommitment())
}

// fulfilledDelta is the matched quantity in the asset common to both orders'
// Amount fields (the higher-id asset of the pair).
func fulfilledDelta(initiating *Order, t *Trade) Amount {
	if initiating.AmountInWantAsset() {
		return t.TargetAmount
	}
	return t.InitiatorAmount
}

// settleTrade persists the trade, advances both orders' fulfilment and moves
// the two (or three) balance credits.
func (e *Engine) settleTrade(t *Trade) error {
	if err := e.trades.SaveTrade(t); err != nil {
		return fmt.Errorf("saving trade %s/%s: %w", t.Initiator, t.Target, err)
	}

	initiating, err := e.orders.Order(t.Initiator)
	if err != nil {
		return err
	}
	target, err := e.orders.Order(t.Target)
	if err != nil {
		return err
	}

	delta := fulfilledDelta(initiating, t)

	initiating.Fulfilled += delta
	// One-way: fulfilment can close an order but never reopen one that was
	// cancelled independently.
	initiating.Closed = initiating.Closed || initiating.IsFulfilled()
	if err := e.orders.SaveOrder(initiating); err != nil {
		return fmt.Errorf("saving initiating order %s: %w", initiating.ID, err)
	}

	target.Fulfilled += delta
	target.Closed = target.Closed || target.IsFulfilled()
	if err := e.orders.SaveOrder(target); err != nil {
		return fmt.Errorf("saving target order %s: %w", target.ID, err)
	}

	if err := e.ledger.ApplyDelta(initiating.Creator, initiating.WantAssetID, t.TargetAmount); err != nil {
		return err
	}
	if err := e.ledger.ApplyDelta(target.Creator, target.WantAssetID, t.InitiatorAmount); err != nil {
		return err
	}
	if t.InitiatorSaving > 0 {
		if err := e.ledger.ApplyDelta(initiating.Creator, initiating.HaveAssetID, t.InitiatorSaving); err != nil {
			return err
		}
	}

	if e.onTrade != nil {
		e.onTrade(t)
	}
	return nil
}

// reverseTrade is the exact inverse of settleTrade, used for chain-reorg
// undo. Must be called when this trade is the most recently applied one
// affecting both orders.
func (e *Engine) reverseTrade(t *Trade) error {
	initiating, err := e.orders.Order(t.Initiator)
	if err != nil {
		return err
	}
	target, err := e.orders.Order(t.Target)
	if err != nil {
		return err
	}

	delta := fulfilledDelta(initiating, t)

	initiating.Fulfilled -= delta
	initiating.Closed = initiating.IsFulfilled()
	if err := e.orders.SaveOrder(initiating); err != nil {
		return fmt.Errorf("saving initiating order %s: %w", initiating.ID, err)
	}

	target.Fulfilled -= delta
	target.Closed = target.IsFulfilled()
	if err := e.orders.SaveOrder(target); err != nil {
		return fmt.Errorf("saving target order %s: %w", target.ID, err)
	}

	if err := e.ledger.ApplyDelta(initiating.Creator, initiating.WantAssetID, -t.TargetAmount); err != nil {
		return err
	}
	if err := e.ledger.ApplyDelta(target.Creator, target.WantAssetID, -t.InitiatorAmount); err != nil {
		return err
	}
	if t.InitiatorSaving > 0 {
		if err := e.ledger.ApplyDelta(initiating.Creator, initiating.HaveAssetID, -t.InitiatorSaving); err != nil {
			return err
		}
	}

	// Trade row goes last so a failure above leaves it discoverable.
	if err := e.trades.DeleteTrade(t); err != nil {
		return fmt.Errorf("deleting trade %s/%s: %w", t.Initiator, t.Target, err)
	}
	return nil
}
