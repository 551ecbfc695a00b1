package chain

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/quillchain/quill/pkg/asset"
	"github.com/quillchain/quill/pkg/ledger"
	"github.com/quillchain/quill/pkg/util"
)

// Processor applies and orphans blocks of asset transactions, one at a
// time. Every forward operation it performs has an exact inverse, which is
// what lets a chain reorganization unwind committed blocks bit-identically.
type Processor struct {
	mu sync.Mutex

	engine   *asset.Engine
	registry *asset.Registry
	ledger   *ledger.Ledger
	blocks   BlockStore
	clock    util.Clock
	log      *zap.SugaredLogger

	height uint64
}

// NewProcessor wires the block processor and restores the committed height.
func NewProcessor(engine *asset.Engine, registry *asset.Registry, lgr *ledger.Ledger, blocks BlockStore, clock util.Clock, log *zap.SugaredLogger) (*Processor, error) {
	height, err := blocks.LoadHeight()
	if err != nil {
		return nil, fmt.Errorf("loading chain height: %w", err)
	}
	return &Processor{
		engine:   engine,
		registry: registry,
		ledger:   lgr,
		blocks:   blocks,
		clock:    clock,
		log:      log,
		height:   height,
	}, nil
}

// SubmitTx commits tx in its own block at the next height. With no external
// consensus driving block production, locally submitted transactions are
// committed directly.
func (p *Processor) SubmitTx(tx Tx) error {
	return p.ApplyBlock(&Block{
		Height:    p.Height() + 1,
		Timestamp: p.clock.Now().UnixMilli(),
		Txs:       []Tx{tx},
	})
}

// Height returns the committed chain height.
func (p *Processor) Height() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height
}

// ApplyBlock applies every transaction of b in order. On any failure the
// transactions already applied are unwound in reverse and the block is
// rejected whole; the chain state is exactly as before the call.
func (p *Processor) ApplyBlock(b *Block) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if b.Height != p.height+1 {
		return fmt.Errorf("block height %d does not extend tip %d", b.Height, p.height)
	}

	for i, tx := range b.Txs {
		if err := p.applyTx(b, &tx); err != nil {
			p.log.Errorw("block rejected, unwinding partial application",
				"height", b.Height, "tx", i, "err", err)
			for j := i - 1; j >= 0; j-- {
				if undoErr := p.orphanTx(&b.Txs[j]); undoErr != nil {
					// Unwind of already-applied state must not fail; if it
					// does the store is inconsistent and we cannot continue.
					p.log.Fatalw("failed to unwind transaction",
						"height", b.Height, "tx", j, "err", undoErr)
				}
			}
			return fmt.Errorf("applying tx %d of block %d: %w", i, b.Height, err)
		}
	}

	if err := p.blocks.SaveBlock(b); err != nil {
		return fmt.Errorf("saving block %d: %w", b.Height, err)
	}
	if err := p.blocks.SaveHeight(b.Height); err != nil {
		return fmt.Errorf("saving chain height: %w", err)
	}
	p.height = b.Height

	p.log.Infow("block applied", "height", b.Height, "txs", len(b.Txs))
	return nil
}

// OrphanBlock undoes the tip block, newest transaction first, restoring the
// exact pre-block ledger and order state.
func (p *Processor) OrphanBlock() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.height == 0 {
		return fmt.Errorf("no block to orphan")
	}

	b, err := p.blocks.Block(p.height)
	if err != nil {
		return fmt.Errorf("loading tip block %d: %w", p.height, err)
	}

	for i := len(b.Txs) - 1; i >= 0; i-- {
		if err := p.orphanTx(&b.Txs[i]); err != nil {
			return fmt.Errorf("orphaning tx %d of block %d: %w", i, b.Height, err)
		}
	}

	if err := p.blocks.DeleteBlock(b.Height); err != nil {
		return fmt.Errorf("deleting block %d: %w", b.Height, err)
	}
	if err := p.blocks.SaveHeight(b.Height - 1); err != nil {
		return fmt.Errorf("saving chain height: %w", err)
	}
	p.height = b.Height - 1

	p.log.Infow("block orphaned", "height", b.Height, "txs", len(b.Txs))
	return nil
}

func (p *Processor) applyTx(b *Block, tx *Tx) error {
	switch tx.Type {
	case TxIssueAsset:
		return p.applyIssueAsset(tx.IssueAsset)
	case TxTransferAsset:
		return p.applyTransferAsset(tx.TransferAsset)
	case TxPlaceOrder:
		return p.applyPlaceOrder(b, tx.PlaceOrder)
	case TxCancelOrder:
		return p.applyCancelOrder(tx.CancelOrder)
	default:
		return fmt.Errorf("unknown tx type %q", tx.Type)
	}
}

func (p *Processor) orphanTx(tx *Tx) error {
	switch tx.Type {
	case TxIssueAsset:
		t := tx.IssueAsset
		if err := p.ledger.ApplyDelta(t.Owner, t.AssetID, -t.Supply); err != nil {
			return err
		}
		return p.registry.Deissue(t.AssetID)
	case TxTransferAsset:
		t := tx.TransferAsset
		if err := p.ledger.ApplyDelta(t.To, t.AssetID, -t.Amount); err != nil {
			return err
		}
		return p.ledger.ApplyDelta(t.From, t.AssetID, t.Amount)
	case TxPlaceOrder:
		return p.engine.Orphan(tx.PlaceOrder.OrderID)
	case TxCancelOrder:
		return p.engine.Reopen(tx.CancelOrder.OrderID)
	default:
		return fmt.Errorf("unknown tx type %q", tx.Type)
	}
}

func (p *Processor) applyIssueAsset(t *IssueAssetTx) error {
	if t.Name == "" {
		return fmt.Errorf("asset name must not be empty")
	}
	if t.Supply <= 0 {
		return fmt.Errorf("asset supply must be positive")
	}
	if !t.Divisible && t.Supply%asset.Multiplier != 0 {
		return fmt.Errorf("supply %s of indivisible asset %q: %w",
			asset.Pretty(t.Supply), t.Name, asset.ErrFractionalAmount)
	}

	if err := p.registry.Issue(&asset.Asset{
		ID:          t.AssetID,
		Name:        t.Name,
		Description: t.Description,
		Owner:       t.Owner,
		Divisible:   t.Divisible,
		Unspendable: t.Unspendable,
	}); err != nil {
		return err
	}

	if err := p.ledger.EnsureAccount(t.Owner); err != nil {
		return err
	}
	return p.ledger.ApplyDelta(t.Owner, t.AssetID, t.Supply)
}

func (p *Processor) applyTransferAsset(t *TransferAssetTx) error {
	a, err := p.registry.Asset(t.AssetID)
	if err != nil {
		return err
	}
	if t.Amount <= 0 {
		return fmt.Errorf("transfer amount must be positive")
	}
	if !a.Divisible && t.Amount%asset.Multiplier != 0 {
		return fmt.Errorf("transferring %s of asset %d: %w",
			asset.Pretty(t.Amount), t.AssetID, asset.ErrFractionalAmount)
	}
	if a.Unspendable && t.From != a.Owner {
		return fmt.Errorf("asset %d is unspendable except by its owner", t.AssetID)
	}
	if p.ledger.Balance(t.From, t.AssetID) < t.Amount {
		return fmt.Errorf("transferring %s of asset %d from %s: %w",
			asset.Pretty(t.Amount), t.AssetID, t.From, asset.ErrInsufficientBalance)
	}

	if err := p.ledger.ApplyDelta(t.From, t.AssetID, -t.Amount); err != nil {
		return err
	}
	return p.ledger.ApplyDelta(t.To, t.AssetID, t.Amount)
}

func (p *Processor) applyPlaceOrder(b *Block, t *PlaceOrderTx) error {
	if t.HaveAssetID == t.WantAssetID {
		return fmt.Errorf("order trades asset %d against itself", t.HaveAssetID)
	}
	if t.Amount <= 0 || t.Price <= 0 {
		return fmt.Errorf("order amount and price must be positive")
	}

	have, err := p.registry.Asset(t.HaveAssetID)
	if err != nil {
		return err
	}
	if _, err := p.registry.Asset(t.WantAssetID); err != nil {
		return err
	}
	if have.Unspendable && t.Creator != have.Owner {
		return fmt.Errorf("asset %d is unspendable except by its owner", t.HaveAssetID)
	}

	order := &asset.Order{
		ID:          t.OrderID,
		Creator:     t.Creator,
		HaveAssetID: t.HaveAssetID,
		WantAssetID: t.WantAssetID,
		Amount:      t.Amount,
		Price:       t.Price,
		Timestamp:   b.Timestamp,
	}
	return p.engine.Place(order)
}

func (p *Processor) applyCancelOrder(t *CancelOrderTx) error {
	order, err := p.engine.Order(t.OrderID)
	if err != nil {
		return err
	}
	if order.Creator != t.Creator {
		return fmt.Errorf("order %s does not belong to %s", t.OrderID, t.Creator)
	}
	if order.Closed {
		return fmt.Errorf("order %s is already closed", t.OrderID)
	}
	return p.engine.Cancel(t.OrderID)
}
