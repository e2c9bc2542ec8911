package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/echoesonmars/tabys-back/internal/config"
	"github.com/echoesonmars/tabys-back/internal/eventengine"
	"github.com/echoesonmars/tabys-back/internal/eventengine/event"
	"github.com/echoesonmars/tabys-back/internal/features/inventory"
	"github.com/echoesonmars/tabys-back/internal/obs"
	"github.com/echoesonmars/tabys-back/internal/servererrors"
	"github.com/echoesonmars/tabys-back/internal/storage"
	"github.com/echoesonmars/tabys-back/internal/validate"
)

// StockError reports the per-line outcome of an order that was rolled back
// because at least one line could not be decremented.
type StockError struct {
	Lines []LineResult
}

func (e *StockError) Error() string {
	return servererrors.ErrInsufficientStock.Error()
}

func (e *StockError) Unwrap() error {
	return servererrors.ErrInsufficientStock
}

type batchExecutor interface {
	execute(ctx context.Context, b *storage.Batch) (*storage.Result, error)
}

type EngineConfig struct {
	Store        batchExecutor
	Events       eventengine.Publisher
	QuantityKind config.QuantityKind
	TxTimeout    time.Duration
}

// Engine places orders: one transaction inserts the order and takes stock
// for every line, or nothing changes.
type Engine struct {
	store        batchExecutor
	events       eventengine.Publisher
	quantityKind config.QuantityKind
	txTimeout    time.Duration
	now          func() time.Time
}

func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		store:        cfg.Store,
		events:       cfg.Events,
		quantityKind: cfg.QuantityKind,
		txTimeout:    cfg.TxTimeout,
		now:          time.Now,
	}
}

// PlaceOrder validates req and commits the order with all its stock
// decrements atomically.
//
// It returns ErrEmptyCart or validate.FieldErrors before touching the store,
// a *StockError when any line lacks stock or names a missing product, and
// ErrStoreTimeout when the transaction did not finish in time. It is not
// idempotent: callers dedupe retries.
func (e *Engine) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*Placement, error) {
	if err := e.validate(req); err != nil {
		return nil, err
	}

	itemsJSON, err := snapshot(req)
	if err != nil {
		return nil, err
	}

	if e.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.txTimeout)
		defer cancel()
	}

	// Decrements run in ascending product id order so concurrent orders
	// lock rows in the same order.
	lockOrder := make([]int, len(req.Items))
	for i := range lockOrder {
		lockOrder[i] = i
	}
	sort.SliceStable(lockOrder, func(a, b int) bool {
		return req.Items[lockOrder[a]].ID < req.Items[lockOrder[b]].ID
	})

	var existing map[int64]bool

	b := storage.NewBatch()
	addInsert(b, req.Customer, itemsJSON, req.Total)
	for _, i := range lockOrder {
		inventory.AddDecrement(b, req.Items[i].ID.Int64(), req.Items[i].Quantity)
	}
	b.OnAbort(func(ctx context.Context, q storage.Querier, failed []storage.Outcome) error {
		ids := make([]int64, 0, len(req.Items))
		for _, it := range req.Items {
			ids = append(ids, it.ID.Int64())
		}

		found, err := inventory.ExistingIDs(ctx, q, ids)
		if err != nil {
			return err
		}
		existing = found
		return nil
	})

	res, err := e.store.execute(ctx, b)
	switch {
	case errors.Is(err, storage.ErrGuardFailed):
		return nil, &StockError{Lines: e.lineResults(req.Items, lockOrder, res, existing)}

	case err != nil && (storage.IsTimeout(err) || ctx.Err() != nil):
		return nil, fmt.Errorf("%w: %v", servererrors.ErrStoreTimeout, err)

	case err != nil:
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	placement := &Placement{
		OrderID: res.Outcomes[0].ReturnedID,
		Lines:   e.lineResults(req.Items, lockOrder, res, nil),
	}

	e.publishPlaced(placement.OrderID, req)

	return placement, nil
}

func (e *Engine) validate(req *PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return servererrors.ErrEmptyCart
	}

	if err := validate.StructFields(req); err != nil {
		return err
	}

	fe := validate.FieldErrors{}
	for i, it := range req.Items {
		key := fmt.Sprintf("items[%d].quantity", i)
		switch {
		case e.quantityKind == config.QuantityInteger && !it.Quantity.IsInteger():
			fe[key] = "must be a whole number"
		case !it.Quantity.Truncate(storage.StockScale).Equal(it.Quantity):
			fe[key] = fmt.Sprintf("must have at most %d decimal places", storage.StockScale)
		}
	}
	if len(fe) > 0 {
		return fe
	}

	return nil
}

// lineResults folds the batch outcomes back onto the request lines in their
// original order. Outcome 0 is the order insert; outcome k+1 is the decrement
// of the k-th line in lock order.
func (e *Engine) lineResults(items []LineItem, lockOrder []int, res *storage.Result, existing map[int64]bool) []LineResult {
	lines := make([]LineResult, len(items))
	for i, it := range items {
		lines[i] = LineResult{
			ProductID: it.ID.Int64(),
			Requested: it.Quantity,
			Outcome:   Decremented,
		}
	}

	if res == nil {
		return lines
	}

	for k, i := range lockOrder {
		if k+1 >= len(res.Outcomes) {
			break
		}
		if !res.Outcomes[k+1].GuardFailed() {
			continue
		}

		if existing[lines[i].ProductID] {
			lines[i].Outcome = InsufficientStock
		} else {
			lines[i].Outcome = NotFound
		}
	}

	return lines
}

func (e *Engine) publishPlaced(orderID int64, req *PlaceOrderRequest) {
	if e.events == nil {
		return
	}

	placed := &event.OrderPlacedEvent{
		OrderID:  orderID,
		Total:    req.Total,
		PlacedAt: e.now().UTC(),
	}
	for _, it := range req.Items {
		placed.Lines = append(placed.Lines, event.OrderedLine{
			ProductID: it.ID.Int64(),
			Quantity:  it.Quantity,
		})
	}

	err := e.events.Publish(event.New(placed))
	if err != nil {
		obs.Logger.Warn("order_placed_publish_failed", "order_id", orderID, "error", err)
	}
}

// snapshot returns the items_json stored with the order: the client's items
// array as sent, or the typed lines when req was not decoded from JSON.
func snapshot(req *PlaceOrderRequest) ([]byte, error) {
	if len(req.rawItems) > 0 {
		return req.rawItems, nil
	}

	lines := make([]snapshotLine, len(req.Items))
	for i, it := range req.Items {
		lines[i] = snapshotLine{
			ID:       it.ID.Int64(),
			Quantity: json.Number(it.Quantity.String()),
		}
		if it.Price.Valid {
			p := json.Number(it.Price.Decimal.String())
			lines[i].Price = &p
		}
	}

	b, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order items: %w", err)
	}
	return b, nil
}
