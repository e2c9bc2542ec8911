package order

import (
	"context"
	"fmt"

	"github.com/echoesonmars/tabys-back/internal/obs"
	"github.com/echoesonmars/tabys-back/internal/servererrors"
)

type placer interface {
	PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*Placement, error)
}

type storer interface {
	findAll(ctx context.Context) ([]*Order, error)
	deleteOne(ctx context.Context, id int64) (int64, error)
}

type service struct {
	engine placer
	store  storer
	guard  *IdempotencyGuard
}

func NewService(engine placer, store storer, guard *IdempotencyGuard) *service {
	return &service{
		engine: engine,
		store:  store,
		guard:  guard,
	}
}

// placeOrder runs the engine, deduplicating on idempotencyKey when one is
// given.
func (s *service) placeOrder(ctx context.Context, idempotencyKey string, req *PlaceOrderRequest) (*Placement, error) {
	if idempotencyKey == "" {
		return s.engine.PlaceOrder(ctx, req)
	}

	ok, err := s.guard.claim(ctx, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", servererrors.ErrStoreTimeout, err)
	}
	if !ok {
		return nil, servererrors.ErrDuplicateSubmission
	}

	placement, err := s.engine.PlaceOrder(ctx, req)
	if err != nil {
		// The request context may be done already; the key must still go.
		if rerr := s.guard.release(context.WithoutCancel(ctx), idempotencyKey); rerr != nil {
			obs.Logger.Warn("idempotency_release_failed", "key", idempotencyKey, "error", rerr)
		}
		return nil, err
	}

	if err := s.guard.complete(context.WithoutCancel(ctx), idempotencyKey, placement.OrderID); err != nil {
		obs.Logger.Warn("idempotency_complete_failed", "key", idempotencyKey, "error", err)
	}

	return placement, nil
}

func (s *service) getAllOrders(ctx context.Context) ([]*Order, error) {
	return s.store.findAll(ctx)
}

// deleteOrder removes the order row. Stock taken by the order stays taken.
func (s *service) deleteOrder(ctx context.Context, id int64) error {
	if id <= 0 {
		return servererrors.ErrMissingID
	}

	n, err := s.store.deleteOne(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return servererrors.ErrOrderNotFound
	}
	return nil
}

