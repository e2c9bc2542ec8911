package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

type storer interface {
	findLevels(ctx context.Context, ids []int64) ([]StockLevel, error)
}

type service struct {
	store     storer
	threshold decimal.Decimal
}

func NewService(inventoryStore storer, lowStockThreshold int64) *service {
	return &service{
		store:     inventoryStore,
		threshold: decimal.NewFromInt(lowStockThreshold),
	}
}

// lowStock returns the products among ids whose stock is at or below the
// threshold.
func (s *service) lowStock(ctx context.Context, ids []int64) ([]StockLevel, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	levels, err := s.store.findLevels(ctx, ids)
	if err != nil {
		return nil, err
	}

	low := levels[:0]
	for _, l := range levels {
		if l.Stock.LessThanOrEqual(s.threshold) {
			low = append(low, l)
		}
	}

	return low, nil
}
