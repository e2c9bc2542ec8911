package event

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderPlacedEventName EventName = "order.placed"
)

type OrderedLine struct {
	ProductID int64           `json:"productId"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// OrderPlacedEvent is published once the order row and every stock decrement
// have committed.
type OrderPlacedEvent struct {
	OrderID  int64           `json:"orderId"`
	Lines    []OrderedLine   `json:"lines"`
	Total    decimal.Decimal `json:"total"`
	PlacedAt time.Time       `json:"placedAt"`
}

func (e *OrderPlacedEvent) GetEventName() EventName {
	return OrderPlacedEventName
}

// ProductIDs returns the distinct products of the order.
func (e *OrderPlacedEvent) ProductIDs() []int64 {
	ids := make([]int64, 0, len(e.Lines))
	seen := make(map[int64]bool, len(e.Lines))
	for _, l := range e.Lines {
		if seen[l.ProductID] {
			continue
		}
		seen[l.ProductID] = true
		ids = append(ids, l.ProductID)
	}
	return ids
}
