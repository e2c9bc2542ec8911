package order

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const StatusNew = "new"

type Order struct {
	ID            int64           `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Address       string          `json:"address"`
	Comment       string          `json:"comment"`
	ItemsJSON     json.RawMessage `json:"items_json"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Outcome is what happened, or would have happened, to one line's stock.
type Outcome string

const (
	Decremented       Outcome = "Decremented"
	InsufficientStock Outcome = "InsufficientStock"
	NotFound          Outcome = "NotFound"
)

type LineResult struct {
	ProductID int64           `json:"productId"`
	Requested decimal.Decimal `json:"requested"`
	Outcome   Outcome         `json:"outcome"`
}

// Placement acknowledges a committed order.
type Placement struct {
	OrderID int64        `json:"orderId"`
	Lines   []LineResult `json:"lines"`
}
