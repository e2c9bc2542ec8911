package inventory

import "github.com/shopspring/decimal"

// StockLevel is the current stock of one product.
type StockLevel struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Stock     decimal.Decimal `json:"stock"`
}
