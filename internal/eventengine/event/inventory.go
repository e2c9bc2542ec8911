package event

import "github.com/shopspring/decimal"

const (
	InventoryLowStockEventName EventName = "inventory.low_stock"
)

type InventoryLowStockEvent struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Stock     decimal.Decimal `json:"stock"`
	Threshold int64           `json:"threshold"`
}

func (e *InventoryLowStockEvent) GetEventName() EventName {
	return InventoryLowStockEventName
}
