package product

import "github.com/shopspring/decimal"

type Product struct {
	ID            int64               `json:"id"`
	Name          string              `json:"name"`
	NameKK        string              `json:"name_kk"`
	Price         decimal.Decimal     `json:"price"`
	OldPrice      decimal.NullDecimal `json:"old_price"`
	Unit          string              `json:"unit"`
	Image         string              `json:"image"` // JSON array of image URLs
	Description   string              `json:"description"`
	DescriptionKK string              `json:"description_kk"`
	Stock         decimal.Decimal     `json:"stock"`
	CategoryID    *int64              `json:"category_id"`
}
