package product

import (
	"database/sql"

	"github.com/echoesonmars/tabys-back/internal/handlerutils"
	"github.com/shopspring/decimal"
)

// Requests

// ProductForm is the admin create/edit form after parsing. Optional numeric
// inputs are already resolved to typed optionals.
type ProductForm struct {
	Name          string              `json:"name" validate:"required"`
	NameKK        string              `json:"name_kk"`
	CategoryID    sql.NullInt64       `json:"category_id"`
	Price         decimal.Decimal     `json:"price" validate:"gte=0"`
	OldPrice      decimal.NullDecimal `json:"old_price"`
	Unit          string              `json:"unit"`
	Stock         decimal.Decimal     `json:"stock" validate:"gte=0"`
	Description   string              `json:"description"`
	DescriptionKK string              `json:"description_kk"`

	// Images are the URLs to keep; uploads are appended by the service.
	Images []string `json:"-"`
}

type CartItemsRequest struct {
	IDs []handlerutils.ID `json:"ids"`
}

type DeleteProductRequest struct {
	ID    handlerutils.ID `json:"id"`
	Image string          `json:"image"`
}
