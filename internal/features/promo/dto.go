package promo

type CheckPromoRequest struct {
	Code string `json:"code"`
}

type CreatePromoRequest struct {
	Code     string `json:"code" validate:"required,max=64"`
	Discount int    `json:"discount" validate:"gt=0"`
}
