package promo

type Promo struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Discount int    `json:"discount"`
	IsActive bool   `json:"is_active"`
}
