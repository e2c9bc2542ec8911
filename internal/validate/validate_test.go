package validate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type promoPayload struct {
	Code     string `json:"code" validate:"required,max=32,noAllRepeatingChars"`
	Discount int    `json:"discount" validate:"gt=0,lte=100"`
}

type pricedPayload struct {
	Price decimal.Decimal `json:"price" validate:"gt=0"`
}

func TestStructFieldsValid(t *testing.T) {
	assert.NoError(t, StructFields(&promoPayload{Code: "SPRING10", Discount: 10}))
}

func TestStructFieldsReportsJSONNames(t *testing.T) {
	err := StructFields(&promoPayload{Code: "AAAA", Discount: 0})
	require.Error(t, err)

	fe, ok := err.(FieldErrors)
	require.True(t, ok)
	assert.Equal(t, "must not repeat a single character", fe["code"])
	assert.Equal(t, "must be greater than 0", fe["discount"])
}

func TestStructFieldsDecimal(t *testing.T) {
	assert.NoError(t, StructFields(&pricedPayload{Price: decimal.RequireFromString("0.5")}))
	assert.Error(t, StructFields(&pricedPayload{Price: decimal.Zero}))
}
