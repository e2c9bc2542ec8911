package order

import (
	"bytes"
	"encoding/json"

	"github.com/echoesonmars/tabys-back/internal/handlerutils"
	"github.com/shopspring/decimal"
)

// Requests

type Customer struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
	Comment string `json:"comment"`
}

type LineItem struct {
	ID       handlerutils.ID     `json:"id" validate:"gt=0"`
	Quantity decimal.Decimal     `json:"quantity" validate:"gt=0"`
	Price    decimal.NullDecimal `json:"price"`
}

type PlaceOrderRequest struct {
	Customer Customer        `json:"customer"`
	Items    []LineItem      `json:"items" validate:"dive"`
	Total    decimal.Decimal `json:"total" validate:"gte=0"`

	// rawItems is the items array exactly as the client sent it.
	rawItems json.RawMessage
}

func (r *PlaceOrderRequest) UnmarshalJSON(b []byte) error {
	type request PlaceOrderRequest
	aux := struct {
		*request
		Items json.RawMessage `json:"items"`
	}{request: (*request)(r)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	r.Items, r.rawItems = nil, nil
	if len(aux.Items) == 0 || bytes.Equal(aux.Items, []byte("null")) {
		return nil
	}

	if err := json.Unmarshal(aux.Items, &r.Items); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, aux.Items); err != nil {
		return err
	}
	r.rawItems = buf.Bytes()
	return nil
}

type DeleteOrderRequest struct {
	ID handlerutils.ID `json:"id"`
}

// snapshotLine is one entry of items_json for requests built in code rather
// than decoded from a client body.
type snapshotLine struct {
	ID       int64        `json:"id"`
	Quantity json.Number  `json:"quantity"`
	Price    *json.Number `json:"price,omitempty"`
}
