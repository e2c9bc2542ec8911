package order

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/echoesonmars/tabys-back/internal/middlewares"
	"github.com/echoesonmars/tabys-back/internal/obs"
	"github.com/echoesonmars/tabys-back/internal/servererrors"
	"github.com/echoesonmars/tabys-back/internal/validate"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	key       string
	req       *PlaceOrderRequest
	err       error
	deletedID int64
}

func (f *fakeService) placeOrder(ctx context.Context, key string, req *PlaceOrderRequest) (*Placement, error) {
	f.key = key
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &Placement{OrderID: 3, Lines: []LineResult{{ProductID: 7, Requested: req.Items[0].Quantity, Outcome: Decremented}}}, nil
}

func (f *fakeService) getAllOrders(ctx context.Context) ([]*Order, error) {
	return []*Order{{ID: 1, Status: StatusNew}}, nil
}

func (f *fakeService) deleteOrder(ctx context.Context, id int64) error {
	f.deletedID = id
	if id == 0 {
		return servererrors.ErrMissingID
	}
	return nil
}

func newRouter(svc servicer) *chi.Mux {
	r := chi.NewRouter()
	NewHandler(svc, middlewares.NewMiddleware(obs.Logger), time.Second).RegisterRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPlaceOrderHandlerAcceptsStringIDs(t *testing.T) {
	svc := &fakeService{}
	body := `{"customer":{"name":"Aigerim","phone":"+7701","address":"Abay 1"},"items":[{"id":"7","quantity":2}],"total":500}`

	rec := do(t, newRouter(svc), http.MethodPost, "/create-order", body, map[string]string{"Idempotency-Key": " k1 "})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Equal(t, "k1", svc.key)
	assert.Equal(t, int64(7), svc.req.Items[0].ID.Int64())
	assert.True(t, svc.req.Items[0].Quantity.Equal(decimal.NewFromInt(2)))
}

func TestPlaceOrderHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		text   string
	}{
		{"malformed json", `{"items":`, nil, http.StatusBadRequest, "invalid request payload"},
		{"malformed quantity", `{"items":[{"id":1,"quantity":"lots"}]}`, nil, http.StatusBadRequest, "invalid request payload"},
		{"empty cart", `{}`, servererrors.ErrEmptyCart, http.StatusBadRequest, "order has no items"},
		{"invalid fields", `{}`, validate.FieldErrors{"items[0].quantity": "must be greater than 0"}, http.StatusBadRequest, "items[0].quantity"},
		{"insufficient stock", `{}`, &StockError{Lines: []LineResult{{ProductID: 7, Outcome: InsufficientStock}}}, http.StatusConflict, "InsufficientStock"},
		{"duplicate", `{}`, servererrors.ErrDuplicateSubmission, http.StatusConflict, "already submitted"},
		{"timeout", `{}`, servererrors.ErrStoreTimeout, http.StatusServiceUnavailable, "retry later"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newRouter(&fakeService{err: tt.err}), http.MethodPost, "/create-order", tt.body, nil)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.text)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestGetAllOrdersHandler(t *testing.T) {
	rec := do(t, newRouter(&fakeService{}), http.MethodGet, "/orders", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"new"`)
}

func TestDeleteOrderHandler(t *testing.T) {
	svc := &fakeService{}

	rec := do(t, newRouter(svc), http.MethodPost, "/orders/delete", `{"id":"12"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(12), svc.deletedID)

	rec = do(t, newRouter(svc), http.MethodPost, "/orders/delete", `{"id":"abc"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
