package order

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/echoesonmars/tabys-back/internal/handlerutils"
	"github.com/echoesonmars/tabys-back/internal/servererrors"
	"github.com/echoesonmars/tabys-back/internal/validate"
	"github.com/go-chi/chi"
)

const idempotencyHeader = "Idempotency-Key"

type servicer interface {
	placeOrder(ctx context.Context, idempotencyKey string, req *PlaceOrderRequest) (*Placement, error)
	getAllOrders(ctx context.Context) ([]*Order, error)
	deleteOrder(ctx context.Context, id int64) error
}

type middleware interface {
	ErrorHandler(h handlerutils.APIHandler) http.HandlerFunc
}

type handler struct {
	service        servicer
	middleware     middleware
	requestTimeout time.Duration
}

func NewHandler(orderService servicer, middleware middleware, requestTimeout time.Duration) *handler {
	return &handler{
		service:        orderService,
		middleware:     middleware,
		requestTimeout: requestTimeout,
	}
}

func (h *handler) RegisterRoutes(router chi.Router) {
	router.Post(
		"/create-order",
		h.middleware.ErrorHandler(
			h.placeOrderHandler,
		),
	)

	router.Get(
		"/orders",
		h.middleware.ErrorHandler(
			h.getAllOrdersHandler,
		),
	)

	router.Post(
		"/orders/delete",
		h.middleware.ErrorHandler(
			h.deleteOrderHandler,
		),
	)
}

func (h *handler) placeOrderHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.requestTimeout,
	)
	defer cancel()

	var payload PlaceOrderRequest
	defer r.Body.Close()

	if err := handlerutils.ParseJSON(r, &payload); err != nil {
		return servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrInvalidRequestPayload.Error(),
			nil,
		)
	}

	placement, err := h.service.placeOrder(
		ctx,
		strings.TrimSpace(r.Header.Get(idempotencyHeader)),
		&payload,
	)
	if err != nil {
		var fieldErrs validate.FieldErrors
		var stockErr *StockError

		switch {
		case errors.Is(err, servererrors.ErrEmptyCart):
			return servererrors.New(
				http.StatusBadRequest,
				servererrors.ErrEmptyCart.Error(),
				nil,
			)

		case errors.As(err, &fieldErrs):
			return servererrors.New(
				http.StatusBadRequest,
				servererrors.ErrValidationFailed.Error(),
				fieldErrs,
			)

		case errors.As(err, &stockErr):
			return servererrors.New(
				http.StatusConflict,
				servererrors.ErrInsufficientStock.Error(),
				stockErr.Lines,
			)

		case errors.Is(err, servererrors.ErrDuplicateSubmission):
			return servererrors.New(
				http.StatusConflict,
				servererrors.ErrDuplicateSubmission.Error(),
				nil,
			)

		case errors.Is(err, servererrors.ErrStoreTimeout):
			return servererrors.New(
				http.StatusServiceUnavailable,
				servererrors.ErrStoreTimeout.Error(),
				nil,
			)

		default:
			return err
		}
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"order placed",
		placement,
	)
}

func (h *handler) getAllOrdersHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.requestTimeout,
	)
	defer cancel()

	orders, err := h.service.getAllOrders(ctx)
	if err != nil {
		return err
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"all orders retrieved",
		orders,
	)
}

func (h *handler) deleteOrderHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.requestTimeout,
	)
	defer cancel()

	var payload DeleteOrderRequest
	defer r.Body.Close()

	if err := handlerutils.ParseJSON(r, &payload); err != nil {
		return servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrInvalidRequestPayload.Error(),
			nil,
		)
	}

	err := h.service.deleteOrder(ctx, payload.ID.Int64())
	if err != nil {
		switch {
		case errors.Is(err, servererrors.ErrMissingID):
			return servererrors.New(
				http.StatusBadRequest,
				servererrors.ErrMissingID.Error(),
				nil,
			)

		case errors.Is(err, servererrors.ErrOrderNotFound):
			return servererrors.New(
				http.StatusNotFound,
				servererrors.ErrOrderNotFound.Error(),
				nil,
			)

		default:
			return err
		}
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"order deleted",
		nil,
	)
}
