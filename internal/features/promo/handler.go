package promo

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/echoesonmars/tabys-back/internal/handlerutils"
	"github.com/echoesonmars/tabys-back/internal/servererrors"
	"github.com/echoesonmars/tabys-back/internal/validate"
	"github.com/go-chi/chi"
)

type servicer interface {
	checkPromo(ctx context.Context, code string) (*Promo, error)
	getAllPromos(ctx context.Context) ([]*Promo, error)
	createPromo(ctx context.Context, req *CreatePromoRequest) (int64, error)
	deletePromo(ctx context.Context, id int64) error
}

type middleware interface {
	ErrorHandler(h handlerutils.APIHandler) http.HandlerFunc
}

type handler struct {
	service        servicer
	middleware     middleware
	requestTimeout time.Duration
}

func NewHandler(promoService servicer, middleware middleware, requestTimeout time.Duration) *handler {
	return &handler{
		service:        promoService,
		middleware:     middleware,
		requestTimeout: requestTimeout,
	}
}

func (h *handler) RegisterRoutes(router chi.Router) {
	router.Post(
		"/check-promo",
		h.middleware.ErrorHandler(
			h.checkPromoHandler,
		),
	)

	router.Route("/admin/promos", func(r chi.Router) {
		r.Get(
			"/",
			h.middleware.ErrorHandler(
				h.getAllPromosHandler,
			),
		)

		r.Post(
			"/",
			h.middleware.ErrorHandler(
				h.createPromoHandler,
			),
		)

		r.Delete(
			"/{id}",
			h.middleware.ErrorHandler(
				h.deletePromoHandler,
			),
		)
	})
}

func (h *handler) checkPromoHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.requestTimeout,
	)
	defer cancel()

	var payload CheckPromoRequest
	defer r.Body.Close()

	if err := handlerutils.ParseJSON(r, &payload); err != nil {
		return servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrInvalidRequestPayload.Error(),
			nil,
		)
	}

	promo, err := h.service.checkPromo(ctx, payload.Code)
	if err != nil {
		return writeErr(err)
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"promo code is valid",
		promo,
	)
}

func (h *handler) getAllPromosHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.requestTimeout,
	)
	defer cancel()

	promos, err := h.service.getAllPromos(ctx)
	if err != nil {
		return err
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"all promos retrieved",
		promos,
	)
}

func (h *handler) createPromoHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.requestTimeout,
	)
	defer cancel()

	var payload CreatePromoRequest
	defer r.Body.Close()

	if err := handlerutils.ParseJSON(r, &payload); err != nil {
		return servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrInvalidRequestPayload.Error(),
			nil,
		)
	}

	id, err := h.service.createPromo(ctx, &payload)
	if err != nil {
		return writeErr(err)
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"promo created",
		map[string]int64{"id": id},
	)
}

func (h *handler) deletePromoHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.requestTimeout,
	)
	defer cancel()

	id := handlerutils.ParseID(chi.URLParam(r, "id"))

	if err := h.service.deletePromo(ctx, id.Int64()); err != nil {
		return writeErr(err)
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"promo deleted",
		nil,
	)
}

func writeErr(err error) error {
	var fieldErrs validate.FieldErrors

	switch {
	case errors.As(err, &fieldErrs):
		return servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrValidationFailed.Error(),
			fieldErrs,
		)

	case errors.Is(err, servererrors.ErrMissingID):
		return servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrMissingID.Error(),
			nil,
		)

	case errors.Is(err, servererrors.ErrPromoNotFound):
		return servererrors.New(
			http.StatusNotFound,
			servererrors.ErrPromoNotFound.Error(),
			nil,
		)

	case errors.Is(err, servererrors.ErrPromoAlreadyExists):
		return servererrors.New(
			http.StatusConflict,
			servererrors.ErrPromoAlreadyExists.Error(),
			nil,
		)

	default:
		return err
	}
}
