package product

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/echoesonmars/tabys-back/internal/handlerutils"
	"github.com/echoesonmars/tabys-back/internal/servererrors"
	"github.com/echoesonmars/tabys-back/internal/validate"
	"github.com/go-chi/chi"
)

var errInvalidImages = errors.New("remainingImages must be a JSON array of urls")

type servicer interface {
	listProducts(ctx context.Context, visibility Visibility, filters url.Values) ([]*Product, error)
	getProduct(ctx context.Context, id int64) (*Product, error)
	cartItems(ctx context.Context, ids []int64) ([]*Product, error)
	createProduct(ctx context.Context, form *ProductForm, files []*multipart.FileHeader) (int64, error)
	updateProduct(ctx context.Context, id int64, form *ProductForm, files []*multipart.FileHeader) error
	deleteProduct(ctx context.Context, id int64, imageRef string) error
}

type middleware interface {
	ErrorHandler(h handlerutils.APIHandler) http.HandlerFunc
}

type HandlerConfig struct {
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

type handler struct {
	service    servicer
	middleware middleware
	cfg        HandlerConfig
}

func NewHandler(productService servicer, middleware middleware, cfg HandlerConfig) *handler {
	return &handler{
		service:    productService,
		middleware: middleware,
		cfg:        cfg,
	}
}

func (h *handler) RegisterRoutes(router chi.Router) {
	router.Get(
		"/products",
		h.middleware.ErrorHandler(
			h.listProductsHandler,
		),
	)

	router.Get(
		"/products/{id}",
		h.middleware.ErrorHandler(
			h.getProductHandler,
		),
	)

	router.Post(
		"/cart-items",
		h.middleware.ErrorHandler(
			h.cartItemsHandler,
		),
	)

	router.Post(
		"/products",
		h.middleware.ErrorHandler(
			h.createProductHandler,
		),
	)

	router.Post(
		"/products/edit/{id}",
		h.middleware.ErrorHandler(
			h.updateProductHandler,
		),
	)

	router.Post(
		"/products/delete",
		h.middleware.ErrorHandler(
			h.deleteProductHandler,
		),
	)
}

func (h *handler) listProductsHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.cfg.RequestTimeout,
	)
	defer cancel()

	queries := r.URL.Query()

	visibility := VisibilityCustomer
	if queries.Get("admin") == "true" {
		visibility = VisibilityAdmin
	}

	products, err := h.service.listProducts(ctx, visibility, queries)
	if err != nil {
		return err
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"all products retrieved",
		products,
	)
}

func (h *handler) getProductHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.cfg.RequestTimeout,
	)
	defer cancel()

	id := handlerutils.ParseID(chi.URLParam(r, "id"))

	product, err := h.service.getProduct(ctx, id.Int64())
	if err != nil {
		if errors.Is(err, servererrors.ErrProductNotFound) {
			return servererrors.New(
				http.StatusNotFound,
				servererrors.ErrProductNotFound.Error(),
				nil,
			)
		}
		return err
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"product found",
		product,
	)
}

func (h *handler) cartItemsHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.cfg.RequestTimeout,
	)
	defer cancel()

	var payload CartItemsRequest
	defer r.Body.Close()

	if err := handlerutils.ParseJSON(r, &payload); err != nil || payload.IDs == nil {
		return servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrInvalidRequestPayload.Error(),
			nil,
		)
	}

	ids := make([]int64, 0, len(payload.IDs))
	for _, id := range payload.IDs {
		ids = append(ids, id.Int64())
	}

	products, err := h.service.cartItems(ctx, ids)
	if err != nil {
		return err
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"cart items retrieved",
		products,
	)
}

func (h *handler) createProductHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.cfg.RequestTimeout,
	)
	defer cancel()

	form, files, err := h.parseProductForm(w, r, false)
	if err != nil {
		return err
	}

	id, err := h.service.createProduct(ctx, form, files)
	if err != nil {
		return writeErr(err)
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"product created",
		map[string]int64{"id": id},
	)
}

func (h *handler) updateProductHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.cfg.RequestTimeout,
	)
	defer cancel()

	id := handlerutils.ParseID(chi.URLParam(r, "id"))
	if id == 0 {
		return servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrMissingID.Error(),
			nil,
		)
	}

	form, files, err := h.parseProductForm(w, r, true)
	if err != nil {
		return err
	}

	if err := h.service.updateProduct(ctx, id.Int64(), form, files); err != nil {
		return writeErr(err)
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"product updated",
		nil,
	)
}

func (h *handler) deleteProductHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.cfg.RequestTimeout,
	)
	defer cancel()

	var payload DeleteProductRequest
	defer r.Body.Close()

	if err := handlerutils.ParseJSON(r, &payload); err != nil {
		return servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrInvalidRequestPayload.Error(),
			nil,
		)
	}

	if err := h.service.deleteProduct(ctx, payload.ID.Int64(), payload.Image); err != nil {
		return writeErr(err)
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"product deleted",
		nil,
	)
}

// parseProductForm reads the multipart admin form. remainingImages is only
// honoured on edit.
func (h *handler) parseProductForm(w http.ResponseWriter, r *http.Request, edit bool) (*ProductForm, []*multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)

	err := r.ParseMultipartForm(h.cfg.MaxUploadBytes)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrInvalidRequestPayload.Error(),
			nil,
		)
	}

	form := &ProductForm{
		Name:          handlerutils.FormString(r, "name"),
		NameKK:        handlerutils.FormString(r, "name_kk"),
		CategoryID:    handlerutils.FormOptionalInt64(r, "category_id"),
		Price:         handlerutils.FormDecimal(r, "price"),
		OldPrice:      handlerutils.FormOptionalDecimal(r, "old_price"),
		Unit:          handlerutils.FormString(r, "unit"),
		Stock:         handlerutils.FormDecimal(r, "stock"),
		Description:   handlerutils.FormString(r, "description"),
		DescriptionKK: handlerutils.FormString(r, "description_kk"),
	}

	// category 0 is how clients say "no category"
	if form.CategoryID.Valid && form.CategoryID.Int64 <= 0 {
		form.CategoryID.Valid = false
	}

	if edit {
		if raw := handlerutils.FormString(r, "remainingImages"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &form.Images); err != nil {
				return nil, nil, servererrors.New(
					http.StatusBadRequest,
					errInvalidImages.Error(),
					nil,
				)
			}
		}
	}

	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["imageFiles"]
	}

	return form, files, nil
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

	case errors.Is(err, servererrors.ErrProductNotFound):
		return servererrors.New(
			http.StatusNotFound,
			servererrors.ErrProductNotFound.Error(),
			nil,
		)

	case errors.Is(err, servererrors.ErrCategoryNotFound):
		return servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrCategoryNotFound.Error(),
			nil,
		)

	default:
		return err
	}
}
