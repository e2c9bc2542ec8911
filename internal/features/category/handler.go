package category

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/echoesonmars/tabys-back/internal/handlerutils"
	"github.com/echoesonmars/tabys-back/internal/servererrors"
	"github.com/echoesonmars/tabys-back/internal/validate"
	"github.com/go-chi/chi"
)

type servicer interface {
	listCategories(ctx context.Context) ([]*Category, error)
	getCategory(ctx context.Context, id int64) (*Category, error)
	createCategory(ctx context.Context, form *CategoryForm, file *multipart.FileHeader) (int64, error)
	updateCategory(ctx context.Context, id int64, form *CategoryForm, file *multipart.FileHeader) error
	deleteCategory(ctx context.Context, id int64, imageRef string) error
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

func NewHandler(categoryService servicer, middleware middleware, cfg HandlerConfig) *handler {
	return &handler{
		service:    categoryService,
		middleware: middleware,
		cfg:        cfg,
	}
}

func (h *handler) RegisterRoutes(router chi.Router) {
	router.Get(
		"/categories",
		h.middleware.ErrorHandler(
			h.listCategoriesHandler,
		),
	)

	router.Get(
		"/categories/{id}",
		h.middleware.ErrorHandler(
			h.getCategoryHandler,
		),
	)

	router.Post(
		"/categories",
		h.middleware.ErrorHandler(
			h.createCategoryHandler,
		),
	)

	router.Post(
		"/categories/edit/{id}",
		h.middleware.ErrorHandler(
			h.updateCategoryHandler,
		),
	)

	router.Post(
		"/categories/delete",
		h.middleware.ErrorHandler(
			h.deleteCategoryHandler,
		),
	)
}

func (h *handler) listCategoriesHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.cfg.RequestTimeout,
	)
	defer cancel()

	categories, err := h.service.listCategories(ctx)
	if err != nil {
		return err
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"all categories retrieved",
		categories,
	)
}

func (h *handler) getCategoryHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.cfg.RequestTimeout,
	)
	defer cancel()

	id := handlerutils.ParseID(chi.URLParam(r, "id"))

	category, err := h.service.getCategory(ctx, id.Int64())
	if err != nil {
		return writeErr(err)
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"category found",
		category,
	)
}

func (h *handler) createCategoryHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.cfg.RequestTimeout,
	)
	defer cancel()

	form, file, err := h.parseCategoryForm(w, r, false)
	if err != nil {
		return err
	}

	id, err := h.service.createCategory(ctx, form, file)
	if err != nil {
		return writeErr(err)
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"category created",
		map[string]int64{"id": id},
	)
}

func (h *handler) updateCategoryHandler(w http.ResponseWriter, r *http.Request) error {
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

	form, file, err := h.parseCategoryForm(w, r, true)
	if err != nil {
		return err
	}

	if err := h.service.updateCategory(ctx, id.Int64(), form, file); err != nil {
		return writeErr(err)
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"category updated",
		nil,
	)
}

func (h *handler) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(
		r.Context(),
		h.cfg.RequestTimeout,
	)
	defer cancel()

	var payload DeleteCategoryRequest
	defer r.Body.Close()

	if err := handlerutils.ParseJSON(r, &payload); err != nil {
		return servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrInvalidRequestPayload.Error(),
			nil,
		)
	}

	if err := h.service.deleteCategory(ctx, payload.ID.Int64(), payload.Image); err != nil {
		return writeErr(err)
	}

	return handlerutils.WriteSuccessJSON(
		w,
		http.StatusOK,
		"category deleted",
		nil,
	)
}

// parseCategoryForm reads the multipart admin form. current_image is only
// honoured on edit.
func (h *handler) parseCategoryForm(w http.ResponseWriter, r *http.Request, edit bool) (*CategoryForm, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)

	err := r.ParseMultipartForm(h.cfg.MaxUploadBytes)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrInvalidRequestPayload.Error(),
			nil,
		)
	}

	form := &CategoryForm{
		Name:     handlerutils.FormString(r, "name"),
		NameKK:   handlerutils.FormString(r, "name_kk"),
		Slug:     handlerutils.FormString(r, "slug"),
		ParentID: handlerutils.FormOptionalInt64(r, "parent_id"),
	}

	if form.ParentID.Valid && form.ParentID.Int64 <= 0 {
		form.ParentID.Valid = false
	}

	if edit {
		form.Image = handlerutils.FormString(r, "current_image")
	}

	var file *multipart.FileHeader
	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["imageFile"]; len(files) > 0 {
			file = files[0]
		}
	}

	return form, file, nil
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

	case errors.Is(err, servererrors.ErrCategoryNotFound):
		return servererrors.New(
			http.StatusNotFound,
			servererrors.ErrCategoryNotFound.Error(),
			nil,
		)

	case errors.Is(err, servererrors.ErrSlugAlreadyExists):
		return servererrors.New(
			http.StatusConflict,
			servererrors.ErrSlugAlreadyExists.Error(),
			nil,
		)

	case errors.Is(err, servererrors.ErrParentNotFound):
		return servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrParentNotFound.Error(),
			nil,
		)

	case errors.Is(err, servererrors.ErrCategoryCycle):
		return servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrCategoryCycle.Error(),
			nil,
		)

	case errors.Is(err, servererrors.ErrCategoryTooDeep):
		return servererrors.New(
			http.StatusBadRequest,
			servererrors.ErrCategoryTooDeep.Error(),
			nil,
		)

	default:
		return err
	}
}
