package category

import (
	"context"
	"mime/multipart"
	"strings"

	"github.com/echoesonmars/tabys-back/internal/blob"
	"github.com/echoesonmars/tabys-back/internal/cache"
	"github.com/echoesonmars/tabys-back/internal/servererrors"
	"github.com/echoesonmars/tabys-back/internal/storage"
	"github.com/echoesonmars/tabys-back/internal/validate"
)

const (
	imageKeyPrefix = "cat"
	listCacheKey   = "all"
)

type storer interface {
	findAll(ctx context.Context) ([]*Category, error)
	findByID(ctx context.Context, id int64) (*Category, error)
	createOne(ctx context.Context, form *CategoryForm, maxDepth int) (int64, error)
	updateOne(ctx context.Context, id int64, form *CategoryForm, maxDepth int) (string, error)
	deleteOne(ctx context.Context, id int64) (string, error)
}

type ServiceConfig struct {
	Blobs      blob.Store
	Cache      *cache.Cache
	PublicBase string
	MaxDepth   int
}

type service struct {
	store storer
	cfg   ServiceConfig
}

func NewService(store storer, cfg ServiceConfig) *service {
	return &service{
		store: store,
		cfg:   cfg,
	}
}

func (s *service) listCategories(ctx context.Context) ([]*Category, error) {
	return cache.Fetch(ctx, s.cfg.Cache, listCacheKey, s.store.findAll)
}

func (s *service) getCategory(ctx context.Context, id int64) (*Category, error) {
	if id <= 0 {
		return nil, servererrors.ErrCategoryNotFound
	}
	return s.store.findByID(ctx, id)
}

func (s *service) createCategory(ctx context.Context, form *CategoryForm, file *multipart.FileHeader) (int64, error) {
	normalize(form)
	if err := validate.StructFields(form); err != nil {
		return 0, err
	}

	uploaded, err := s.upload(ctx, file)
	if err != nil {
		return 0, err
	}
	if uploaded != "" {
		form.Image = uploaded
	}

	id, err := s.store.createOne(ctx, form, s.cfg.MaxDepth)
	if err != nil {
		blob.Reclaim(ctx, s.cfg.Blobs, uploaded)
		return 0, classifyWriteErr(err)
	}

	s.cfg.Cache.Invalidate(ctx, listCacheKey)

	return id, nil
}

// updateCategory rewrites the category. A replaced image is reclaimed once the
// row no longer references it.
func (s *service) updateCategory(ctx context.Context, id int64, form *CategoryForm, file *multipart.FileHeader) error {
	if id <= 0 {
		return servererrors.ErrMissingID
	}

	normalize(form)
	if err := validate.StructFields(form); err != nil {
		return err
	}

	uploaded, err := s.upload(ctx, file)
	if err != nil {
		return err
	}
	if uploaded != "" {
		form.Image = uploaded
	}

	oldImage, err := s.store.updateOne(ctx, id, form, s.cfg.MaxDepth)
	if err != nil {
		blob.Reclaim(ctx, s.cfg.Blobs, uploaded)
		return classifyWriteErr(err)
	}

	s.cfg.Cache.Invalidate(ctx, listCacheKey)

	if oldImage != form.Image {
		blob.Reclaim(ctx, s.cfg.Blobs, oldImage)
	}

	return nil
}

func (s *service) deleteCategory(ctx context.Context, id int64, imageRef string) error {
	if id <= 0 {
		return servererrors.ErrMissingID
	}

	image, err := s.store.deleteOne(ctx, id)
	if err != nil {
		return err
	}

	s.cfg.Cache.Invalidate(ctx, listCacheKey)
	blob.Reclaim(ctx, s.cfg.Blobs, imageRef, image)

	return nil
}

func (s *service) upload(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if file == nil || file.Size == 0 {
		return "", nil
	}
	return blob.Upload(ctx, s.cfg.Blobs, s.cfg.PublicBase, imageKeyPrefix, file)
}

func normalize(form *CategoryForm) {
	form.Name = strings.TrimSpace(form.Name)
	form.NameKK = strings.TrimSpace(form.NameKK)
	form.Slug = strings.ToLower(strings.TrimSpace(form.Slug))
}

func classifyWriteErr(err error) error {
	switch {
	case storage.IsUniqueViolation(err):
		return servererrors.ErrSlugAlreadyExists
	case storage.IsForeignKeyViolation(err):
		return servererrors.ErrParentNotFound
	}
	return err
}
