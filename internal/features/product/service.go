package product

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/echoesonmars/tabys-back/internal/blob"
	"github.com/echoesonmars/tabys-back/internal/servererrors"
	"github.com/echoesonmars/tabys-back/internal/storage"
	"github.com/echoesonmars/tabys-back/internal/validate"
)

const imageKeyPrefix = "prod"

type storer interface {
	findAll(ctx context.Context, visibility Visibility, filters url.Values) ([]*Product, error)
	findByIDs(ctx context.Context, ids []int64) ([]*Product, error)
	findByID(ctx context.Context, id int64) (*Product, error)
	createOne(ctx context.Context, form *ProductForm, imagesJSON string) (int64, error)
	updateOne(ctx context.Context, id int64, form *ProductForm, imagesJSON string) (string, error)
	deleteOne(ctx context.Context, id int64) (string, error)
}

type service struct {
	store      storer
	blobs      blob.Store
	publicBase string
}

func NewService(store storer, blobs blob.Store, publicBase string) *service {
	return &service{
		store:      store,
		blobs:      blobs,
		publicBase: publicBase,
	}
}

func (s *service) listProducts(ctx context.Context, visibility Visibility, filters url.Values) ([]*Product, error) {
	return s.store.findAll(ctx, visibility, filters)
}

func (s *service) getProduct(ctx context.Context, id int64) (*Product, error) {
	if id <= 0 {
		return nil, servererrors.ErrProductNotFound
	}
	return s.store.findByID(ctx, id)
}

// cartItems returns the products behind a cart. Unusable ids are dropped.
func (s *service) cartItems(ctx context.Context, ids []int64) ([]*Product, error) {
	valid := ids[:0:0]
	for _, id := range ids {
		if id > 0 {
			valid = append(valid, id)
		}
	}

	if len(valid) == 0 {
		return []*Product{}, nil
	}
	return s.store.findByIDs(ctx, valid)
}

func (s *service) createProduct(ctx context.Context, form *ProductForm, files []*multipart.FileHeader) (int64, error) {
	if err := validate.StructFields(form); err != nil {
		return 0, err
	}

	uploaded, err := s.uploadImages(ctx, files)
	if err != nil {
		return 0, err
	}

	images := append(form.Images, uploaded...)
	id, err := s.store.createOne(ctx, form, encodeImages(images))
	if err != nil {
		blob.Reclaim(ctx, s.blobs, uploaded...)
		return 0, classifyWriteErr(err)
	}

	return id, nil
}

// updateProduct replaces the product. Images no longer referenced are
// reclaimed after the row is written.
func (s *service) updateProduct(ctx context.Context, id int64, form *ProductForm, files []*multipart.FileHeader) error {
	if id <= 0 {
		return servererrors.ErrMissingID
	}

	if err := validate.StructFields(form); err != nil {
		return err
	}

	uploaded, err := s.uploadImages(ctx, files)
	if err != nil {
		return err
	}

	images := append(form.Images, uploaded...)
	oldImages, err := s.store.updateOne(ctx, id, form, encodeImages(images))
	if err != nil {
		blob.Reclaim(ctx, s.blobs, uploaded...)
		return classifyWriteErr(err)
	}

	blob.Reclaim(ctx, s.blobs, dropped(decodeImages(oldImages), images)...)

	return nil
}

// deleteProduct removes the row, then reclaims the given image and every image
// the row referenced. Reclamation never fails the delete.
func (s *service) deleteProduct(ctx context.Context, id int64, imageRef string) error {
	if id <= 0 {
		return servererrors.ErrMissingID
	}

	images, err := s.store.deleteOne(ctx, id)
	if err != nil {
		return err
	}

	blob.Reclaim(ctx, s.blobs, append([]string{imageRef}, decodeImages(images)...)...)

	return nil
}

func (s *service) uploadImages(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		u, err := blob.Upload(ctx, s.blobs, s.publicBase, imageKeyPrefix, fh)
		if err != nil {
			blob.Reclaim(ctx, s.blobs, urls...)
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func classifyWriteErr(err error) error {
	if storage.IsForeignKeyViolation(err) {
		return servererrors.ErrCategoryNotFound
	}
	return err
}

func encodeImages(images []string) string {
	if images == nil {
		images = []string{}
	}
	b, _ := json.Marshal(images)
	return string(b)
}

// decodeImages reads a stored image list. Anything that is not a JSON array
// is treated as a single reference.
func decodeImages(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var images []string
	if err := json.Unmarshal([]byte(raw), &images); err != nil {
		return []string{raw}
	}
	return images
}

func dropped(before, after []string) []string {
	keep := make(map[string]bool, len(after))
	for _, a := range after {
		keep[a] = true
	}

	var out []string
	for _, b := range before {
		if !keep[b] {
			out = append(out, b)
		}
	}
	return out
}
