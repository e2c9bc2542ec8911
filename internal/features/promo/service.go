package promo

import (
	"context"
	"strings"

	"github.com/echoesonmars/tabys-back/internal/servererrors"
	"github.com/echoesonmars/tabys-back/internal/storage"
	"github.com/echoesonmars/tabys-back/internal/validate"
)

type storer interface {
	findActiveByCode(ctx context.Context, code string) (*Promo, error)
	findAll(ctx context.Context) ([]*Promo, error)
	createOne(ctx context.Context, code string, discount int) (int64, error)
	deleteOne(ctx context.Context, id int64) (int64, error)
}

type service struct {
	store storer
}

func NewService(store storer) *service {
	return &service{
		store: store,
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) checkPromo(ctx context.Context, code string) (*Promo, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, servererrors.ErrPromoNotFound
	}
	return s.store.findActiveByCode(ctx, code)
}

func (s *service) getAllPromos(ctx context.Context) ([]*Promo, error) {
	return s.store.findAll(ctx)
}

func (s *service) createPromo(ctx context.Context, req *CreatePromoRequest) (int64, error) {
	req.Code = normalizeCode(req.Code)
	if err := validate.StructFields(req); err != nil {
		return 0, err
	}

	id, err := s.store.createOne(ctx, req.Code, req.Discount)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return 0, servererrors.ErrPromoAlreadyExists
		}
		return 0, err
	}

	return id, nil
}

func (s *service) deletePromo(ctx context.Context, id int64) error {
	if id <= 0 {
		return servererrors.ErrMissingID
	}

	rows, err := s.store.deleteOne(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return servererrors.ErrPromoNotFound
	}

	return nil
}
