package promo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/echoesonmars/tabys-back/internal/servererrors"
)

const promoColumns = `id, code, discount, is_active`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db: db,
	}
}

// findActiveByCode matches code against the trimmed, upper-cased stored code.
func (s *Store) findActiveByCode(ctx context.Context, code string) (*Promo, error) {
	var p Promo

	err := s.db.QueryRowContext(
		ctx,
		`SELECT `+promoColumns+` FROM promocodes
		WHERE UPPER(TRIM(code)) = $1 AND is_active
		LIMIT 1`,
		code,
	).Scan(
		&p.ID,
		&p.Code,
		&p.Discount,
		&p.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, servererrors.ErrPromoNotFound
		}
		return nil, fmt.Errorf(
			"failed to get promo from promo store: %w",
			err,
		)
	}

	return &p, nil
}

func (s *Store) findAll(ctx context.Context) ([]*Promo, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+promoColumns+` FROM promocodes ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get promos from promo store: %w",
			err,
		)
	}
	defer rows.Close()

	promos := []*Promo{}
	for rows.Next() {
		var p Promo
		if err := rows.Scan(
			&p.ID,
			&p.Code,
			&p.Discount,
			&p.IsActive,
		); err != nil {
			return nil, fmt.Errorf(
				"failed to scan promo from promo store: %w",
				err,
			)
		}
		promos = append(promos, &p)
	}

	return promos, rows.Err()
}

func (s *Store) createOne(ctx context.Context, code string, discount int) (int64, error) {
	var id int64

	err := s.db.QueryRowContext(
		ctx,
		`INSERT INTO promocodes (code, discount, is_active)
		VALUES ($1, $2, true)
		RETURNING id`,
		code,
		discount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf(
			"failed to create promo in promo store: %w",
			err,
		)
	}

	return id, nil
}

func (s *Store) deleteOne(ctx context.Context, id int64) (int64, error) {
	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM promocodes WHERE id = $1`,
		id,
	)
	if err != nil {
		return 0, fmt.Errorf(
			"failed to delete promo from promo store: %w",
			err,
		)
	}

	return result.RowsAffected()
}
