package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	"github.com/echoesonmars/tabys-back/internal/servererrors"
	"github.com/lib/pq"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	var categoryID sql.NullInt64

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.NameKK,
		&p.Price,
		&p.OldPrice,
		&p.Unit,
		&p.Image,
		&p.Description,
		&p.DescriptionKK,
		&p.Stock,
		&categoryID,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		p.CategoryID = &categoryID.Int64
	}
	return &p, nil
}

func (s *Store) queryProducts(ctx context.Context, query string, args ...any) ([]*Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get products from product store: %w",
			err,
		)
	}
	defer rows.Close()

	products := []*Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to scan product from product store: %w",
				err,
			)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

func (s *Store) findAll(ctx context.Context, visibility Visibility, filters url.Values) ([]*Product, error) {
	query, params := buildListingQuery(visibility, filters)
	return s.queryProducts(ctx, query, params...)
}

func (s *Store) findByIDs(ctx context.Context, ids []int64) ([]*Product, error) {
	return s.queryProducts(
		ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id DESC`,
		pq.Array(ids),
	)
}

func (s *Store) findByID(ctx context.Context, id int64) (*Product, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`,
		id,
	)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, servererrors.ErrProductNotFound
		}
		return nil, fmt.Errorf(
			"failed to get product from product store: %w",
			err,
		)
	}

	return p, nil
}

func (s *Store) createOne(ctx context.Context, form *ProductForm, imagesJSON string) (int64, error) {
	query := `INSERT INTO products (name, name_kk, category_id, price, old_price, unit, image, description, description_kk, stock)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`

	var id int64
	err := s.db.QueryRowContext(
		ctx,
		query,
		form.Name,
		form.NameKK,
		form.CategoryID,
		form.Price,
		form.OldPrice,
		form.Unit,
		imagesJSON,
		form.Description,
		form.DescriptionKK,
		form.Stock,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf(
			"failed to insert new product in product store: %w",
			err,
		)
	}

	return id, nil
}

// updateOne overwrites product id and returns the image list it had before.
func (s *Store) updateOne(ctx context.Context, id int64, form *ProductForm, imagesJSON string) (string, error) {
	query := `WITH old AS (SELECT id, image FROM products WHERE id = $11 FOR UPDATE)
UPDATE products p SET name = $1, name_kk = $2, category_id = $3, price = $4, old_price = $5, unit = $6,
	image = $7, description = $8, description_kk = $9, stock = $10
FROM old WHERE p.id = old.id
RETURNING old.image`

	var oldImages string
	err := s.db.QueryRowContext(
		ctx,
		query,
		form.Name,
		form.NameKK,
		form.CategoryID,
		form.Price,
		form.OldPrice,
		form.Unit,
		imagesJSON,
		form.Description,
		form.DescriptionKK,
		form.Stock,
		id,
	).Scan(&oldImages)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", servererrors.ErrProductNotFound
		}
		return "", fmt.Errorf(
			"failed to update product in product store: %w",
			err,
		)
	}

	return oldImages, nil
}

// deleteOne removes product id and returns its image list.
func (s *Store) deleteOne(ctx context.Context, id int64) (string, error) {
	var images string
	err := s.db.QueryRowContext(
		ctx,
		`DELETE FROM products WHERE id = $1 RETURNING image`,
		id,
	).Scan(&images)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", servererrors.ErrProductNotFound
		}
		return "", fmt.Errorf(
			"failed to delete product from product store: %w",
			err,
		)
	}

	return images, nil
}
