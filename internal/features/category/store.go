package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/echoesonmars/tabys-back/internal/servererrors"
	"github.com/echoesonmars/tabys-back/internal/storage"
)

const categoryColumns = `id, parent_id, name, name_kk, slug, image`

// treeLockKey serializes category tree writes so two concurrent edits cannot
// close a cycle between them.
const treeLockKey int64 = 0x7461627973

const ancestryQuery = `WITH RECURSIVE ancestors(id, parent_id, depth) AS (
	SELECT id, parent_id, 1 FROM categories WHERE id = $1
	UNION ALL
	SELECT c.id, c.parent_id, a.depth + 1
	FROM categories c
	JOIN ancestors a ON c.id = a.parent_id
	WHERE a.depth <= $2 AND a.id <> $3
)
SELECT COUNT(*), COALESCE(BOOL_OR(id = $3), false), COALESCE(MAX(depth), 0) FROM ancestors`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db: db,
	}
}

func scanCategory(row interface{ Scan(dest ...any) error }) (*Category, error) {
	var c Category
	var parentID sql.NullInt64

	if err := row.Scan(
		&c.ID,
		&parentID,
		&c.Name,
		&c.NameKK,
		&c.Slug,
		&c.Image,
	); err != nil {
		return nil, err
	}

	if parentID.Valid {
		c.ParentID = &parentID.Int64
	}
	return &c, nil
}

func (s *Store) findAll(ctx context.Context) ([]*Category, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get categories from category store: %w",
			err,
		)
	}
	defer rows.Close()

	categories := []*Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to scan category from category store: %w",
				err,
			)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

func (s *Store) findByID(ctx context.Context, id int64) (*Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(
		ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, servererrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf(
			"failed to get category from category store: %w",
			err,
		)
	}

	return c, nil
}

func (s *Store) createOne(ctx context.Context, form *CategoryForm, maxDepth int) (int64, error) {
	var id int64

	err := s.inTreeTx(ctx, func(tx *sql.Tx) error {
		if err := checkParent(ctx, tx, 0, form.ParentID, maxDepth); err != nil {
			return err
		}

		return tx.QueryRowContext(
			ctx,
			`INSERT INTO categories (name, name_kk, slug, parent_id, image)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			form.Name,
			form.NameKK,
			form.Slug,
			form.ParentID,
			form.Image,
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf(
			"failed to create category in category store: %w",
			err,
		)
	}

	return id, nil
}

// updateOne rewrites the category and returns the image it referenced before.
func (s *Store) updateOne(ctx context.Context, id int64, form *CategoryForm, maxDepth int) (string, error) {
	var oldImage string

	err := s.inTreeTx(ctx, func(tx *sql.Tx) error {
		if err := checkParent(ctx, tx, id, form.ParentID, maxDepth); err != nil {
			return err
		}

		err := tx.QueryRowContext(
			ctx,
			`WITH old AS (
				SELECT id, image FROM categories WHERE id = $6 FOR UPDATE
			)
			UPDATE categories c
			SET name = $1, name_kk = $2, slug = $3, parent_id = $4, image = $5
			FROM old
			WHERE c.id = old.id
			RETURNING old.image`,
			form.Name,
			form.NameKK,
			form.Slug,
			form.ParentID,
			form.Image,
			id,
		).Scan(&oldImage)
		if errors.Is(err, sql.ErrNoRows) {
			return servererrors.ErrCategoryNotFound
		}
		return err
	})
	if err != nil {
		return "", fmt.Errorf(
			"failed to update category in category store: %w",
			err,
		)
	}

	return oldImage, nil
}

// deleteOne removes the category and returns its image. Children and products
// keep existing with their reference cleared.
func (s *Store) deleteOne(ctx context.Context, id int64) (string, error) {
	var image string

	err := s.db.QueryRowContext(
		ctx,
		`DELETE FROM categories WHERE id = $1 RETURNING image`,
		id,
	).Scan(&image)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", servererrors.ErrCategoryNotFound
		}
		return "", fmt.Errorf(
			"failed to delete category from category store: %w",
			err,
		)
	}

	return image, nil
}

func (s *Store) inTreeTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, treeLockKey); err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// checkParent walks the ancestors of parentID in one query. id is the category
// being written, zero on create.
func checkParent(ctx context.Context, q storage.Querier, id int64, parentID sql.NullInt64, maxDepth int) error {
	if !parentID.Valid {
		return nil
	}
	if parentID.Int64 == id {
		return servererrors.ErrCategoryCycle
	}

	var (
		found    int64
		cycle    bool
		maxFound int64
	)
	err := q.QueryRowContext(
		ctx,
		ancestryQuery,
		parentID.Int64,
		maxDepth,
		id,
	).Scan(&found, &cycle, &maxFound)
	if err != nil {
		return err
	}

	switch {
	case found == 0:
		return servererrors.ErrParentNotFound
	case cycle:
		return servererrors.ErrCategoryCycle
	case maxFound >= int64(maxDepth):
		return servererrors.ErrCategoryTooDeep
	}

	return nil
}
