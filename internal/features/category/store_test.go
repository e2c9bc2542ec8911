package category

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/echoesonmars/tabys-back/internal/servererrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const maxDepth = 4

func newStoreMock(t *testing.T) (*Store, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), db, mock
}

func ancestryRows(found int64, cycle bool, depth int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count", "cycle", "depth"}).AddRow(found, cycle, depth)
}

func TestCheckParent(t *testing.T) {
	tests := []struct {
		name    string
		id      int64
		rows    *sqlmock.Rows
		wantErr error
	}{
		{name: "parent exists", id: 0, rows: ancestryRows(2, false, 2)},
		{name: "missing parent", id: 0, rows: ancestryRows(0, false, 0), wantErr: servererrors.ErrParentNotFound},
		{name: "parent is a descendant", id: 9, rows: ancestryRows(3, true, 3), wantErr: servererrors.ErrCategoryCycle},
		{name: "tree too deep", id: 0, rows: ancestryRows(maxDepth, false, maxDepth), wantErr: servererrors.ErrCategoryTooDeep},
		{name: "one below the limit", id: 0, rows: ancestryRows(maxDepth-1, false, maxDepth-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, db, mock := newStoreMock(t)

			mock.ExpectQuery(`WITH RECURSIVE ancestors`).
				WithArgs(int64(5), maxDepth, tt.id).
				WillReturnRows(tt.rows)

			err := checkParent(context.Background(), db, tt.id, sql.NullInt64{Int64: 5, Valid: true}, maxDepth)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCheckParentWithoutQuery(t *testing.T) {
	_, db, mock := newStoreMock(t)

	assert.NoError(t, checkParent(context.Background(), db, 3, sql.NullInt64{}, maxDepth))
	assert.ErrorIs(t, checkParent(context.Background(), db, 3, sql.NullInt64{Int64: 3, Valid: true}, maxDepth), servererrors.ErrCategoryCycle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOneRollsBackOnMissingParent(t *testing.T) {
	s, _, mock := newStoreMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(treeLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`WITH RECURSIVE ancestors`).WillReturnRows(ancestryRows(0, false, 0))
	mock.ExpectRollback()

	_, err := s.createOne(context.Background(), &CategoryForm{
		Name:     "Dairy",
		Slug:     "dairy",
		ParentID: sql.NullInt64{Int64: 77, Valid: true},
	}, maxDepth)

	assert.ErrorIs(t, err, servererrors.ErrParentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOneInsertsRootCategory(t *testing.T) {
	s, _, mock := newStoreMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO categories`).
		WithArgs("Dairy", "Сүт өнімдері", "dairy", nil, "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	id, err := s.createOne(context.Background(), &CategoryForm{
		Name:   "Dairy",
		NameKK: "Сүт өнімдері",
		Slug:   "dairy",
	}, maxDepth)

	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOneReturnsPreviousImage(t *testing.T) {
	s, _, mock := newStoreMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`WITH RECURSIVE ancestors`).
		WithArgs(int64(2), maxDepth, int64(7)).
		WillReturnRows(ancestryRows(1, false, 1))
	mock.ExpectQuery(`UPDATE categories c`).
		WillReturnRows(sqlmock.NewRows([]string{"image"}).AddRow("https://img.tabys-go.ru/cat-old.jpg"))
	mock.ExpectCommit()

	old, err := s.updateOne(context.Background(), 7, &CategoryForm{
		Name:     "Dairy",
		Slug:     "dairy",
		ParentID: sql.NullInt64{Int64: 2, Valid: true},
	}, maxDepth)

	require.NoError(t, err)
	assert.Equal(t, "https://img.tabys-go.ru/cat-old.jpg", old)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOneMissingRow(t *testing.T) {
	s, _, mock := newStoreMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`UPDATE categories c`).
		WillReturnRows(sqlmock.NewRows([]string{"image"}))
	mock.ExpectRollback()

	_, err := s.updateOne(context.Background(), 7, &CategoryForm{Name: "Dairy", Slug: "dairy"}, maxDepth)

	assert.ErrorIs(t, err, servererrors.ErrCategoryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOne(t *testing.T) {
	s, _, mock := newStoreMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM categories WHERE id = $1 RETURNING image`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"image"}).AddRow("https://img.tabys-go.ru/cat-1.jpg"))
	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM categories WHERE id = $1 RETURNING image`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"image"}))

	image, err := s.deleteOne(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "https://img.tabys-go.ru/cat-1.jpg", image)

	_, err = s.deleteOne(context.Background(), 4)
	assert.ErrorIs(t, err, servererrors.ErrCategoryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAllScansNullParent(t *testing.T) {
	s, _, mock := newStoreMock(t)

	mock.ExpectQuery(`SELECT id, parent_id, name, name_kk, slug, image FROM categories ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "parent_id", "name", "name_kk", "slug", "image"}).
			AddRow(1, nil, "Dairy", "", "dairy", "").
			AddRow(2, 1, "Milk", "", "milk", ""))

	categories, err := s.findAll(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Nil(t, categories[0].ParentID)
	require.NotNil(t, categories[1].ParentID)
	assert.Equal(t, int64(1), *categories[1].ParentID)
}
