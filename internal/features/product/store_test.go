package product

import (
	"context"
	"database/sql"
	"net/url"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/echoesonmars/tabys-back/internal/servererrors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productRowColumns = []string{"id", "name", "name_kk", "price", "old_price", "unit", "image", "description", "description_kk", "stock", "category_id"}

func newStoreMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestFindAllBindsFilters(t *testing.T) {
	s, mock := newStoreMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE stock > 0 AND (name ILIKE $1 OR name_kk ILIKE $2 OR description ILIKE $3)`)).
		WithArgs("%'; DROP%", "%'; DROP%", "%'; DROP%").
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow(2, "Milk", "Сүт", "450.00", nil, "l", `["https://img.tabys-go.ru/prod-1.jpg"]`, "", "", "12", 3))

	products, err := s.findAll(context.Background(), VisibilityCustomer, url.Values{"q": {"'; DROP"}})
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "Milk", p.Name)
	assert.False(t, p.OldPrice.Valid)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(450)))
	require.NotNil(t, p.CategoryID)
	assert.Equal(t, int64(3), *p.CategoryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	s, mock := newStoreMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id = $1`)).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.findByID(context.Background(), 9)
	assert.ErrorIs(t, err, servererrors.ErrProductNotFound)
}

func TestDeleteOneReturnsStoredImages(t *testing.T) {
	s, mock := newStoreMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM products WHERE id = $1 RETURNING image`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"image"}).AddRow(`["/prod-a.jpg"]`))

	images, err := s.deleteOne(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, `["/prod-a.jpg"]`, images)
}

func TestUpdateOneMissingRow(t *testing.T) {
	s, mock := newStoreMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE products p SET`)).
		WillReturnRows(sqlmock.NewRows([]string{"image"}))

	_, err := s.updateOne(context.Background(), 4, &ProductForm{Name: "Milk"}, `[]`)
	assert.ErrorIs(t, err, servererrors.ErrProductNotFound)
}
