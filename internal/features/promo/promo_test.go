package promo

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/echoesonmars/tabys-back/internal/middlewares"
	"github.com/echoesonmars/tabys-back/internal/obs"
	"github.com/echoesonmars/tabys-back/internal/servererrors"
	"github.com/go-chi/chi"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var promoRowColumns = []string{"id", "code", "discount", "is_active"}

func newTestRouter(t *testing.T) (*chi.Mux, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := chi.NewRouter()
	NewHandler(
		NewService(NewStore(db)),
		middlewares.NewMiddleware(obs.Logger),
		time.Second,
	).RegisterRoutes(r)

	return r, mock
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCheckPromoNormalizesCode(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE UPPER(TRIM(code)) = $1 AND is_active`)).
		WithArgs("SPRING10").
		WillReturnRows(sqlmock.NewRows(promoRowColumns).AddRow(3, "SPRING10", 10, true))

	rec := serve(r, http.MethodPost, "/check-promo", `{"code":"  spring10 "}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"discount":10`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckPromoNotFound(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(`FROM promocodes`).
		WithArgs("EXPIRED").
		WillReturnError(sql.ErrNoRows)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/check-promo", `{"code":"expired"}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/check-promo", `{"code":"   "}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/check-promo", `{`).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPromosNewestFirst(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM promocodes ORDER BY id DESC`)).
		WillReturnRows(sqlmock.NewRows(promoRowColumns).
			AddRow(2, "B", 5, true).
			AddRow(1, "A", 15, false))

	rec := serve(r, http.MethodGet, "/admin/promos", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Less(t, strings.Index(body, `"code":"B"`), strings.Index(body, `"code":"A"`))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePromo(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expect   func(mock sqlmock.Sqlmock)
		wantCode int
	}{
		{
			name: "stored upper-cased",
			body: `{"code":"winter","discount":20}`,
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO promocodes`).
					WithArgs("WINTER", 20).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
			},
			wantCode: http.StatusOK,
		},
		{
			name: "duplicate code",
			body: `{"code":"winter","discount":20}`,
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO promocodes`).
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			wantCode: http.StatusConflict,
		},
		{
			name:     "missing discount",
			body:     `{"code":"winter"}`,
			expect:   func(mock sqlmock.Sqlmock) {},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "blank code",
			body:     `{"code":"  ","discount":5}`,
			expect:   func(mock sqlmock.Sqlmock) {},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mock := newTestRouter(t)
			tt.expect(mock)

			rec := serve(r, http.MethodPost, "/admin/promos", tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDeletePromo(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM promocodes WHERE id = $1`)).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM promocodes WHERE id = $1`)).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Equal(t, http.StatusOK, serve(r, http.MethodDelete, "/admin/promos/4", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodDelete, "/admin/promos/5", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodDelete, "/admin/promos/x", "").Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckPromoServiceSkipsStoreForBlankCode(t *testing.T) {
	_, err := NewService(nil).checkPromo(context.Background(), "  ")
	assert.ErrorIs(t, err, servererrors.ErrPromoNotFound)
}
