package order

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/echoesonmars/tabys-back/internal/storage"
	"github.com/shopspring/decimal"
)

const insertOrderQuery = `INSERT INTO orders (customer_name, customer_phone, address, comment, items_json, total_price, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, 'new', now()) RETURNING id`

const orderOpKey = "order"

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db: db,
	}
}

// addInsert appends the order row insert to b. Status and creation time are
// set by the store.
func addInsert(b *storage.Batch, c Customer, itemsJSON []byte, total decimal.Decimal) {
	b.InsertReturning(
		orderOpKey,
		insertOrderQuery,
		c.Name,
		c.Phone,
		c.Address,
		c.Comment,
		string(itemsJSON),
		total,
	)
}

func (s *Store) execute(ctx context.Context, b *storage.Batch) (*storage.Result, error) {
	return b.Execute(ctx, s.db)
}

func (s *Store) findAll(ctx context.Context) ([]*Order, error) {
	query := `SELECT id, customer_name, customer_phone, address, comment, items_json, total_price, status, created_at
FROM orders ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get all orders from order store: %w",
			err,
		)
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		var o Order
		var items []byte
		err := rows.Scan(
			&o.ID,
			&o.CustomerName,
			&o.CustomerPhone,
			&o.Address,
			&o.Comment,
			&items,
			&o.TotalPrice,
			&o.Status,
			&o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to scan order from order store: %w",
				err,
			)
		}
		o.ItemsJSON = items
		orders = append(orders, &o)
	}

	return orders, rows.Err()
}

func (s *Store) deleteOne(ctx context.Context, id int64) (int64, error) {
	r, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf(
			"failed to delete order from order store: %w",
			err,
		)
	}

	return r.RowsAffected()
}
