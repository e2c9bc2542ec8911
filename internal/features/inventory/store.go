package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/echoesonmars/tabys-back/internal/storage"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// decrementQuery takes stock only when enough is left. The row lock taken by
// the UPDATE makes the check and the write one atomic step.
const decrementQuery = `UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1`

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db: db,
	}
}

// AddDecrement appends a conditional decrement of productID to b. The
// statement is keyed by the product id.
func AddDecrement(b *storage.Batch, productID int64, quantity decimal.Decimal) {
	b.GuardedUpdate(
		DecrementKey(productID),
		decrementQuery,
		quantity,
		productID,
	)
}

func DecrementKey(productID int64) string {
	return strconv.FormatInt(productID, 10)
}

// ExistingIDs reports which of ids have a product row, read through q so it
// can run inside an open transaction.
func ExistingIDs(ctx context.Context, q storage.Querier, ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	rows, err := q.QueryContext(
		ctx,
		`SELECT id FROM products WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to probe products in inventory store: %w",
			err,
		)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf(
				"failed to scan product id in inventory store: %w",
				err,
			)
		}
		found[id] = true
	}

	return found, rows.Err()
}

func (s *Store) findLevels(ctx context.Context, ids []int64) ([]StockLevel, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, stock FROM products WHERE id = ANY($1) ORDER BY id`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get stock levels from inventory store: %w",
			err,
		)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var l StockLevel
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Stock); err != nil {
			return nil, fmt.Errorf(
				"failed to scan stock level in inventory store: %w",
				err,
			)
		}
		levels = append(levels, l)
	}

	return levels, rows.Err()
}
