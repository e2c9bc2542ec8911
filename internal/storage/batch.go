package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrGuardFailed is returned by Batch.Execute when a guarded update matched no
// rows. The transaction has been rolled back.
var ErrGuardFailed = errors.New("guarded update matched no rows")

type OpKind int

const (
	// OpInsertReturning is an INSERT ... RETURNING id.
	OpInsertReturning OpKind = iota
	// OpGuardedUpdate is an UPDATE whose WHERE clause carries a precondition;
	// zero affected rows aborts the whole batch.
	OpGuardedUpdate
	// OpExec is any other statement.
	OpExec
)

type Op struct {
	Kind  OpKind
	Key   string
	Query string
	Args  []any
}

type Outcome struct {
	Op           Op
	RowsAffected int64
	ReturnedID   int64
}

// GuardFailed reports whether a guarded update matched no rows.
func (o Outcome) GuardFailed() bool {
	return o.Op.Kind == OpGuardedUpdate && o.RowsAffected == 0
}

type Result struct {
	Outcomes  []Outcome
	Committed bool
}

// TxBeginner is satisfied by *sql.DB.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AbortHook runs inside the transaction, before rollback, when one or more
// guarded updates failed. It lets the caller inspect rows under the same
// snapshot, e.g. to tell a missing row from a failed precondition.
type AbortHook func(ctx context.Context, q Querier, failed []Outcome) error

// Batch accumulates typed statements that commit or fail together.
type Batch struct {
	ops     []Op
	onAbort AbortHook
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) InsertReturning(key, query string, args ...any) *Batch {
	b.ops = append(b.ops, Op{Kind: OpInsertReturning, Key: key, Query: query, Args: args})
	return b
}

func (b *Batch) GuardedUpdate(key, query string, args ...any) *Batch {
	b.ops = append(b.ops, Op{Kind: OpGuardedUpdate, Key: key, Query: query, Args: args})
	return b
}

func (b *Batch) Exec(key, query string, args ...any) *Batch {
	b.ops = append(b.ops, Op{Kind: OpExec, Key: key, Query: query, Args: args})
	return b
}

func (b *Batch) OnAbort(fn AbortHook) *Batch {
	b.onAbort = fn
	return b
}

func (b *Batch) Len() int {
	return len(b.ops)
}

// Execute runs every statement in one transaction. Every statement is issued
// even after a guard fails so the result reports each one. It commits only
// when all guards held; otherwise it rolls back and returns ErrGuardFailed
// along with the per-statement outcomes.
func (b *Batch) Execute(ctx context.Context, db TxBeginner) (*Result, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin batch: %w", err)
	}

	res := &Result{Outcomes: make([]Outcome, 0, len(b.ops))}
	var failed []Outcome

	for _, op := range b.ops {
		out, err := runOp(ctx, tx, op)
		if err != nil {
			tx.Rollback()
			return res, fmt.Errorf("batch statement %q failed: %w", op.Key, err)
		}

		res.Outcomes = append(res.Outcomes, out)
		if out.GuardFailed() {
			failed = append(failed, out)
		}
	}

	if len(failed) > 0 {
		if b.onAbort != nil {
			if err := b.onAbort(ctx, tx, failed); err != nil {
				tx.Rollback()
				return res, fmt.Errorf("batch abort hook failed: %w", err)
			}
		}

		if err := tx.Rollback(); err != nil {
			return res, fmt.Errorf("failed to roll back batch: %w", err)
		}
		return res, ErrGuardFailed
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit batch: %w", err)
	}
	res.Committed = true

	return res, nil
}

func runOp(ctx context.Context, tx *sql.Tx, op Op) (Outcome, error) {
	out := Outcome{Op: op}

	if op.Kind == OpInsertReturning {
		if err := tx.QueryRowContext(ctx, op.Query, op.Args...).Scan(&out.ReturnedID); err != nil {
			return out, err
		}
		out.RowsAffected = 1
		return out, nil
	}

	r, err := tx.ExecContext(ctx, op.Query, op.Args...)
	if err != nil {
		return out, err
	}

	out.RowsAffected, err = r.RowsAffected()
	if err != nil {
		return out, err
	}

	return out, nil
}
