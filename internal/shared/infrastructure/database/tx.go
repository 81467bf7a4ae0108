package database

import (
	"context"
	"errors"
	"fmt"
)

// WithinTx runs fn in a transaction. The transaction commits when fn
// returns nil and rolls back otherwise, so either every statement in fn
// takes effect or none does.
func WithinTx(ctx context.Context, conn Connection, fn func(tx Executor) error) error {
	tx, err := conn.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
