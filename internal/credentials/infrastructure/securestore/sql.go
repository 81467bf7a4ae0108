package securestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/subscriptions/internal/credentials/domain"
	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/migrations"
)

const (
	selectValue = `SELECT value FROM secure_store WHERE store = ? AND item_key = ?`
	upsertValue = `INSERT INTO secure_store (store, item_key, value) VALUES (?, ?, ?)
ON CONFLICT (store, item_key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	deleteValue = `DELETE FROM secure_store WHERE store = ? AND item_key = ?`
)

// SQLBackend keeps every store in the secure_store table of a SQLite or
// PostgreSQL database.
type SQLBackend struct {
	conn database.Connection

	mu       sync.Mutex
	migrated bool
}

// NewSQLBackend creates a SQLBackend over conn.
func NewSQLBackend(conn database.Connection) *SQLBackend {
	return &SQLBackend{conn: conn}
}

// Open migrates the schema on first use. A failed migration is retried by
// the next Open.
func (b *SQLBackend) Open(ctx context.Context, name string) (domain.SecureStore, error) {
	if err := b.migrate(ctx); err != nil {
		return nil, err
	}
	return &SQLStore{conn: b.conn, name: name}, nil
}

func (b *SQLBackend) migrate(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.migrated {
		return nil
	}
	if _, err := migrations.Run(ctx, b.conn); err != nil {
		return fmt.Errorf("migrate secure_store: %w", err)
	}
	b.migrated = true
	return nil
}

// SQLStore is one named store inside the secure_store table.
type SQLStore struct {
	conn database.Connection
	name string
}

func (s *SQLStore) query(q string) string {
	return database.Rebind(s.conn.Driver(), q)
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRow(ctx, s.query(selectValue), s.name, key).Scan(&value)
	if database.IsNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select %s: %w", key, err)
	}
	return value, true, nil
}

// Commit applies the batch in one transaction.
func (s *SQLStore) Commit(ctx context.Context, changes map[string]*string) error {
	return database.WithinTx(ctx, s.conn, func(tx database.Executor) error {
		for key, value := range changes {
			var err error
			if value == nil {
				_, err = tx.Exec(ctx, s.query(deleteValue), s.name, key)
			} else {
				_, err = tx.Exec(ctx, s.query(upsertValue), s.name, key, *value)
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", key, err)
			}
		}
		return nil
	})
}
