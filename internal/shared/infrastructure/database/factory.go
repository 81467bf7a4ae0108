package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds database configuration.
type Config struct {
	// Driver is detected from URL when empty or "auto".
	Driver Driver

	// URL is the PostgreSQL connection string.
	URL string

	// SQLitePath defaults to ~/.subscriptions/store.db. ":memory:" opens a
	// private in-memory database.
	SQLitePath string

	// MaxConns caps the PostgreSQL pool size.
	MaxConns int
}

// NewConnection opens a connection for the configured driver. The driver
// packages register themselves on import.
func NewConnection(ctx context.Context, cfg Config) (Connection, error) {
	driver := cfg.Driver
	if driver == "" || driver == "auto" {
		driver = DetectDriver(cfg.URL)
	}

	var open func(context.Context, Config) (Connection, error)
	switch driver {
	case DriverPostgres:
		open = newPostgresConnection
	case DriverSQLite:
		open = newSQLiteConnection
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	if open == nil {
		return nil, fmt.Errorf("database driver %s not registered", driver)
	}
	return open(ctx, cfg)
}

// DefaultSQLitePath returns the default SQLite database path.
func DefaultSQLitePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".subscriptions", "store.db")
}

// DefaultLocalConfig returns configuration for local SQLite mode.
func DefaultLocalConfig() Config {
	return Config{Driver: DriverSQLite, SQLitePath: DefaultSQLitePath()}
}

// EnsureDirectory creates the parent directory of path, private to the user.
func EnsureDirectory(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o700)
}

var (
	newPostgresConnection func(ctx context.Context, cfg Config) (Connection, error)
	newSQLiteConnection   func(ctx context.Context, cfg Config) (Connection, error)
)

// RegisterPostgresDriver registers the PostgreSQL connection factory.
func RegisterPostgresDriver(fn func(ctx context.Context, cfg Config) (Connection, error)) {
	newPostgresConnection = fn
}

// RegisterSQLiteDriver registers the SQLite connection factory.
func RegisterSQLiteDriver(fn func(ctx context.Context, cfg Config) (Connection, error)) {
	newSQLiteConnection = fn
}
