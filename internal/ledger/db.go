// Package ledger provides the SQLite-backed transaction ledger and item
// catalog for quill. Stock levels and the cash balance are derived from the
// append-only transaction log, never stored directly.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store wraps an SQLite database connection with ledger operations.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultPath returns the project-local database path.
func DefaultPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".quill", "ledger.db")
}

// Open opens the ledger database at the given path, creating parent
// directories as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.path
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Inventory},
		{2, migrationV2Transactions},
		{3, migrationV3QuoteHistory},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Inventory = `
CREATE TABLE IF NOT EXISTS inventory (
	item_name TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	unit_price REAL NOT NULL,
	min_stock_level INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_inventory_category ON inventory(category);
`

const migrationV2Transactions = `
CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_name TEXT NOT NULL,
	transaction_type TEXT NOT NULL,
	units INTEGER NOT NULL,
	price REAL NOT NULL,
	transaction_date TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_item ON transactions(item_name);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(transaction_date);
`

const migrationV3QuoteHistory = `
CREATE TABLE IF NOT EXISTS quote_requests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	response TEXT NOT NULL,
	request_date TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS quotes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id INTEGER NOT NULL REFERENCES quote_requests(id),
	total_amount REAL NOT NULL,
	quote_explanation TEXT,
	order_size INTEGER NOT NULL DEFAULT 0,
	order_date TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quotes_request ON quotes(request_id);
CREATE INDEX IF NOT EXISTS idx_quotes_date ON quotes(order_date);
`

// Exec executes a statement that doesn't return rows.
func (s *Store) Exec(query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Exec(query, args...)
}

// Query executes a query that returns rows.
func (s *Store) Query(query string, args ...any) (*sql.Rows, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row.
func (s *Store) QueryRow(query string, args ...any) *sql.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn.QueryRow(query, args...)
}

// Transaction runs the given function within a database transaction.
func (s *Store) Transaction(fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// normalizeAsOf widens a bare YYYY-MM-DD date to end-of-day so that
// same-day transactions are included in as-of queries.
func normalizeAsOf(asOf string) string {
	if len(asOf) == 10 {
		return asOf + "T23:59:59"
	}
	return asOf
}
