// Package sqlite provides a SQLite-backed identity database backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/stampnet/stampd/internal/ledgerstore/physical"
	"github.com/stampnet/stampd/internal/storage"
)

const (
	KeyPath        = "path"
	KeyJournalMode = "journal_mode"
	KeyBusyTimeout = "busy_timeout"
	KeyCacheSize   = "cache_size"
)

func init() {
	physical.Register("sqlite", NewFactory, Defaults)
}

// Defaults returns the default configuration for the SQLite backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyPath:        "~/.stamp/stamp.db",
		KeyJournalMode: "wal",
		KeyBusyTimeout: "5000",
		KeyCacheSize:   "-64000",
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS chains (
    identity_id  TEXT PRIMARY KEY,
    data         BLOB NOT NULL,
    updated_at   INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS staged (
    identity_id  TEXT NOT NULL,
    tx_id        TEXT NOT NULL,
    data         BLOB NOT NULL,
    updated_at   INTEGER NOT NULL DEFAULT (unixepoch()),
    PRIMARY KEY (identity_id, tx_id)
);

CREATE INDEX IF NOT EXISTS idx_staged_identity ON staged(identity_id);
`

// NewFactory creates a new SQLite backend from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (physical.Backend, error) {
	path := storage.GetString(config, KeyPath, "")
	if path == "" {
		return nil, storage.NewConfigError("sqlite", KeyPath, "cannot be empty")
	}
	path = storage.ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to create directory", err)
	}

	journalMode := storage.GetString(config, KeyJournalMode, "wal")
	busyTimeout := storage.GetString(config, KeyBusyTimeout, "5000")
	cacheSize := storage.GetString(config, KeyCacheSize, "-64000")

	dsn := fmt.Sprintf("file:%s?_journal_mode=%s&_busy_timeout=%s&_cache_size=%s",
		path, journalMode, busyTimeout, cacheSize)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to open database", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to initialize schema", err)
	}

	return &Backend{db: db}, nil
}

// Backend is a SQLite implementation of physical.Backend.
type Backend struct {
	db     *sql.DB
	closed atomic.Bool
}

// PutChain stores a serialized chain.
func (b *Backend) PutChain(ctx context.Context, identityID string, data []byte) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO chains (identity_id, data, updated_at) VALUES (?, ?, unixepoch())
		 ON CONFLICT(identity_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		identityID, data)
	if err != nil {
		return fmt.Errorf("sqlite put chain: %w", err)
	}
	return nil
}

// GetChain retrieves a serialized chain.
func (b *Backend) GetChain(ctx context.Context, identityID string) ([]byte, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}
	var data []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT data FROM chains WHERE identity_id = ?`, identityID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, physical.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get chain: %w", err)
	}
	return data, nil
}

// DeleteChain removes a chain and its staged transactions.
func (b *Backend) DeleteChain(ctx context.Context, identityID string) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite delete chain: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM chains WHERE identity_id = ?`, identityID); err != nil {
		return fmt.Errorf("sqlite delete chain: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM staged WHERE identity_id = ?`, identityID); err != nil {
		return fmt.Errorf("sqlite delete chain: staged: %w", err)
	}
	return tx.Commit()
}

// ListChains returns the identity IDs of all stored chains, sorted.
func (b *Backend) ListChains(ctx context.Context) ([]string, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}
	rows, err := b.db.QueryContext(ctx, `SELECT identity_id FROM chains ORDER BY identity_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite list chains: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite list chains: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PutStaged stores a staged transaction envelope.
func (b *Backend) PutStaged(ctx context.Context, identityID, txID string, data []byte) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO staged (identity_id, tx_id, data, updated_at) VALUES (?, ?, ?, unixepoch())
		 ON CONFLICT(identity_id, tx_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		identityID, txID, data)
	if err != nil {
		return fmt.Errorf("sqlite put staged: %w", err)
	}
	return nil
}

// GetStaged retrieves a staged transaction envelope.
func (b *Backend) GetStaged(ctx context.Context, identityID, txID string) ([]byte, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}
	var data []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT data FROM staged WHERE identity_id = ? AND tx_id = ?`, identityID, txID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, physical.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get staged: %w", err)
	}
	return data, nil
}

// DeleteStaged removes a staged transaction envelope. Idempotent.
func (b *Backend) DeleteStaged(ctx context.Context, identityID, txID string) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}
	_, err := b.db.ExecContext(ctx,
		`DELETE FROM staged WHERE identity_id = ? AND tx_id = ?`, identityID, txID)
	if err != nil {
		return fmt.Errorf("sqlite delete staged: %w", err)
	}
	return nil
}

// ListStaged returns the transaction IDs staged for an identity, sorted.
func (b *Backend) ListStaged(ctx context.Context, identityID string) ([]string, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}
	rows, err := b.db.QueryContext(ctx,
		`SELECT tx_id FROM staged WHERE identity_id = ? ORDER BY tx_id`, identityID)
	if err != nil {
		return nil, fmt.Errorf("sqlite list staged: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite list staged: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats returns storage statistics.
func (b *Backend) Stats(ctx context.Context) (*physical.Stats, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}
	var chains, staged int64
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chains`).Scan(&chains); err != nil {
		return nil, fmt.Errorf("sqlite stats: %w", err)
	}
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM staged`).Scan(&staged); err != nil {
		return nil, fmt.Errorf("sqlite stats: %w", err)
	}
	return &physical.Stats{
		Chains:      chains,
		Staged:      staged,
		BackendType: "sqlite",
	}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.db.Close()
}
