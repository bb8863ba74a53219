// Package badger provides a BadgerDB-backed identity database backend.
package badger

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/stampnet/stampd/internal/ledgerstore/physical"
	"github.com/stampnet/stampd/internal/storage"
)

const (
	prefixChain  = "chain/"
	prefixStaged = "staged/"
)

const (
	KeyPath             = "path"
	KeySyncWrites       = "sync_writes"
	KeyValueLogFileSize = "value_log_file_size"
	KeyMemTableSize     = "mem_table_size"
	KeyInMemory         = "in_memory"
)

func init() {
	physical.Register("badger", NewFactory, Defaults)
}

// Defaults returns the default configuration for the BadgerDB backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyPath:             "~/.stamp/db",
		KeySyncWrites:       "true",
		KeyValueLogFileSize: strconv.FormatInt(1<<30, 10),
		KeyMemTableSize:     strconv.FormatInt(64<<20, 10),
		KeyInMemory:         "false",
	}
}

// NewFactory creates a new BadgerDB backend from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (physical.Backend, error) {
	inMemory, err := storage.GetBool(config, KeyInMemory, false)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("badger", KeyInMemory, config[KeyInMemory], err.Error())
	}

	if inMemory {
		return newInMemory()
	}

	path := storage.GetString(config, KeyPath, "")
	if path == "" {
		return nil, storage.NewConfigError("badger", KeyPath, "cannot be empty")
	}
	path = storage.ExpandPath(path)

	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, storage.NewConfigErrorWithCause("badger", KeyPath, "failed to create directory", err)
	}

	syncWrites, err := storage.GetBool(config, KeySyncWrites, true)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("badger", KeySyncWrites, config[KeySyncWrites], err.Error())
	}

	valueLogFileSize, err := storage.GetInt64(config, KeyValueLogFileSize, 1<<30)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("badger", KeyValueLogFileSize, config[KeyValueLogFileSize], err.Error())
	}

	memTableSize, err := storage.GetInt64(config, KeyMemTableSize, 64<<20)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("badger", KeyMemTableSize, config[KeyMemTableSize], err.Error())
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = syncWrites
	if valueLogFileSize > 0 {
		opts.ValueLogFileSize = valueLogFileSize
	}
	if memTableSize > 0 {
		opts.MemTableSize = memTableSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("badger", KeyPath, "failed to open database", err)
	}

	return NewWithDB(db), nil
}

func newInMemory() (*Backend, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("badger", KeyInMemory, "failed to open in-memory database", err)
	}

	return NewWithDB(db), nil
}

// Backend is a BadgerDB implementation of physical.Backend.
type Backend struct {
	db     *badger.DB
	closed atomic.Bool
}

// NewWithDB creates a new backend with an existing BadgerDB instance.
func NewWithDB(db *badger.DB) *Backend {
	return &Backend{db: db}
}

func chainKey(identityID string) []byte {
	return []byte(prefixChain + identityID)
}

func stagedKey(identityID, txID string) []byte {
	return []byte(prefixStaged + identityID + "/" + txID)
}

// PutChain stores a serialized chain.
func (b *Backend) PutChain(_ context.Context, identityID string, data []byte) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chainKey(identityID), data)
	})
}

// GetChain retrieves a serialized chain.
func (b *Backend) GetChain(_ context.Context, identityID string) ([]byte, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chainKey(identityID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, physical.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteChain removes a chain and its staged transactions.
func (b *Backend) DeleteChain(_ context.Context, identityID string) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(chainKey(identityID)); err != nil {
			return err
		}
		prefix := []byte(prefixStaged + identityID + "/")
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListChains returns the identity IDs of all stored chains, sorted.
func (b *Backend) ListChains(_ context.Context) ([]string, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}
	var ids []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.IteratorOptions{Prefix: []byte(prefixChain)}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), prefixChain))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// PutStaged stores a staged transaction envelope.
func (b *Backend) PutStaged(_ context.Context, identityID, txID string, data []byte) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stagedKey(identityID, txID), data)
	})
}

// GetStaged retrieves a staged transaction envelope.
func (b *Backend) GetStaged(_ context.Context, identityID, txID string) ([]byte, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stagedKey(identityID, txID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, physical.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteStaged removes a staged transaction envelope. Idempotent.
func (b *Backend) DeleteStaged(_ context.Context, identityID, txID string) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(stagedKey(identityID, txID))
	})
}

// ListStaged returns the transaction IDs staged for an identity, sorted.
func (b *Backend) ListStaged(_ context.Context, identityID string) ([]string, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}
	prefix := prefixStaged + identityID + "/"
	var ids []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.IteratorOptions{Prefix: []byte(prefix)}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), prefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Stats returns storage statistics.
func (b *Backend) Stats(ctx context.Context) (*physical.Stats, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}
	chains, err := b.ListChains(ctx)
	if err != nil {
		return nil, err
	}
	var staged int64
	err = b.db.View(func(txn *badger.Txn) error {
		opts := badger.IteratorOptions{Prefix: []byte(prefixStaged)}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			staged++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &physical.Stats{
		Chains:      int64(len(chains)),
		Staged:      staged,
		BackendType: "badger",
	}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.db.Close()
}
