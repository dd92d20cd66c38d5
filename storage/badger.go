package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps documents in an embedded BadgerDB. Each value is prefixed with an
// 8-byte big-endian write counter that serves as the document version.
type BadgerStore struct {
	db *badger.DB
}

// BadgerConfig configures OpenBadger.
type BadgerConfig struct {
	// Path is ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *slog.Logger
}

// badgerLogger adapts slog to badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error("STORAGE: badger: " + fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn("STORAGE: badger: " + fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug("STORAGE: badger: " + fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug("STORAGE: badger: " + fmt.Sprintf(format, args...))
}

// OpenBadger opens (or creates) a badger database. The caller must Close the store.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path is required for a persistent store")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func (b *BadgerStore) Load(ctx context.Context, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	var obj Object
	err := b.db.View(func(txn *badger.Txn) error {
		version, data, err := readVersioned(txn, key)
		if err != nil {
			return err
		}
		obj = Object{Data: data, Version: strconv.FormatUint(version, 10)}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Object{}, ErrNotFound
	}
	if err != nil {
		return Object{}, fmt.Errorf("badger load %s: %w", key, err)
	}
	return obj, nil
}

// Save relies on badger's transaction conflict detection for writers racing between the
// version check and the commit.
func (b *BadgerStore) Save(ctx context.Context, key string, data []byte, expected string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var next uint64
	err := b.db.Update(func(txn *badger.Txn) error {
		current := ""
		version, _, err := readVersioned(txn, key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			current = strconv.FormatUint(version, 10)
		}
		if current != expected {
			return ErrVersionConflict
		}

		next = version + 1
		value := make([]byte, 8+len(data))
		binary.BigEndian.PutUint64(value, next)
		copy(value[8:], data)
		return txn.Set([]byte(key), value)
	})
	if errors.Is(err, ErrVersionConflict) || errors.Is(err, badger.ErrConflict) {
		return "", ErrVersionConflict
	}
	if err != nil {
		return "", fmt.Errorf("badger save %s: %w", key, err)
	}
	return strconv.FormatUint(next, 10), nil
}

// readVersioned splits a stored value into its version counter and document.
func readVersioned(txn *badger.Txn, key string) (uint64, []byte, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return 0, nil, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return 0, nil, err
	}
	if len(raw) < 8 {
		return 0, nil, fmt.Errorf("corrupt document %s", key)
	}
	return binary.BigEndian.Uint64(raw[:8]), raw[8:], nil
}

func (b *BadgerStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list %s: %w", prefix, err)
	}
	return keys, nil
}
