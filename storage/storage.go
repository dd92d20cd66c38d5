// Package storage persists sessions and pantries as versioned JSON documents. Every write
// names the version it was based on so concurrent writers cannot silently overwrite each
// other.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"mealprep"
)

// Object is a stored document and the opaque version it was read at.
type Object struct {
	Data    []byte
	Version string
}

// Store is a key/value document store with optimistic concurrency.
type Store interface {
	// Load returns ErrNotFound when key does not exist.
	Load(ctx context.Context, key string) (Object, error)
	// Save writes data if the stored version still equals expected and returns the new
	// version. An empty expected version means the key must not exist yet.
	Save(ctx context.Context, key string, data []byte, expected string) (string, error)
	// List returns the keys starting with prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

var (
	ErrNotFound        = errors.New("document not found")
	ErrVersionConflict = errors.New("document version changed")
)

// ConcurrentModificationError is returned when a read-modify-write kept losing the race
// for its key.
type ConcurrentModificationError struct {
	Key string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("concurrent modification of %s", e.Key)
}

func (e *ConcurrentModificationError) Unwrap() error { return ErrVersionConflict }

func (e *ConcurrentModificationError) ErrorClass() mealprep.ErrorClass {
	return mealprep.ClassConcurrency
}

// RetryBackOff is the pause before the single retry of a conflicting update.
var RetryBackOff backoff.BackOff = backoff.NewConstantBackOff(25 * time.Millisecond)

// UpdateJSON loads key into a T (or init() when absent), applies mutate and saves the
// result against the loaded version. A version conflict is retried once on fresh state;
// errors returned by mutate are never retried.
func UpdateJSON[T any](ctx context.Context, s Store, key string, init func() T, mutate func(*T) error) (T, error) {
	attempt := 0
	op := func() (T, error) {
		attempt++
		var doc T

		obj, err := s.Load(ctx, key)
		switch {
		case errors.Is(err, ErrNotFound):
			doc = init()
		case err != nil:
			return doc, backoff.Permanent(fmt.Errorf("load %s: %w", key, err))
		default:
			if err := json.Unmarshal(obj.Data, &doc); err != nil {
				return doc, backoff.Permanent(fmt.Errorf("decode %s: %w", key, err))
			}
		}

		if err := mutate(&doc); err != nil {
			return doc, backoff.Permanent(err)
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return doc, backoff.Permanent(fmt.Errorf("encode %s: %w", key, err))
		}
		if _, err := s.Save(ctx, key, data, obj.Version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return doc, err
			}
			return doc, backoff.Permanent(fmt.Errorf("save %s: %w", key, err))
		}
		return doc, nil
	}

	doc, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(RetryBackOff),
		backoff.WithMaxTries(2),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("STORAGE: Version conflict, retrying with fresh state", "key", key, "attempt", attempt, "wait", next)
		}),
	)
	if err == nil {
		return doc, nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	if errors.Is(err, ErrVersionConflict) {
		var cme *ConcurrentModificationError
		if !errors.As(err, &cme) {
			err = &ConcurrentModificationError{Key: key}
		}
	}
	var zero T
	return zero, err
}

// LoadJSON decodes the document at key into a T.
func LoadJSON[T any](ctx context.Context, s Store, key string) (T, string, error) {
	var doc T
	obj, err := s.Load(ctx, key)
	if err != nil {
		return doc, "", err
	}
	if err := json.Unmarshal(obj.Data, &doc); err != nil {
		return doc, "", fmt.Errorf("decode %s: %w", key, err)
	}
	return doc, obj.Version, nil
}
