package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FileStore keeps each document as a JSON file under Dir. Keys map to relative paths
// with a .json suffix. Versions are serialized only within one process.
type FileStore struct {
	Dir string
	mu  sync.Mutex
}

type fileEnvelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (f *FileStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid document key %q", key)
	}
	return filepath.Join(f.Dir, clean+".json"), nil
}

func (f *FileStore) read(key string) (fileEnvelope, error) {
	var env fileEnvelope
	p, err := f.path(key)
	if err != nil {
		return env, err
	}
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return env, ErrNotFound
	}
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("corrupt document %s: %w", key, err)
	}
	return env, nil
}

func (f *FileStore) Load(ctx context.Context, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	env, err := f.read(key)
	if err != nil {
		return Object{}, err
	}
	return Object{Data: env.Data, Version: strconv.Itoa(env.Version)}, nil
}

// Save requires data to be a JSON document.
func (f *FileStore) Save(ctx context.Context, key string, data []byte, expected string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !json.Valid(data) {
		return "", fmt.Errorf("document %s is not valid JSON", key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	current := ""
	env, err := f.read(key)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return "", err
	default:
		current = strconv.Itoa(env.Version)
	}
	if current != expected {
		return "", ErrVersionConflict
	}

	next := fileEnvelope{Version: env.Version + 1, Data: data}
	raw, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return "", err
	}
	p, _ := f.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create store directory: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return "", fmt.Errorf("commit %s: %w", key, err)
	}
	return strconv.Itoa(next.Version), nil
}

func (f *FileStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	err := filepath.WalkDir(f.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".json") {
			return nil
		}
		rel, err := filepath.Rel(f.Dir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(strings.TrimSuffix(rel, ".json"))
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
