package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealprep"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		cfg     mealprep.StorageConfig
		want    any
		wantErr string
	}{
		{name: "memory", cfg: mealprep.StorageConfig{Backend: "memory"}, want: &MemoryStore{}},
		{name: "file", cfg: mealprep.StorageConfig{Backend: "file", Dir: dir}, want: &FileStore{}},
		{name: "default is file", cfg: mealprep.StorageConfig{Dir: dir}, want: &FileStore{}},
		{name: "badger", cfg: mealprep.StorageConfig{Backend: "badger", BadgerPath: filepath.Join(dir, "badger")}, want: &BadgerStore{}},
		{name: "s3 without bucket", cfg: mealprep.StorageConfig{Backend: "s3"}, wantErr: "missing S3 config: ARTIFACTS_S3_BUCKET must be set"},
		{name: "unknown", cfg: mealprep.StorageConfig{Backend: "floppy"}, wantErr: `unknown storage backend "floppy"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeFn, err := Open(context.Background(), tt.cfg)
			require.NotNil(t, closeFn)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, closeFn()) })
			assert.IsType(t, tt.want, store)
		})
	}
}
