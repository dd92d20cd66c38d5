package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"mealprep"
)

// Open builds the store cfg selects. The returned close func releases the backend and is
// never nil.
func Open(ctx context.Context, cfg mealprep.StorageConfig) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "memory":
		slog.Info("STORAGE: Using in-memory store")
		return NewMemoryStore(), noop, nil
	case "", "file":
		slog.Info("STORAGE: Using file store", "dir", cfg.Dir)
		return NewFileStore(cfg.Dir), noop, nil
	case "badger":
		db, err := OpenBadger(BadgerConfig{Path: cfg.BadgerPath, SyncWrites: true, Logger: slog.Default()})
		if err != nil {
			return nil, noop, err
		}
		slog.Info("STORAGE: Using badger store", "path", cfg.BadgerPath)
		return db, db.Close, nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, noop, fmt.Errorf("missing S3 config: ARTIFACTS_S3_BUCKET must be set")
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return nil, noop, fmt.Errorf("failed to load AWS config: %w", err)
		}
		slog.Info("STORAGE: Using S3 store", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
		return NewS3Store(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Prefix), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
