package storage

import (
	"context"
	"fmt"

	"github.com/codebench/codebench/internal/config"
	"github.com/codebench/codebench/internal/storage/local"
	"github.com/codebench/codebench/internal/storage/s3"
)

// NewFromConfig builds the snapshot backend selected by configuration.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.SnapshotBackend {
	case "local":
		return local.New(cfg.LocalSnapshotPath)
	case "s3":
		return s3.New(ctx, s3.Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}
}
