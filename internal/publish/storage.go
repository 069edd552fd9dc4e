package publish

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/artemlk/uniqimg/internal/config"
	"github.com/artemlk/uniqimg/internal/model"
)

// Uploader pushes processed assets and the report to an S3-compatible
// bucket so downstream channels can pick them up.
type Uploader struct {
	client     *minio.Client
	bucketName string
	strategy   retry.Strategy
}

// NewUploader connects to the configured endpoint and creates the bucket
// if it does not exist yet.
func NewUploader(ctx context.Context, cfg config.Publish, strategy retry.Strategy) (*Uploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Uploader{
		client:     client,
		bucketName: cfg.BucketName,
		strategy:   strategy,
	}, nil
}

// UploadBatch uploads every written output plus the report, keyed under the
// batch ID. Individual upload failures are retried per the configured
// strategy and logged; one bad object does not stop the rest.
func (u *Uploader) UploadBatch(ctx context.Context, batch model.BatchResult, outputDir string) error {
	var failed int

	for _, r := range batch.Results {
		if r.Status != model.StatusProcessed && r.Status != model.StatusProcessedRename {
			continue
		}
		if err := u.uploadFile(ctx, batch.ID.String(), outputDir, r.Task.OutputPath); err != nil {
			zlog.Logger.Err(err).Str("path", r.Task.OutputPath).Msg("failed to upload output")
			failed++
		}
	}

	if batch.ReportPath != "" {
		if err := u.uploadFile(ctx, batch.ID.String(), outputDir, batch.ReportPath); err != nil {
			zlog.Logger.Err(err).Str("path", batch.ReportPath).Msg("failed to upload report")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d object(s) failed to upload", failed)
	}
	return nil
}

func (u *Uploader) uploadFile(ctx context.Context, prefix, outputDir, path string) error {
	rel, err := filepath.Rel(outputDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	objectName := filepath.ToSlash(filepath.Join(prefix, rel))

	return retry.Do(func() error {
		_, err := u.client.FPutObject(ctx, u.bucketName, objectName, path, minio.PutObjectOptions{
			ContentType: contentType(path),
		})
		return err
	}, u.strategy)
}

func contentType(path string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		return t
	}
	return "application/octet-stream"
}
