// Package history archives completed runs to S3-compatible object storage
// as Parquet, one object per run, partitioned by date. The archive is a
// diagnostics sink: failures are logged and never surface to the caller.
package history

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sqlscout/sqlscout/internal/agent"
	"github.com/sqlscout/sqlscout/internal/config"
)

type objectWriter interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
	CreateBucket(ctx context.Context, bucket, region string) error
}

// Store is a write-only run archive. It implements agent.Archiver.
type Store struct {
	client  objectWriter
	bucket  string
	prefix  string
	dialect string
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

func New(ctx context.Context, cfg config.HistoryConfig, dialect string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("history endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("history bucket is required")
	}

	mc, err := newMinioWriter(cfg)
	if err != nil {
		return nil, err
	}
	store := newStore(mc, cfg.Bucket, cfg.Prefix, dialect, logger)
	if cfg.AutoCreateBucket {
		if err := store.ensureBucket(ctx, strings.TrimSpace(cfg.Region)); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// NewWithClient wraps an existing object client. Used by tests.
func NewWithClient(c objectWriter, bucket, prefix, dialect string, logger *slog.Logger) (*Store, error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return newStore(c, bucket, prefix, dialect, logger), nil
}

func newStore(c objectWriter, bucket, prefix, dialect string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:  c,
		bucket:  strings.TrimSpace(bucket),
		prefix:  cleanPrefix(prefix),
		dialect: dialect,
		logger:  logger,
		now:     time.Now,
		newID:   newRunID,
	}
}

// Archive persists one terminal response. It never returns an error: a run
// that answered the user must not fail because the archive is down.
func (s *Store) Archive(ctx context.Context, question string, resp *agent.Response) {
	runID := s.newID()
	askedAt := s.now()

	data, err := encodeRun(runID, question, s.dialect, askedAt, resp)
	if err != nil {
		s.logger.Warn("encode run archive", "run_id", runID, "error", err)
		return
	}

	key := objectKey(runID, askedAt)
	if s.prefix != "" {
		key = path.Join(s.prefix, key)
	}
	if err := s.client.Put(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), "application/vnd.apache.parquet"); err != nil {
		s.logger.Warn("put run archive", "run_id", runID, "key", key, "error", err)
		return
	}
	s.logger.Debug("archived run", "run_id", runID, "key", key, "attempts", resp.Attempts)
}

func (s *Store) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.CreateBucket(ctx, s.bucket, region); err != nil {
		return fmt.Errorf("create bucket %q: %w", s.bucket, err)
	}
	return nil
}

func cleanPrefix(prefix string) string {
	prefix = strings.TrimSpace(strings.TrimPrefix(prefix, "/"))
	if prefix == "" {
		return ""
	}
	prefix = path.Clean(prefix)
	if prefix == "." {
		return ""
	}
	return prefix
}

func newRunID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func newMinioWriter(cfg config.HistoryConfig) (*minioWriter, error) {
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	clientImpl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &minioWriter{client: clientImpl}, nil
}

func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("endpoint is required")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", false, fmt.Errorf("parse endpoint URL: %w", err)
		}
		if parsed.Host == "" {
			return "", false, fmt.Errorf("endpoint host is required")
		}
		if parsed.Scheme == "https" {
			return parsed.Host, true, nil
		}
		return parsed.Host, useSSL, nil
	}
	return raw, useSSL, nil
}

type minioWriter struct {
	client *minio.Client
}

func (m *minioWriter) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m *minioWriter) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return m.client.BucketExists(ctx, bucket)
}

func (m *minioWriter) CreateBucket(ctx context.Context, bucket, region string) error {
	return m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}
