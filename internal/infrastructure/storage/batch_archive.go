// Package storage archives raw ERP batches to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appprocurement "github.com/erp/supplier-portal/internal/application/procurement"
	"github.com/erp/supplier-portal/internal/domain/integration"
	infraconfig "github.com/erp/supplier-portal/internal/infrastructure/config"
)

var (
	_ appprocurement.BatchArchive = (*S3BatchArchive)(nil)
	_ appprocurement.BatchArchive = NopBatchArchive{}
)

// archivedBatch is the JSON document written for every fetched batch
type archivedBatch struct {
	RunID     uuid.UUID             `json:"run_id"`
	FetchedAt time.Time             `json:"fetched_at"`
	Count     int                   `json:"count"`
	Lines     []integration.RawLine `json:"lines"`
}

// S3BatchArchive stores raw ERP batches in an S3-compatible bucket (AWS S3, MinIO, RustFS).
// Objects are keyed {prefix}/{yyyy}/{mm}/{dd}/{runID}.json by UTC fetch date.
type S3BatchArchive struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// S3BatchArchiveOption is a functional option for configuring S3BatchArchive
type S3BatchArchiveOption func(*S3BatchArchive)

// WithLogger sets a custom logger for S3BatchArchive
func WithLogger(logger *zap.Logger) S3BatchArchiveOption {
	return func(a *S3BatchArchive) {
		a.logger = logger
	}
}

// NewS3BatchArchive creates a new S3BatchArchive from configuration.
// Without static keys the default AWS credential chain is used.
func NewS3BatchArchive(cfg *infraconfig.ArchiveConfig, opts ...S3BatchArchiveOption) (*S3BatchArchive, error) {
	if cfg == nil {
		return nil, errors.New("archive configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, errors.New("archive access key and secret key must be set together")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var endpoint string
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid archive endpoint: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	archive := &S3BatchArchive{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	return archive, nil
}

// Key returns the object key a batch is stored under
func (a *S3BatchArchive) Key(runID uuid.UUID, fetchedAt time.Time) string {
	day := fetchedAt.UTC()
	return path.Join(
		a.prefix,
		fmt.Sprintf("%04d", day.Year()),
		fmt.Sprintf("%02d", int(day.Month())),
		fmt.Sprintf("%02d", day.Day()),
		runID.String()+".json",
	)
}

// Archive uploads the batch as one JSON object
func (a *S3BatchArchive) Archive(ctx context.Context, runID uuid.UUID, fetchedAt time.Time, lines []integration.RawLine) error {
	if runID == uuid.Nil {
		return errors.New("run ID is required")
	}
	if lines == nil {
		lines = []integration.RawLine{}
	}

	body, err := json.Marshal(archivedBatch{
		RunID:     runID,
		FetchedAt: fetchedAt.UTC(),
		Count:     len(lines),
		Lines:     lines,
	})
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	key := a.Key(runID, fetchedAt)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload batch %s: %w", key, err)
	}

	a.logger.Debug("Batch archived",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.Int("lines", len(lines)),
	)
	return nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (a *S3BatchArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("Creating archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		// Another instance may have created it in between
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Bucket returns the bucket name
func (a *S3BatchArchive) Bucket() string {
	return a.bucket
}

// NopBatchArchive discards every batch. It is used when archiving is disabled.
type NopBatchArchive struct{}

// Archive does nothing
func (NopBatchArchive) Archive(context.Context, uuid.UUID, time.Time, []integration.RawLine) error {
	return nil
}
