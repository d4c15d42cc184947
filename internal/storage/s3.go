package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"bfsp/ingestion/internal/metrics"
	"bfsp/ingestion/internal/models"
	"bfsp/ingestion/internal/retry"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// S3Config holds S3 store configuration
type S3Config struct {
	Bucket      string
	Prefix      string
	Region      string
	EndpointURL string // optional, for localstack/minio
}

// S3Store persists artifacts to an S3 bucket
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
	policy retry.Policy
}

// NewS3Store creates an S3-backed store using the default AWS credential chain
func NewS3Store(ctx context.Context, cfg S3Config, policy retry.Policy) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	log.Info().
		Str("bucket", cfg.Bucket).
		Str("prefix", cfg.Prefix).
		Str("region", cfg.Region).
		Msg("S3 store initialized")

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		policy: policy,
	}, nil
}

// objectKey prepends the store prefix to the key's deterministic path
func (s *S3Store) objectKey(key models.ArtifactKey) string {
	return path.Join(s.prefix, key.ObjectKey())
}

// Exists probes for the artifact with a HeadObject call, retrying transient
// backend errors. An error after retries means "cannot determine", which the
// caller must treat as a failure for the key.
func (s *S3Store) Exists(ctx context.Context, key models.ArtifactKey) (bool, error) {
	objKey := s.objectKey(key)

	start := time.Now()
	var found bool
	err := s.policy.Do(ctx, "head "+objKey, func() error {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objKey),
		})
		if err == nil {
			found = true
			return nil
		}
		var nf *types.NotFound
		if errors.As(err, &nf) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		metrics.RecordStorageOp("head", "error", time.Since(start).Seconds())
		return false, models.NewStorageError(key, fmt.Errorf("existence check failed: %w", err))
	}
	metrics.RecordStorageOp("head", "ok", time.Since(start).Seconds())
	return found, nil
}

// Put uploads the payload with a single PutObject call, retried on failure.
// S3 puts are atomic per object, so a retried upload never exposes a
// partial artifact.
func (s *S3Store) Put(ctx context.Context, key models.ArtifactKey, payload []byte) error {
	objKey := s.objectKey(key)

	start := time.Now()
	err := s.policy.Do(ctx, "put "+objKey, func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(objKey),
			Body:        bytes.NewReader(payload),
			ContentType: aws.String("text/csv"),
		})
		return err
	})
	if err != nil {
		metrics.RecordStorageOp("put", "error", time.Since(start).Seconds())
		return models.NewStorageError(key, fmt.Errorf("upload failed: %w", err))
	}
	metrics.RecordStorageOp("put", "ok", time.Since(start).Seconds())

	log.Debug().
		Str("key", objKey).
		Int("bytes", len(payload)).
		Msg("Artifact uploaded")
	return nil
}

// List pages through every object under the store prefix and returns the
// keys with the prefix trimmed, so they compare equal to ArtifactKey paths
func (s *S3Store) List(ctx context.Context) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}

	start := time.Now()
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			metrics.RecordStorageOp("list", "error", time.Since(start).Seconds())
			return nil, fmt.Errorf("failed to list bucket %s: %w", s.bucket, err)
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if s.prefix != "" {
				k = strings.TrimPrefix(k, s.prefix+"/")
			}
			keys = append(keys, k)
		}
	}
	metrics.RecordStorageOp("list", "ok", time.Since(start).Seconds())

	log.Info().
		Str("bucket", s.bucket).
		Int("objects", len(keys)).
		Msg("Bucket listing complete")
	return keys, nil
}

// PutRaw uploads arbitrary bytes under an explicit key, used for run reports.
// Not retried: losing a report never fails a run.
func (s *S3Store) PutRaw(ctx context.Context, key string, payload []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
