// Package blobstore stores collection snapshots as objects in an S3-compatible
// bucket (AWS S3 or MinIO), one object per collection.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"golang.org/x/sync/errgroup"

	"github.com/example/resource-booker/internal/persistence"
)

// Config holds explicit construction parameters.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional; enables a custom endpoint such as MinIO
	Prefix          string // optional key prefix, e.g. "booker/"
	PathStyle       bool
	AccessKeyID     string // optional; falls back to the default credentials chain
	SecretAccessKey string
}

// objectAPI is the subset of *s3.Client the store uses.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store is a persistence.Backend over an S3 bucket. Writes of several
// collections run concurrently and are not atomic across objects: when one put
// fails the others may already be stored, so an operation that commits users,
// resources, and bookings together (deleting or renaming a user) can be left
// durably half-applied. Use the sqlite or postgres backend when that matters.
type Store struct {
	client objectAPI
	bucket string
	prefix string
}

// New creates a Store from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
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
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newStore(client, cfg.Bucket, cfg.Prefix), nil
}

func newStore(client objectAPI, bucket, prefix string) *Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key holding collection c.
func (s *Store) Key(c persistence.Collection) string {
	return s.prefix + string(c) + ".json"
}

// ReadSnapshot downloads the collection object or returns persistence.ErrSnapshotMissing.
func (s *Store) ReadSnapshot(ctx context.Context, c persistence.Collection) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", persistence.ErrUnknownCollection, c)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(s.Key(c))})
	if err != nil {
		if isNotFound(err) {
			return nil, persistence.ErrSnapshotMissing
		}
		return nil, fmt.Errorf("get %s: %w", s.Key(c), err)
	}
	defer out.Body.Close()
	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Key(c), err)
	}
	return payload, nil
}

// WriteSnapshots uploads every payload concurrently.
func (s *Store) WriteSnapshots(ctx context.Context, snapshots map[persistence.Collection][]byte) error {
	for c := range snapshots {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", persistence.ErrUnknownCollection, c)
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	for c, payload := range snapshots {
		key := s.Key(c)
		body := payload
		g.Go(func() error {
			_, err := s.client.PutObject(gctx, &s3.PutObjectInput{
				Bucket:        aws.String(s.bucket),
				Key:           aws.String(key),
				Body:          bytes.NewReader(body),
				ContentLength: aws.Int64(int64(len(body))),
				ContentType:   aws.String("application/json"),
			})
			if err != nil {
				return fmt.Errorf("put %s: %w", key, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *Store) Close() error {
	return nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
