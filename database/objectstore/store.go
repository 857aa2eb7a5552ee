// Package objectstore implements shelf.ItemRepo on an S3-compatible bucket.
//
// Items are JSON objects at <prefix>/<id>.json. Create uses If-None-Match
// and Update/Delete use If-Match on the ETag read beforehand, so concurrent
// writers cannot silently overwrite each other.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sagarc03/shelf"
	"github.com/sagarc03/shelf/internal/awsconfig"
)

// API is the subset of the S3 client used by this package.
type API interface {
	s3.ListObjectsV2APIClient
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config selects the bucket and key prefix.
type Config struct {
	Bucket string
	Prefix string
	// Endpoint overrides the service endpoint for S3-compatible servers.
	Endpoint  string
	PathStyle bool
	AWS       awsconfig.Options
}

// Store provides item storage in a bucket.
type Store struct {
	client API
	bucket string
	prefix string
}

// Connect builds an S3 client from the default AWS credential chain.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.Load(ctx, cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("connect s3: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return New(client, cfg)
}

// New wraps an existing client.
func New(client API, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("new s3 store: bucket cannot be empty")
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = "items"
	}

	return &Store{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

// Ping checks that the bucket exists and is accessible.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("ping s3: %w: %w", shelf.ErrStorageUnavailable, err)
	}
	return nil
}

// Migrate is a no-op; the bucket is provisioned outside the application.
func (s *Store) Migrate(ctx context.Context) error {
	return nil
}

// Validate checks that the bucket is reachable.
func (s *Store) Validate(ctx context.Context) error {
	return s.Ping(ctx)
}

// GetRepo returns the store itself.
func (s *Store) GetRepo() shelf.ItemRepo {
	return s
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func (s *Store) key(id string) string {
	return path.Join(s.prefix, id+".json")
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, shelf.ErrStorageUnavailable, err)
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound"
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.ErrorCode()
	return code == "PreconditionFailed" || code == "ConditionalRequestConflict"
}

// fetch returns the decoded item and its ETag.
func (s *Store) fetch(ctx context.Context, key string) (shelf.Item, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return shelf.Item{}, "", err
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return shelf.Item{}, "", fmt.Errorf("read %s: %w", key, err)
	}

	var item shelf.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return shelf.Item{}, "", fmt.Errorf("decode %s: %w", key, err)
	}

	return item, aws.ToString(out.ETag), nil
}

func (s *Store) put(ctx context.Context, item shelf.Item, ifMatch, ifNoneMatch string) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(item.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	if ifMatch != "" {
		in.IfMatch = aws.String(ifMatch)
	}
	if ifNoneMatch != "" {
		in.IfNoneMatch = aws.String(ifNoneMatch)
	}

	_, err = s.client.PutObject(ctx, in)
	return err
}

func (s *Store) List(ctx context.Context, ownerID string) ([]shelf.Item, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + "/"),
	})

	items := []shelf.Item{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, storageErr("list", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}

			item, _, err := s.fetch(ctx, key)
			if err != nil {
				if isNotFound(err) {
					continue
				}
				return nil, storageErr("list", err)
			}

			if item.OwnerID == ownerID {
				items = append(items, item)
			}
		}
	}

	return items, nil
}

func (s *Store) Get(ctx context.Context, id string) (shelf.Item, error) {
	item, _, err := s.fetch(ctx, s.key(id))
	if err != nil {
		if isNotFound(err) {
			return shelf.Item{}, fmt.Errorf("get %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("get", err)
	}
	return item, nil
}

func (s *Store) Create(ctx context.Context, item shelf.Item) (shelf.Item, error) {
	item.CreatedAt = shelf.Timestamp(item.CreatedAt)
	item.UpdatedAt = shelf.Timestamp(item.UpdatedAt)

	if err := s.put(ctx, item, "", "*"); err != nil {
		if isPreconditionFailed(err) {
			return shelf.Item{}, fmt.Errorf("create %s: %w", item.ID, shelf.ErrConflict)
		}
		return shelf.Item{}, storageErr("create", err)
	}

	return item, nil
}

func (s *Store) Update(ctx context.Context, id string, u shelf.ItemUpdate) (shelf.Item, error) {
	item, etag, err := s.fetch(ctx, s.key(id))
	if err != nil {
		if isNotFound(err) {
			return shelf.Item{}, fmt.Errorf("update %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("update", err)
	}

	item.Name = u.Name
	item.Description = u.Description
	item.UpdatedAt = shelf.Timestamp(u.UpdatedAt)

	if err := s.put(ctx, item, etag, ""); err != nil {
		switch {
		case isNotFound(err):
			return shelf.Item{}, fmt.Errorf("update %s: %w", id, shelf.ErrNotFound)
		case isPreconditionFailed(err):
			return shelf.Item{}, fmt.Errorf("update %s: modified concurrently: %w", id, shelf.ErrStorageUnavailable)
		}
		return shelf.Item{}, storageErr("update", err)
	}

	return item, nil
}

func (s *Store) Delete(ctx context.Context, id string) (shelf.Item, error) {
	key := s.key(id)

	item, etag, err := s.fetch(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return shelf.Item{}, fmt.Errorf("delete %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("delete", err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket:  aws.String(s.bucket),
		Key:     aws.String(key),
		IfMatch: aws.String(etag),
	})
	if err != nil {
		switch {
		case isNotFound(err):
			return shelf.Item{}, fmt.Errorf("delete %s: %w", id, shelf.ErrNotFound)
		case isPreconditionFailed(err):
			return shelf.Item{}, fmt.Errorf("delete %s: modified concurrently: %w", id, shelf.ErrStorageUnavailable)
		}
		return shelf.Item{}, storageErr("delete", err)
	}

	return item, nil
}
