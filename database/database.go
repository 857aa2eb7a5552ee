package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sagarc03/shelf"
	"github.com/sagarc03/shelf/database/dynamo"
	"github.com/sagarc03/shelf/database/file"
	"github.com/sagarc03/shelf/database/objectstore"
	"github.com/sagarc03/shelf/database/postgres"
	"github.com/sagarc03/shelf/database/redis"
	"github.com/sagarc03/shelf/database/sqlite"
	"github.com/sagarc03/shelf/internal/awsconfig"
)

// Supported backend types.
const (
	TypeDynamoDB = "dynamodb"
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
	TypeRedis    = "redis"
	TypeS3       = "s3"
	TypeFile     = "file"
)

// Database is a connected item store backend.
type Database interface {
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Migrate creates tables, indexes or directories the backend needs.
	// It is idempotent.
	Migrate(ctx context.Context) error
	// Validate checks that the existing schema matches what the repo expects.
	Validate(ctx context.Context) error
	// GetRepo returns the ItemRepo for this backend.
	GetRepo() shelf.ItemRepo
	// Close releases connections.
	Close() error
}

// Config holds the configuration for connecting to an item store backend.
type Config struct {
	// Type is one of dynamodb, postgres, sqlite, redis, s3, file.
	Type string `mapstructure:"type" validate:"required,oneof=dynamodb postgres sqlite redis s3 file"`
	// DSN is the connection string (postgres, sqlite), URL (redis),
	// bucket (s3) or directory (file). Unused for dynamodb.
	DSN string `mapstructure:"dsn" validate:"required_unless=Type dynamodb"`
	// Tables names the items table (SQL, dynamodb) or key prefix (redis, s3).
	Tables shelf.Tables `mapstructure:"tables"`
	// OwnerIndex is the DynamoDB global secondary index on user_id.
	OwnerIndex string `mapstructure:"owner_index"`
	// Endpoint overrides the AWS service endpoint (dynamodb, s3).
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
	// PathStyle forces path-style S3 addressing.
	PathStyle bool              `mapstructure:"path_style"`
	AWS       awsconfig.Options `mapstructure:"aws"`
}

// Connect creates a backend for cfg.Type. It does not verify connectivity
// or touch the schema; see Open.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	switch cfg.Type {
	case TypeSQLite:
		return sqlite.Connect(ctx, cfg.DSN, cfg.Tables)
	case TypePostgres:
		return postgres.Connect(ctx, cfg.DSN, cfg.Tables)
	case TypeDynamoDB:
		return dynamo.Connect(ctx, dynamo.Config{
			Table:      cfg.Tables.Items,
			OwnerIndex: cfg.OwnerIndex,
			Endpoint:   cfg.Endpoint,
			AWS:        cfg.AWS,
		})
	case TypeRedis:
		return redis.Connect(ctx, cfg.DSN, cfg.Tables.Items)
	case TypeS3:
		return objectstore.Connect(ctx, objectstore.Config{
			Bucket:    cfg.DSN,
			Prefix:    cfg.Tables.Items,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
			AWS:       cfg.AWS,
		})
	case TypeFile:
		return file.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// OpenOptions control startup behaviour of Open.
type OpenOptions struct {
	// Migrate runs Migrate before Validate.
	Migrate bool
	// PingTimeout bounds how long Open retries Ping while the backend comes
	// up. Zero pings once.
	PingTimeout time.Duration
}

// Open connects, waits for the backend to answer, optionally migrates and
// validates the schema. The caller must Close the returned Database.
func Open(ctx context.Context, cfg Config, opts OpenOptions) (Database, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := ping(ctx, db, opts.PingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}

	if opts.Migrate {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open %s: %w", cfg.Type, err)
		}
	}

	if err := db.Validate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", cfg.Type, err)
	}

	return db, nil
}

func ping(ctx context.Context, db Database, timeout time.Duration) error {
	if timeout <= 0 {
		return db.Ping(ctx)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 200 * time.Millisecond
	exp.MaxInterval = 5 * time.Second
	exp.MaxElapsedTime = timeout

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := db.Ping(ctx)
		if err != nil {
			slog.Warn("storage not ready", "attempt", attempt, "err", err)
		}
		return err
	}, backoff.WithContext(exp, ctx))
}
