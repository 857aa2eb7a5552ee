package redis

import (
	"context"
	"fmt"
	"regexp"

	"github.com/go-redis/redis/v8"
	"github.com/sagarc03/shelf"
)

var validPrefix = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

type database struct {
	client *redis.Client
	prefix string
}

// Connect creates a client from a redis:// or rediss:// URL. Keys are
// namespaced under prefix.
func Connect(ctx context.Context, url, prefix string) (*database, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return New(redis.NewClient(opts), prefix)
}

// New wraps an existing client.
func New(client *redis.Client, prefix string) (*database, error) {
	if !validPrefix.MatchString(prefix) {
		return nil, fmt.Errorf("new redis: invalid key prefix: %q", prefix)
	}

	return &database{client: client, prefix: prefix}, nil
}

// Ping verifies the server is reachable.
func (d *database) Ping(ctx context.Context) error {
	if err := d.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w: %w", shelf.ErrStorageUnavailable, err)
	}
	return nil
}

// Migrate is a no-op; Redis keys need no schema.
func (d *database) Migrate(ctx context.Context) error {
	return nil
}

// Validate is a no-op; Redis keys need no schema.
func (d *database) Validate(ctx context.Context) error {
	return nil
}

// GetRepo returns the ItemRepo backed by this client.
func (d *database) GetRepo() shelf.ItemRepo {
	return &repo{client: d.client, prefix: d.prefix}
}

// Close closes the client and its connection pool.
func (d *database) Close() error {
	return d.client.Close()
}
