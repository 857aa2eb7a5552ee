// Package redis implements shelf.ItemRepo on Redis.
//
// Each item is a JSON document at <prefix>:item:<id>. A set per owner at
// <prefix>:items:owner:<owner> indexes item ids for List. Writes run in
// WATCH/MULTI transactions so the document and the index change together.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sagarc03/shelf"
)

const maxTxAttempts = 5

type repo struct {
	client *redis.Client
	prefix string
}

func (r *repo) itemKey(id string) string {
	return fmt.Sprintf("%s:item:%s", r.prefix, id)
}

func (r *repo) ownerKey(owner string) string {
	return fmt.Sprintf("%s:items:owner:%s", r.prefix, owner)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, shelf.ErrStorageUnavailable, err)
}

// watch runs fn in an optimistic transaction on key, retrying when another
// client modified the key first. Running out of attempts is reported as
// ErrStorageUnavailable.
func (r *repo) watch(ctx context.Context, op, key string, fn func(tx *redis.Tx) error) error {
	for range maxTxAttempts {
		err := r.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%s: %w: too many concurrent writers", op, shelf.ErrStorageUnavailable)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, key string) (shelf.Item, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		return shelf.Item{}, err
	}

	var item shelf.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return shelf.Item{}, fmt.Errorf("decode item: %w", err)
	}

	return item, nil
}

func (r *repo) List(ctx context.Context, ownerID string) ([]shelf.Item, error) {
	ids, err := r.client.SMembers(ctx, r.ownerKey(ownerID)).Result()
	if err != nil {
		return nil, storageErr("list", err)
	}

	items := make([]shelf.Item, 0, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, r.itemKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, storageErr("list", err)
	}

	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, storageErr("list", err)
		}

		var item shelf.Item
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("list: decode item: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}

func (r *repo) Get(ctx context.Context, id string) (shelf.Item, error) {
	item, err := load(ctx, r.client, r.itemKey(id))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shelf.Item{}, fmt.Errorf("get %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("get", err)
	}
	return item, nil
}

func (r *repo) Create(ctx context.Context, item shelf.Item) (shelf.Item, error) {
	item.CreatedAt = shelf.Timestamp(item.CreatedAt)
	item.UpdatedAt = shelf.Timestamp(item.UpdatedAt)

	data, err := json.Marshal(item)
	if err != nil {
		return shelf.Item{}, fmt.Errorf("create: encode item: %w", err)
	}

	key := r.itemKey(item.ID)
	err = r.watch(ctx, "create", key, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return shelf.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, r.ownerKey(item.OwnerID), item.ID)
			return nil
		})
		return err
	})
	if err != nil {
		if errors.Is(err, shelf.ErrConflict) {
			return shelf.Item{}, fmt.Errorf("create %s: %w", item.ID, err)
		}
		if errors.Is(err, shelf.ErrStorageUnavailable) {
			return shelf.Item{}, err
		}
		return shelf.Item{}, storageErr("create", err)
	}

	return item, nil
}

func (r *repo) Update(ctx context.Context, id string, u shelf.ItemUpdate) (shelf.Item, error) {
	var updated shelf.Item

	key := r.itemKey(id)
	err := r.watch(ctx, "update", key, func(tx *redis.Tx) error {
		item, err := load(ctx, tx, key)
		if err != nil {
			return err
		}

		item.Name = u.Name
		item.Description = u.Description
		item.UpdatedAt = shelf.Timestamp(u.UpdatedAt)

		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode item: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetXX(ctx, key, data, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}

		updated = item
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shelf.Item{}, fmt.Errorf("update %s: %w", id, shelf.ErrNotFound)
		}
		if errors.Is(err, shelf.ErrStorageUnavailable) {
			return shelf.Item{}, err
		}
		return shelf.Item{}, storageErr("update", err)
	}

	return updated, nil
}

func (r *repo) Delete(ctx context.Context, id string) (shelf.Item, error) {
	var deleted shelf.Item

	key := r.itemKey(id)
	err := r.watch(ctx, "delete", key, func(tx *redis.Tx) error {
		item, err := load(ctx, tx, key)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, r.ownerKey(item.OwnerID), id)
			return nil
		})
		if err != nil {
			return err
		}

		deleted = item
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shelf.Item{}, fmt.Errorf("delete %s: %w", id, shelf.ErrNotFound)
		}
		if errors.Is(err, shelf.ErrStorageUnavailable) {
			return shelf.Item{}, err
		}
		return shelf.Item{}, storageErr("delete", err)
	}

	return deleted, nil
}
