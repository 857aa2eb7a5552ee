// Package postgres implements shelf.ItemRepo on PostgreSQL using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/shelf"
)

const itemColumns = `id, owner_id, name, description, created_at, updated_at`

type repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *repo) table() string {
	return pgx.Identifier{r.tableName}.Sanitize()
}

func scanItem(row pgx.Row) (shelf.Item, error) {
	var item shelf.Item
	err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &item.Description, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return shelf.Item{}, err
	}

	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()

	return item, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, shelf.ErrStorageUnavailable, err)
}

func (r *repo) List(ctx context.Context, ownerID string) ([]shelf.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = $1`, itemColumns, r.table())

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, storageErr("list", err)
	}
	defer rows.Close()

	items := []shelf.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storageErr("list", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("list", err)
	}

	return items, nil
}

func (r *repo) Get(ctx context.Context, id string) (shelf.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, itemColumns, r.table())

	item, err := scanItem(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shelf.Item{}, fmt.Errorf("get %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("get", err)
	}

	return item, nil
}

func (r *repo) Create(ctx context.Context, item shelf.Item) (shelf.Item, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, r.table(), itemColumns)

	item.CreatedAt = shelf.Timestamp(item.CreatedAt)
	item.UpdatedAt = shelf.Timestamp(item.UpdatedAt)

	tag, err := r.pool.Exec(ctx, query,
		item.ID, item.OwnerID, item.Name, item.Description, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return shelf.Item{}, storageErr("create", err)
	}

	if tag.RowsAffected() == 0 {
		return shelf.Item{}, fmt.Errorf("create %s: %w", item.ID, shelf.ErrConflict)
	}

	return item, nil
}

func (r *repo) Update(ctx context.Context, id string, u shelf.ItemUpdate) (shelf.Item, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
		RETURNING %s
	`, r.table(), itemColumns)

	item, err := scanItem(r.pool.QueryRow(ctx, query, id, u.Name, u.Description, shelf.Timestamp(u.UpdatedAt)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shelf.Item{}, fmt.Errorf("update %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("update", err)
	}

	return item, nil
}

func (r *repo) Delete(ctx context.Context, id string) (shelf.Item, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 RETURNING %s`, r.table(), itemColumns)

	item, err := scanItem(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shelf.Item{}, fmt.Errorf("delete %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("delete", err)
	}

	return item, nil
}
