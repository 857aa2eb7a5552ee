// Package sqlite implements shelf.ItemRepo on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sagarc03/shelf"
)

const itemColumns = `id, owner_id, name, description, created_at, updated_at`

type repo struct {
	db        *sql.DB
	tableName string
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (shelf.Item, error) {
	var item shelf.Item
	var createdAt, updatedAt string

	if err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &item.Description, &createdAt, &updatedAt); err != nil {
		return shelf.Item{}, err
	}

	var err error
	item.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return shelf.Item{}, fmt.Errorf("parse created_at: %w", err)
	}

	item.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return shelf.Item{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return item, nil
}

func formatTime(t time.Time) string {
	return shelf.Timestamp(t).Format(time.RFC3339Nano)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, shelf.ErrStorageUnavailable, err)
}

func (r *repo) List(ctx context.Context, ownerID string) ([]shelf.Item, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s WHERE owner_id = ?`, itemColumns, quoteIdentifier(r.tableName))

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, storageErr("list", err)
	}
	defer func() { _ = rows.Close() }()

	items := []shelf.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("list", err)
	}

	return items, nil
}

func (r *repo) Get(ctx context.Context, id string) (shelf.Item, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s WHERE id = ?`, itemColumns, quoteIdentifier(r.tableName))

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return shelf.Item{}, fmt.Errorf("get %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("get", err)
	}

	return item, nil
}

func (r *repo) Create(ctx context.Context, item shelf.Item) (shelf.Item, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`, quoteIdentifier(r.tableName), itemColumns)

	item.CreatedAt = shelf.Timestamp(item.CreatedAt)
	item.UpdatedAt = shelf.Timestamp(item.UpdatedAt)

	result, err := r.db.ExecContext(ctx, query,
		item.ID, item.OwnerID, item.Name, item.Description,
		formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
	)
	if err != nil {
		return shelf.Item{}, storageErr("create", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return shelf.Item{}, storageErr("create", err)
	}

	if n == 0 {
		return shelf.Item{}, fmt.Errorf("create %s: %w", item.ID, shelf.ErrConflict)
	}

	return item, nil
}

func (r *repo) Update(ctx context.Context, id string, u shelf.ItemUpdate) (shelf.Item, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s SET name = ?, description = ?, updated_at = ?
		WHERE id = ?
		RETURNING %s`, quoteIdentifier(r.tableName), itemColumns)

	item, err := scanItem(r.db.QueryRowContext(ctx, query, u.Name, u.Description, formatTime(u.UpdatedAt), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return shelf.Item{}, fmt.Errorf("update %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("update", err)
	}

	return item, nil
}

func (r *repo) Delete(ctx context.Context, id string) (shelf.Item, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE id = ? RETURNING %s`, quoteIdentifier(r.tableName), itemColumns)

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return shelf.Item{}, fmt.Errorf("delete %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("delete", err)
	}

	return item, nil
}
