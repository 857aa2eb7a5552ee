package shelf

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ItemRepo defines persistence for items, keyed by item id.
// Implementations must be safe for concurrent use and provide per-key
// atomicity for Create, Update and Delete.
//
// Any failure to reach the backend is wrapped with ErrStorageUnavailable.
// Implementations do not retry.
type ItemRepo interface {
	// List returns every item owned by ownerID in no particular order.
	// An owner without items yields an empty, non-nil slice.
	List(ctx context.Context, ownerID string) ([]Item, error)

	// Get returns the item with the given id.
	//
	// Returns:
	//   - error: ErrNotFound if the id does not exist
	Get(ctx context.Context, id string) (Item, error)

	// Create persists a fully formed item. It never overwrites: an existing
	// id yields ErrConflict.
	Create(ctx context.Context, item Item) (Item, error)

	// Update replaces name, description and updatedAt of an existing item
	// and returns the stored result. It never creates: a missing id yields
	// ErrNotFound.
	Update(ctx context.Context, id string, u ItemUpdate) (Item, error)

	// Delete removes the item and returns the record as it was before
	// deletion. A missing id yields ErrNotFound.
	Delete(ctx context.Context, id string) (Item, error)
}

// Tables holds configurable table names for item storage.
// This allows several deployments to share one database.
type Tables struct {
	Items string `mapstructure:"items"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Items == "" {
		return errors.New("validate tables: items table name cannot be empty")
	}

	if !IsValidTableName(t.Items) {
		return fmt.Errorf("validate tables: invalid items table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Items)
	}

	return nil
}
