// Package file implements shelf.ItemRepo on a local directory.
//
// Every item is a JSON document at items/<id>.json under a sandboxed
// os.Root. Writes go to a temp file that is then linked or renamed into
// place, so readers never observe a partial document.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sagarc03/shelf"
)

const itemsDir = "items"

// Store provides item storage on the file system.
type Store struct {
	root *os.Root
	// mu serializes read-modify-write sequences within this process.
	mu sync.Mutex
}

// Open opens (creating if needed) dir as the store root.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("open file store: %w", err)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open file store: %w", err)
	}

	return NewStore(root), nil
}

// NewStore wraps an already opened root. The root provides sandboxed file
// operations preventing path traversal.
func NewStore(root *os.Root) *Store {
	return &Store{root: root}
}

// Ping checks that the root directory is still accessible.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.root.Stat("."); err != nil {
		return fmt.Errorf("ping file store: %w: %w", shelf.ErrStorageUnavailable, err)
	}
	return nil
}

// Migrate creates the items directory.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.root.MkdirAll(itemsDir, 0o750); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the items directory exists.
func (s *Store) Validate(ctx context.Context) error {
	info, err := s.root.Stat(itemsDir)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("validate: %s is not a directory", itemsDir)
	}
	return nil
}

// GetRepo returns the store itself.
func (s *Store) GetRepo() shelf.ItemRepo {
	return s
}

// Close releases the root directory handle.
func (s *Store) Close() error {
	return s.root.Close()
}

func itemPath(id string) (string, error) {
	if !shelf.IsValidID(id) {
		return "", fmt.Errorf("%w: invalid item id", shelf.ErrInvalidInput)
	}
	return path.Join(itemsDir, id+".json"), nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, shelf.ErrStorageUnavailable, err)
}

func (s *Store) read(name string) (shelf.Item, error) {
	data, err := s.root.ReadFile(name)
	if err != nil {
		return shelf.Item{}, err
	}

	var item shelf.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return shelf.Item{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return item, nil
}

// writeTemp writes item to a fresh temp file and returns its name.
func (s *Store) writeTemp(ctx context.Context, item shelf.Item) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := json.Marshal(item)
	if err != nil {
		return "", fmt.Errorf("encode item: %w", err)
	}

	name := path.Join(itemsDir, fmt.Sprintf(".t%s", uuid.NewString()))
	f, err := s.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("open temp file: %w", err)
	}

	_, writeErr := f.Write(data)
	syncErr := f.Sync()
	closeErr := f.Close()
	if err := errors.Join(writeErr, syncErr, closeErr); err != nil {
		s.removeTemp(name)
		return "", fmt.Errorf("write temp file: %w", err)
	}

	return name, nil
}

func (s *Store) removeTemp(name string) {
	if err := s.root.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to remove tmp file", "file", name, "err", err)
	}
}

func (s *Store) List(ctx context.Context, ownerID string) ([]shelf.Item, error) {
	entries, err := fs.ReadDir(s.root.FS(), itemsDir)
	if err != nil {
		return nil, storageErr("list", err)
	}

	items := []shelf.Item{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}

		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}

		item, err := s.read(path.Join(itemsDir, name))
		if err != nil {
			// Deleted between ReadDir and ReadFile.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, storageErr("list", err)
		}

		if item.OwnerID == ownerID {
			items = append(items, item)
		}
	}

	return items, nil
}

func (s *Store) Get(ctx context.Context, id string) (shelf.Item, error) {
	if err := ctx.Err(); err != nil {
		return shelf.Item{}, fmt.Errorf("get: %w", err)
	}

	name, err := itemPath(id)
	if err != nil {
		return shelf.Item{}, fmt.Errorf("get: %w", err)
	}

	item, err := s.read(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return shelf.Item{}, fmt.Errorf("get %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("get", err)
	}

	return item, nil
}

// Create links a temp file to the item path; the link fails if the path
// already exists, even across processes sharing the directory.
func (s *Store) Create(ctx context.Context, item shelf.Item) (shelf.Item, error) {
	name, err := itemPath(item.ID)
	if err != nil {
		return shelf.Item{}, fmt.Errorf("create: %w", err)
	}

	item.CreatedAt = shelf.Timestamp(item.CreatedAt)
	item.UpdatedAt = shelf.Timestamp(item.UpdatedAt)

	tmp, err := s.writeTemp(ctx, item)
	if err != nil {
		return shelf.Item{}, storageErr("create", err)
	}
	defer s.removeTemp(tmp)

	if err := s.root.Link(tmp, name); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return shelf.Item{}, fmt.Errorf("create %s: %w", item.ID, shelf.ErrConflict)
		}
		return shelf.Item{}, storageErr("create", err)
	}

	return item, nil
}

func (s *Store) Update(ctx context.Context, id string, u shelf.ItemUpdate) (shelf.Item, error) {
	name, err := itemPath(id)
	if err != nil {
		return shelf.Item{}, fmt.Errorf("update: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.read(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return shelf.Item{}, fmt.Errorf("update %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("update", err)
	}

	item.Name = u.Name
	item.Description = u.Description
	item.UpdatedAt = shelf.Timestamp(u.UpdatedAt)

	tmp, err := s.writeTemp(ctx, item)
	if err != nil {
		return shelf.Item{}, storageErr("update", err)
	}

	if err := s.root.Rename(tmp, name); err != nil {
		s.removeTemp(tmp)
		return shelf.Item{}, storageErr("update", err)
	}

	return item, nil
}

func (s *Store) Delete(ctx context.Context, id string) (shelf.Item, error) {
	if err := ctx.Err(); err != nil {
		return shelf.Item{}, fmt.Errorf("delete: %w", err)
	}

	name, err := itemPath(id)
	if err != nil {
		return shelf.Item{}, fmt.Errorf("delete: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.read(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return shelf.Item{}, fmt.Errorf("delete %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("delete", err)
	}

	if err := s.root.Remove(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return shelf.Item{}, fmt.Errorf("delete %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("delete", err)
	}

	return item, nil
}
