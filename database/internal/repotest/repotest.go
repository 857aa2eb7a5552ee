// Package repotest holds the behavioural checks every shelf.ItemRepo
// implementation must pass.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/shelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty repo. It is called once per subtest.
type Factory func(t *testing.T) shelf.ItemRepo

// NewItem returns a fully formed item owned by owner.
func NewItem(owner, name string) shelf.Item {
	now := shelf.Timestamp(time.Now())
	return shelf.Item{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		Name:        name,
		Description: name + " description",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Run executes the full contract suite against repos built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("create then get returns identical item", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		item := NewItem("owner-a", "Test Item")
		created, err := repo.Create(ctx, item)
		require.NoError(t, err)
		assertItemEqual(t, item, created)

		got, err := repo.Get(ctx, item.ID)
		require.NoError(t, err)
		assertItemEqual(t, item, got)
	})

	t.Run("create keeps unicode and empty strings", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		item := NewItem("owner-a", "")
		item.Description = "полка 本棚 \"quoted\" 'single'"
		_, err := repo.Create(ctx, item)
		require.NoError(t, err)

		got, err := repo.Get(ctx, item.ID)
		require.NoError(t, err)
		assertItemEqual(t, item, got)
	})

	t.Run("create with existing id conflicts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		item := NewItem("owner-a", "first")
		_, err := repo.Create(ctx, item)
		require.NoError(t, err)

		dup := item
		dup.Name = "second"
		_, err = repo.Create(ctx, dup)
		assert.ErrorIs(t, err, shelf.ErrConflict)

		got, err := repo.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, "first", got.Name, "existing item must not be overwritten")
	})

	t.Run("get missing", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Get(context.Background(), uuid.NewString())
		assert.ErrorIs(t, err, shelf.ErrNotFound)
	})

	t.Run("update replaces mutable fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		item := NewItem("owner-a", "old")
		_, err := repo.Create(ctx, item)
		require.NoError(t, err)

		u := shelf.ItemUpdate{
			Name:        "new",
			Description: "new description",
			UpdatedAt:   item.UpdatedAt.Add(time.Second),
		}
		updated, err := repo.Update(ctx, item.ID, u)
		require.NoError(t, err)

		assert.Equal(t, item.ID, updated.ID)
		assert.Equal(t, item.OwnerID, updated.OwnerID)
		assert.Equal(t, "new", updated.Name)
		assert.Equal(t, "new description", updated.Description)
		assert.True(t, item.CreatedAt.Equal(updated.CreatedAt), "createdAt must not change")
		assert.True(t, u.UpdatedAt.Equal(updated.UpdatedAt))

		got, err := repo.Get(ctx, item.ID)
		require.NoError(t, err)
		assertItemEqual(t, updated, got)
	})

	t.Run("update missing does not create", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		id := uuid.NewString()
		_, err := repo.Update(ctx, id, shelf.ItemUpdate{Name: "n", Description: "d", UpdatedAt: time.Now()})
		assert.ErrorIs(t, err, shelf.ErrNotFound)

		_, err = repo.Get(ctx, id)
		assert.ErrorIs(t, err, shelf.ErrNotFound)
	})

	t.Run("delete returns prior record and second delete fails", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		item := NewItem("owner-a", "doomed")
		_, err := repo.Create(ctx, item)
		require.NoError(t, err)

		deleted, err := repo.Delete(ctx, item.ID)
		require.NoError(t, err)
		assertItemEqual(t, item, deleted)

		_, err = repo.Get(ctx, item.ID)
		assert.ErrorIs(t, err, shelf.ErrNotFound)

		_, err = repo.Delete(ctx, item.ID)
		assert.ErrorIs(t, err, shelf.ErrNotFound)
	})

	t.Run("list is scoped to owner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var mine []shelf.Item
		for i := range 3 {
			item := NewItem("owner-a", fmt.Sprintf("mine-%d", i))
			_, err := repo.Create(ctx, item)
			require.NoError(t, err)
			mine = append(mine, item)
		}
		_, err := repo.Create(ctx, NewItem("owner-b", "theirs"))
		require.NoError(t, err)

		got, err := repo.List(ctx, "owner-a")
		require.NoError(t, err)
		require.Len(t, got, len(mine))

		byID := make(map[string]shelf.Item, len(got))
		for _, item := range got {
			byID[item.ID] = item
		}
		for _, want := range mine {
			have, ok := byID[want.ID]
			if assert.True(t, ok, "missing %s", want.ID) {
				assertItemEqual(t, want, have)
			}
		}
	})

	t.Run("list for owner without items is empty", func(t *testing.T) {
		repo := newRepo(t)

		got, err := repo.List(context.Background(), "nobody")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("concurrent creates with same id have one winner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		item := NewItem("owner-a", "race")

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.Create(ctx, item); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("concurrent writes on distinct ids all succeed", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const writers = 24
		items := make([]shelf.Item, writers)
		for i := range items {
			items[i] = NewItem("owner-a", fmt.Sprintf("parallel-%d", i))
		}

		errs := make(chan error, 2*writers)
		var wg sync.WaitGroup
		for _, item := range items {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.Create(ctx, item); err != nil {
					errs <- fmt.Errorf("create %s: %w", item.Name, err)
					return
				}
				_, err := repo.Update(ctx, item.ID, shelf.ItemUpdate{
					Name:        item.Name + " renamed",
					Description: item.Description,
					UpdatedAt:   item.UpdatedAt.Add(time.Millisecond),
				})
				if err != nil {
					errs <- fmt.Errorf("update %s: %w", item.Name, err)
				}
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}

		got, err := repo.List(ctx, "owner-a")
		require.NoError(t, err)
		require.Len(t, got, writers)
		for _, item := range got {
			assert.Contains(t, item.Name, " renamed")
		}
	})
}

func assertItemEqual(t *testing.T, want, got shelf.Item) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.OwnerID, got.OwnerID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Description, got.Description)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt: want %s, got %s", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updatedAt: want %s, got %s", want.UpdatedAt, got.UpdatedAt)
}
