package shelf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ItemService struct {
	repo     ItemRepo
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
}

// ServiceConfig holds optional overrides for ItemService.
type ServiceConfig struct {
	Clock       func() time.Time // defaults to time.Now
	IDGenerator func() string    // defaults to uuid.NewString
}

func NewItemService(repo ItemRepo, cfg ServiceConfig) (*ItemService, error) {
	if repo == nil {
		return nil, errors.New("new item service: repo cannot be nil")
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	newID := cfg.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}

	return &ItemService{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      now,
		newID:    newID,
	}, nil
}

func (s *ItemService) List(ctx context.Context, subject Subject) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items, err := s.repo.List(ctx, subject.ID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	if items == nil {
		items = []Item{}
	}

	return items, nil
}

func (s *ItemService) Get(ctx context.Context, subject Subject, id string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, fmt.Errorf("get item: %w", err)
	}

	item, err := s.owned(ctx, subject, id)
	if err != nil {
		return Item{}, fmt.Errorf("get item: %w", err)
	}

	return item, nil
}

// Create assigns a fresh id and timestamps to req and persists it as an item
// owned by subject. createdAt and updatedAt are equal on the returned item.
//
// Error types returned:
//   - ErrInvalidInput: name or description missing or too long
//   - ErrConflict: the generated id already exists
//   - ErrStorageUnavailable: the store could not be reached
func (s *ItemService) Create(ctx context.Context, subject Subject, req CreateItem) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, fmt.Errorf("create item: %w", err)
	}

	if err := s.validateRequest(req); err != nil {
		return Item{}, fmt.Errorf("create item: %w", err)
	}

	now := Timestamp(s.now())
	item := Item{
		ID:          s.newID(),
		OwnerID:     subject.ID,
		Name:        *req.Name,
		Description: *req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return Item{}, fmt.Errorf("create item: %w", err)
	}

	return created, nil
}

// Update replaces name and description of an existing item. The new
// updatedAt is strictly greater than the previous one even if the clock has
// not advanced.
//
// Error types returned:
//   - ErrInvalidInput: invalid id, name or description
//   - ErrNotFound: no item with this id
//   - ErrForbidden: the item belongs to another subject
func (s *ItemService) Update(ctx context.Context, subject Subject, id string, req UpdateItem) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, fmt.Errorf("update item: %w", err)
	}

	if err := s.validateRequest(req); err != nil {
		return Item{}, fmt.Errorf("update item: %w", err)
	}

	current, err := s.owned(ctx, subject, id)
	if err != nil {
		return Item{}, fmt.Errorf("update item: %w", err)
	}

	updatedAt := Timestamp(s.now())
	if !updatedAt.After(current.UpdatedAt) {
		updatedAt = current.UpdatedAt.Add(time.Microsecond)
	}

	item, err := s.repo.Update(ctx, id, ItemUpdate{
		Name:        *req.Name,
		Description: *req.Description,
		UpdatedAt:   updatedAt,
	})
	if err != nil {
		return Item{}, fmt.Errorf("update item: %w", err)
	}

	return item, nil
}

// Delete removes an item and returns it as it was before deletion.
func (s *ItemService) Delete(ctx context.Context, subject Subject, id string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, fmt.Errorf("delete item: %w", err)
	}

	if _, err := s.owned(ctx, subject, id); err != nil {
		return Item{}, fmt.Errorf("delete item: %w", err)
	}

	item, err := s.repo.Delete(ctx, id)
	if err != nil {
		return Item{}, fmt.Errorf("delete item: %w", err)
	}

	return item, nil
}

func (s *ItemService) owned(ctx context.Context, subject Subject, id string) (Item, error) {
	if !IsValidID(id) {
		return Item{}, &ValidationError{Msg: "invalid item id"}
	}

	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}

	if item.OwnerID != subject.ID {
		return Item{}, fmt.Errorf("item %s: %w", id, ErrForbidden)
	}

	return item, nil
}

func (s *ItemService) validateRequest(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Msg: err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}

	return &ValidationError{Msg: strings.Join(msgs, ", ")}
}
