package shelf

import (
	"time"
)

// Item is the only persisted entity.
type Item struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateItem is the body of POST /items. Fields are pointers so that an
// absent field can be told apart from an empty string.
type CreateItem struct {
	Name        *string `json:"name" validate:"required,max=256"`
	Description *string `json:"description" validate:"required,max=4096"`
}

// UpdateItem is the body of PUT /items/{id}. Both fields are replaced.
type UpdateItem struct {
	Name        *string `json:"name" validate:"required,max=256"`
	Description *string `json:"description" validate:"required,max=4096"`
}

// ItemUpdate carries the mutable fields handed to ItemRepo.Update.
type ItemUpdate struct {
	Name        string
	Description string
	UpdatedAt   time.Time
}

// DeleteResult is returned by DELETE /items/{id}.
type DeleteResult struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// HealthStatus is returned by GET /health.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Timestamp truncates t to microseconds in UTC, the finest precision every
// backend stores without loss.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
