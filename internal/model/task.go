package model

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	OwnerID     uuid.UUID `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TaskUpdatableFields is the whitelist for PATCH /tasks/:id. The owner is
// immutable after creation.
var TaskUpdatableFields = map[string]struct{}{
	"description": {},
	"completed":   {},
}

// TaskSortFields are the keys accepted by the sortBy list parameter.
var TaskSortFields = map[string]struct{}{
	"createdAt":   {},
	"updatedAt":   {},
	"description": {},
	"completed":   {},
}

// TaskListOptions controls the owner-scoped task listing. Filtering is
// applied before sorting, sorting before the skip/limit window.
type TaskListOptions struct {
	Completed *bool
	Limit     int
	Skip      int
	SortBy    string
	Desc      bool
}
