package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskapp/backend/internal/model"
)

// UserStore is the persistence contract for account records. *db.Postgres
// satisfies it; tests substitute fakes.
type UserStore interface {
	InsertUser(ctx context.Context, name, email, passwordHash string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByIDAndToken(ctx context.Context, id uuid.UUID, token string) (*model.User, error)
	UpdateUserFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	AppendAuthToken(ctx context.Context, id uuid.UUID, token string) error
	RemoveAuthToken(ctx context.Context, id uuid.UUID, token string) error
	ClearAuthTokens(ctx context.Context, id uuid.UUID) error
	SetAvatar(ctx context.Context, id uuid.UUID, data []byte) error
	ClearAvatar(ctx context.Context, id uuid.UUID) error
	GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// TaskStore is the persistence contract for task records. Every operation is
// owner-scoped except DeleteTasksByOwner, which serves the account-deletion
// cascade.
type TaskStore interface {
	InsertTask(ctx context.Context, ownerID uuid.UUID, description string, completed bool) (*model.Task, error)
	ListTasks(ctx context.Context, ownerID uuid.UUID, opts model.TaskListOptions) ([]model.Task, error)
	GetTask(ctx context.Context, id, ownerID uuid.UUID) (*model.Task, error)
	UpdateTaskFields(ctx context.Context, id, ownerID uuid.UUID, fields map[string]any) (*model.Task, error)
	DeleteTask(ctx context.Context, id, ownerID uuid.UUID) error
	DeleteTasksByOwner(ctx context.Context, ownerID uuid.UUID) error
}

// Mailer delivers transactional email. Implementations must be safe to call
// with delivery disabled.
type Mailer interface {
	SendWelcome(ctx context.Context, email, name string) error
	SendCancellation(ctx context.Context, email, name string) error
}
