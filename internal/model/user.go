package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the stored account record. The password hash, the active-token
// list and the avatar never leave the server; responses use PublicUser.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	AuthTokens   []string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Tasks is populated by the auth middleware, not scanned from the row.
	Tasks []Task
}

// PublicUser is the serializable profile exposed over HTTP.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Tasks     []Task    `json:"tasks"`
}

func (u *User) Public() PublicUser {
	tasks := u.Tasks
	if tasks == nil {
		tasks = []Task{}
	}
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		Tasks:     tasks,
	}
}

// UserUpdatableFields is the whitelist for PATCH /users/me. Identity,
// timestamps, the token list and the avatar are system-managed; the avatar
// has its own endpoints.
var UserUpdatableFields = map[string]struct{}{
	"name":     {},
	"email":    {},
	"password": {},
}
