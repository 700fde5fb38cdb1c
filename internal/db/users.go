package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskapp/backend/internal/model"
)

const userColumns = `id, name, email, password_hash, auth_tokens, created_at, updated_at`

// userUpdateColumns maps update-guard field names to their columns. The
// password arrives already hashed from the service layer.
var userUpdateColumns = map[string]string{
	"name":     "name",
	"email":    "email",
	"password": "password_hash",
}

func (db *Postgres) InsertUser(ctx context.Context, name, email, passwordHash string) (*model.User, error) {
	query := `
		INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING ` + userColumns
	return db.scanUser(db.Pool.QueryRow(ctx, query, uuid.New(), name, email, passwordHash))
}

func (db *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return db.scanUser(db.Pool.QueryRow(ctx, query, email))
}

func (db *Postgres) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return db.scanUser(db.Pool.QueryRow(ctx, query, id))
}

// GetUserByIDAndToken resolves a user only if the exact token string is a
// member of its active-token list. This is the store half of token
// verification; signature checks alone never authenticate a request.
func (db *Postgres) GetUserByIDAndToken(ctx context.Context, id uuid.UUID, token string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND $2 = ANY(auth_tokens)`
	return db.scanUser(db.Pool.QueryRow(ctx, query, id, token))
}

// UpdateUserFields applies a guard-approved field map in a single UPDATE so
// the stored row is either fully updated or untouched.
func (db *Postgres) UpdateUserFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.User, error) {
	set, args, err := buildSetClause(userUpdateColumns, fields)
	if err != nil {
		return nil, err
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE users SET %s, updated_at = NOW() WHERE id = $%d RETURNING `+userColumns,
		set, len(args),
	)
	return db.scanUser(db.Pool.QueryRow(ctx, query, args...))
}

func (db *Postgres) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (db *Postgres) AppendAuthToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `
		UPDATE users
		SET auth_tokens = array_append(auth_tokens, $2), updated_at = NOW()
		WHERE id = $1
	`
	tag, err := db.Pool.Exec(ctx, query, id, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (db *Postgres) RemoveAuthToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `
		UPDATE users
		SET auth_tokens = array_remove(auth_tokens, $2), updated_at = NOW()
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query, id, token)
	return err
}

func (db *Postgres) ClearAuthTokens(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET auth_tokens = '{}', updated_at = NOW() WHERE id = $1`
	_, err := db.Pool.Exec(ctx, query, id)
	return err
}

func (db *Postgres) SetAvatar(ctx context.Context, id uuid.UUID, data []byte) error {
	query := `UPDATE users SET avatar = $2, updated_at = NOW() WHERE id = $1`
	tag, err := db.Pool.Exec(ctx, query, id, data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (db *Postgres) ClearAvatar(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET avatar = NULL, updated_at = NOW() WHERE id = $1`
	_, err := db.Pool.Exec(ctx, query, id)
	return err
}

func (db *Postgres) GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error) {
	query := `SELECT avatar FROM users WHERE id = $1 AND avatar IS NOT NULL`
	var data []byte
	if err := db.Pool.QueryRow(ctx, query, id).Scan(&data); err != nil {
		return nil, err
	}
	return data, nil
}

func (db *Postgres) scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.AuthTokens,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// buildSetClause renders a deterministic SET clause from a field map,
// numbering placeholders from $1.
func buildSetClause(columns map[string]string, fields map[string]any) (string, []any, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := ""
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		col, ok := columns[k]
		if !ok {
			return "", nil, fmt.Errorf("unknown update field: %s", k)
		}
		if i > 0 {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, i+1)
		args = append(args, fields[k])
	}
	return set, args, nil
}
