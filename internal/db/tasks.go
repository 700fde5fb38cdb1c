package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskapp/backend/internal/model"
)

const taskColumns = `id, description, completed, owner_id, created_at, updated_at`

var taskUpdateColumns = map[string]string{
	"description": "description",
	"completed":   "completed",
}

// taskSortColumns maps the public sortBy keys onto columns. Keys are
// whitelisted by the task service before they reach this layer; anything
// else falls back to creation order.
var taskSortColumns = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"description": "description",
	"completed":   "completed",
}

func (db *Postgres) InsertTask(ctx context.Context, ownerID uuid.UUID, description string, completed bool) (*model.Task, error) {
	query := `
		INSERT INTO tasks (id, description, completed, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING ` + taskColumns
	return db.scanTask(db.Pool.QueryRow(ctx, query, uuid.New(), description, completed, ownerID))
}

func (db *Postgres) ListTasks(ctx context.Context, ownerID uuid.UUID, opts model.TaskListOptions) ([]model.Task, error) {
	query, args := buildTaskListQuery(ownerID, opts)

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.Description, &t.Completed, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if list == nil {
		list = []model.Task{}
	}
	return list, nil
}

func (db *Postgres) GetTask(ctx context.Context, id, ownerID uuid.UUID) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2`
	return db.scanTask(db.Pool.QueryRow(ctx, query, id, ownerID))
}

func (db *Postgres) UpdateTaskFields(ctx context.Context, id, ownerID uuid.UUID, fields map[string]any) (*model.Task, error) {
	set, args, err := buildSetClause(taskUpdateColumns, fields)
	if err != nil {
		return nil, err
	}

	args = append(args, id, ownerID)
	query := fmt.Sprintf(
		`UPDATE tasks SET %s, updated_at = NOW() WHERE id = $%d AND owner_id = $%d RETURNING `+taskColumns,
		set, len(args)-1, len(args),
	)
	return db.scanTask(db.Pool.QueryRow(ctx, query, args...))
}

func (db *Postgres) DeleteTask(ctx context.Context, id, ownerID uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (db *Postgres) DeleteTasksByOwner(ctx context.Context, ownerID uuid.UUID) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM tasks WHERE owner_id = $1`, ownerID)
	return err
}

func (db *Postgres) scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.Description, &t.Completed, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// buildTaskListQuery renders the owner filter, optional completed filter,
// sort and skip/limit window in that order.
func buildTaskListQuery(ownerID uuid.UUID, opts model.TaskListOptions) (string, []any) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1`
	args := []any{ownerID}

	if opts.Completed != nil {
		args = append(args, *opts.Completed)
		query += fmt.Sprintf(` AND completed = $%d`, len(args))
	}

	col, ok := taskSortColumns[opts.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}
	query += fmt.Sprintf(` ORDER BY %s %s`, col, dir)

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Skip > 0 {
		args = append(args, opts.Skip)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	return query, args
}
