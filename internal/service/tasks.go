package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/taskapp/backend/internal/db"
	"github.com/taskapp/backend/internal/model"
)

type TaskService struct {
	store TaskStore
}

func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{store: store}
}

func (s *TaskService) Create(ctx context.Context, ownerID uuid.UUID, req model.CreateTaskRequest) (*model.Task, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, validationErr("description is required")
	}
	return s.store.InsertTask(ctx, ownerID, req.Description, req.Completed)
}

func (s *TaskService) List(ctx context.Context, ownerID uuid.UUID, opts model.TaskListOptions) ([]model.Task, error) {
	return s.store.ListTasks(ctx, ownerID, opts)
}

func (s *TaskService) Get(ctx context.Context, id, ownerID uuid.UUID) (*model.Task, error) {
	task, err := s.store.GetTask(ctx, id, ownerID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, notFoundErr("Task not found")
		}
		return nil, err
	}
	return task, nil
}

// Update applies a guard-checked partial update, owner-scoped. A task that
// exists under another owner reports the same NotFound as a missing one.
func (s *TaskService) Update(ctx context.Context, id, ownerID uuid.UUID, updates map[string]any) (*model.Task, error) {
	if err := CheckUpdatable(model.TaskUpdatableFields, updates); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return s.Get(ctx, id, ownerID)
	}

	fields := make(map[string]any, len(updates))
	for k, v := range updates {
		switch k {
		case "description":
			desc, ok := v.(string)
			if !ok || strings.TrimSpace(desc) == "" {
				return nil, validationErr("Invalid value for field: description")
			}
			fields[k] = desc
		case "completed":
			done, ok := v.(bool)
			if !ok {
				return nil, validationErr("Invalid value for field: completed")
			}
			fields[k] = done
		}
	}

	task, err := s.store.UpdateTaskFields(ctx, id, ownerID, fields)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, notFoundErr("Task not found")
		}
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	if err := s.store.DeleteTask(ctx, id, ownerID); err != nil {
		if db.IsNoRows(err) {
			return notFoundErr("Task not found")
		}
		return err
	}
	return nil
}

// ParseTaskListOptions converts the raw list query parameters. Bad numbers,
// bad booleans and unknown sort keys are rejected rather than silently
// ignored.
func ParseTaskListOptions(completed, numResults, skip, sortBy, desc string) (model.TaskListOptions, error) {
	var opts model.TaskListOptions

	if completed != "" {
		value, err := strconv.ParseBool(completed)
		if err != nil {
			return opts, validationErr("invalid completed filter")
		}
		opts.Completed = &value
	}

	if numResults != "" {
		value, err := strconv.Atoi(numResults)
		if err != nil || value < 0 {
			return opts, validationErr("invalid numResults")
		}
		opts.Limit = value
	}

	if skip != "" {
		value, err := strconv.Atoi(skip)
		if err != nil || value < 0 {
			return opts, validationErr("invalid skip")
		}
		opts.Skip = value
	}

	if sortBy != "" {
		if _, ok := model.TaskSortFields[sortBy]; !ok {
			return opts, validationErr("invalid sort key")
		}
		opts.SortBy = sortBy
	}

	if desc != "" {
		value, err := strconv.ParseBool(desc)
		if err != nil {
			return opts, validationErr("invalid desc flag")
		}
		opts.Desc = value
	}

	return opts, nil
}
