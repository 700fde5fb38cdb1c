package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskapp/backend/internal/model"
	"github.com/taskapp/backend/internal/service"
)

type TaskHandler struct {
	svc *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// CreateTask godoc
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.CreateTaskRequest true "Description and completed flag"
// @Success 201 {object} model.Task
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req model.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	task, err := h.svc.Create(c.Request.Context(), GetAuthUser(c).ID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// ListTasks godoc
// @Summary List the caller's tasks
// @Description Supports completed, numResults, skip, sortBy and desc query params.
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.TaskListResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	opts, err := service.ParseTaskListOptions(
		c.Query("completed"),
		c.Query("numResults"),
		c.Query("skip"),
		c.Query("sortBy"),
		c.Query("desc"),
	)
	if err != nil {
		writeError(c, err)
		return
	}

	tasks, err := h.svc.List(c.Request.Context(), GetAuthUser(c).ID, opts)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.TaskListResponse{Tasks: tasks})
}

// GetTask godoc
// @Summary Get one task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} model.Task
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, err := h.svc.Get(c.Request.Context(), id, GetAuthUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// UpdateTask godoc
// @Summary Update one task
// @Description Partial update; any key outside the whitelist rejects the whole update.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} model.Task
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /tasks/{id} [patch]
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	task, err := h.svc.Update(c.Request.Context(), id, GetAuthUser(c).ID, updates)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask godoc
// @Summary Delete one task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} model.Task
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, GetAuthUser(c).ID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.StatusResponse{Status: "deleted"})
}

// taskID parses the path id. An unparseable id reads the same as a missing
// task; existence under another owner is never revealed.
func taskID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return uuid.Nil, false
	}
	return id, true
}
