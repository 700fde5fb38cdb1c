package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/taskapp/backend/internal/config"
	"github.com/taskapp/backend/internal/model"
	"github.com/taskapp/backend/internal/service"
)

// In-memory store fakes mirroring db.Postgres behavior, plus a router wired
// exactly as in main.go.

type fakeUserStore struct {
	users   map[uuid.UUID]*model.User
	avatars map[uuid.UUID][]byte
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:   make(map[uuid.UUID]*model.User),
		avatars: make(map[uuid.UUID][]byte),
	}
}

func (f *fakeUserStore) InsertUser(ctx context.Context, name, email, passwordHash string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}
	now := time.Now()
	user := &model.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		AuthTokens:   []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserStore) GetUserByIDAndToken(ctx context.Context, id uuid.UUID, token string) (*model.User, error) {
	user, ok := f.users[id]
	if !ok || !slices.Contains(user.AuthTokens, token) {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserStore) UpdateUserFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if email, ok := fields["email"]; ok {
		for _, u := range f.users {
			if u.ID != id && u.Email == email.(string) {
				return nil, &pgconn.PgError{Code: "23505"}
			}
		}
		user.Email = email.(string)
	}
	if name, ok := fields["name"]; ok {
		user.Name = name.(string)
	}
	if hash, ok := fields["password"]; ok {
		user.PasswordHash = hash.(string)
	}
	user.UpdatedAt = time.Now()
	return user, nil
}

func (f *fakeUserStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserStore) AppendAuthToken(ctx context.Context, id uuid.UUID, token string) error {
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.AuthTokens = append(user.AuthTokens, token)
	return nil
}

func (f *fakeUserStore) RemoveAuthToken(ctx context.Context, id uuid.UUID, token string) error {
	if user, ok := f.users[id]; ok {
		user.AuthTokens = slices.DeleteFunc(user.AuthTokens, func(t string) bool { return t == token })
	}
	return nil
}

func (f *fakeUserStore) ClearAuthTokens(ctx context.Context, id uuid.UUID) error {
	if user, ok := f.users[id]; ok {
		user.AuthTokens = []string{}
	}
	return nil
}

func (f *fakeUserStore) SetAvatar(ctx context.Context, id uuid.UUID, data []byte) error {
	if _, ok := f.users[id]; !ok {
		return pgx.ErrNoRows
	}
	f.avatars[id] = data
	return nil
}

func (f *fakeUserStore) ClearAvatar(ctx context.Context, id uuid.UUID) error {
	delete(f.avatars, id)
	return nil
}

func (f *fakeUserStore) GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error) {
	data, ok := f.avatars[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return data, nil
}

type fakeTaskStore struct {
	tasks []*model.Task
	clock time.Time
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeTaskStore) InsertTask(ctx context.Context, ownerID uuid.UUID, description string, completed bool) (*model.Task, error) {
	f.clock = f.clock.Add(time.Second)
	task := &model.Task{
		ID:          uuid.New(),
		Description: description,
		Completed:   completed,
		OwnerID:     ownerID,
		CreatedAt:   f.clock,
		UpdatedAt:   f.clock,
	}
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeTaskStore) ListTasks(ctx context.Context, ownerID uuid.UUID, opts model.TaskListOptions) ([]model.Task, error) {
	var list []model.Task
	for _, t := range f.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		if opts.Completed != nil && t.Completed != *opts.Completed {
			continue
		}
		list = append(list, *t)
	}

	less := func(a, b model.Task) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch opts.SortBy {
	case "updatedAt":
		less = func(a, b model.Task) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case "description":
		less = func(a, b model.Task) bool { return a.Description < b.Description }
	case "completed":
		less = func(a, b model.Task) bool { return !a.Completed && b.Completed }
	}
	sort.SliceStable(list, func(i, j int) bool {
		if opts.Desc {
			return less(list[j], list[i])
		}
		return less(list[i], list[j])
	})

	if opts.Skip > 0 {
		if opts.Skip >= len(list) {
			list = nil
		} else {
			list = list[opts.Skip:]
		}
	}
	if opts.Limit > 0 && opts.Limit < len(list) {
		list = list[:opts.Limit]
	}

	if list == nil {
		list = []model.Task{}
	}
	return list, nil
}

func (f *fakeTaskStore) GetTask(ctx context.Context, id, ownerID uuid.UUID) (*model.Task, error) {
	for _, t := range f.tasks {
		if t.ID == id && t.OwnerID == ownerID {
			return t, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTaskStore) UpdateTaskFields(ctx context.Context, id, ownerID uuid.UUID, fields map[string]any) (*model.Task, error) {
	task, err := f.GetTask(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if desc, ok := fields["description"]; ok {
		task.Description = desc.(string)
	}
	if done, ok := fields["completed"]; ok {
		task.Completed = done.(bool)
	}
	task.UpdatedAt = time.Now()
	return task, nil
}

func (f *fakeTaskStore) DeleteTask(ctx context.Context, id, ownerID uuid.UUID) error {
	for i, t := range f.tasks {
		if t.ID == id && t.OwnerID == ownerID {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeTaskStore) DeleteTasksByOwner(ctx context.Context, ownerID uuid.UUID) error {
	f.tasks = slices.DeleteFunc(f.tasks, func(t *model.Task) bool { return t.OwnerID == ownerID })
	return nil
}

type testEnv struct {
	router *gin.Engine
	users  *fakeUserStore
	tasks  *fakeTaskStore
}

// newTestEnv wires the full route table over in-memory stores, mirroring
// main.go.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := newFakeUserStore()
	tasks := newFakeTaskStore()

	authSvc, err := service.NewAuthService(users, tasks, config.AuthConfig{JWTSecret: "test-secret", JWTTTL: "1h"})
	require.NoError(t, err)

	userSvc := service.NewUserService(users, tasks, authSvc, nil)
	taskSvc := service.NewTaskService(tasks)

	userHandler := NewUserHandler(userSvc)
	taskHandler := NewTaskHandler(taskSvc)

	router := gin.New()
	router.GET("/ping", Ping)

	userRoutes := router.Group("/users")
	{
		userRoutes.POST("", userHandler.Register)
		userRoutes.POST("/login", userHandler.Login)
		userRoutes.GET("/:id/avatar", userHandler.GetAvatar)

		authed := userRoutes.Group("", AuthMiddleware(authSvc))
		{
			authed.POST("/logout", userHandler.Logout)
			authed.POST("/logoutAll", userHandler.LogoutAll)
			authed.GET("/me", userHandler.Me)
			authed.PATCH("/me", userHandler.UpdateMe)
			authed.DELETE("/me", userHandler.DeleteMe)
			authed.POST("/me/avatar", userHandler.UploadAvatar)
			authed.DELETE("/me/avatar", userHandler.DeleteAvatar)
		}
	}

	taskRoutes := router.Group("/tasks", AuthMiddleware(authSvc))
	{
		taskRoutes.POST("", taskHandler.CreateTask)
		taskRoutes.GET("", taskHandler.ListTasks)
		taskRoutes.GET("/:id", taskHandler.GetTask)
		taskRoutes.PATCH("/:id", taskHandler.UpdateTask)
		taskRoutes.DELETE("/:id", taskHandler.DeleteTask)
	}

	return &testEnv{router: router, users: users, tasks: tasks}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signup creates an account through the API and returns its id and session
// token.
func (e *testEnv) signup(t *testing.T, name, email, password string) (uuid.UUID, string) {
	t.Helper()

	w := e.do(t, http.MethodPost, "/users", "", gin.H{
		"name":     name,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		User  model.PublicUser `json:"user"`
		Token string           `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.User.ID, resp.Token
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 25), G: uint8(y * 25), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartAvatar builds a multipart body with a single avatar file part.
func multipartAvatar(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="avatar"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}
