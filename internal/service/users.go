package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskapp/backend/internal/db"
	"github.com/taskapp/backend/internal/imaging"
	"github.com/taskapp/backend/internal/model"
)

const minPasswordLength = 7

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type UserService struct {
	store  UserStore
	tasks  TaskStore
	auth   *AuthService
	mailer Mailer
}

func NewUserService(store UserStore, tasks TaskStore, auth *AuthService, mailer Mailer) *UserService {
	return &UserService{store: store, tasks: tasks, auth: auth, mailer: mailer}
}

// Signup validates and creates the account, then mints the first session
// token. The welcome email is best-effort and never fails the request.
func (s *UserService) Signup(ctx context.Context, req model.CreateUserRequest) (*model.User, string, error) {
	if err := validateNewUser(req); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user, err := s.store.InsertUser(ctx, req.Name, strings.ToLower(req.Email), string(hash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, "", validationErr("email already in use")
		}
		return nil, "", err
	}

	token, err := s.auth.Issue(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	if s.mailer != nil {
		if err := s.mailer.SendWelcome(ctx, user.Email, user.Name); err != nil {
			slog.Warn("welcome email failed", "email", user.Email, "err", err)
		}
	}

	user.Tasks = []model.Task{}
	return user, token, nil
}

// Login authenticates by email and password and mints a new session token.
// Unknown email and wrong password surface the identical error so callers
// cannot probe which addresses have accounts.
func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.findByCredentials(ctx, email, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.auth.Issue(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	tasks, err := s.tasks.ListTasks(ctx, user.ID, model.TaskListOptions{})
	if err != nil {
		return nil, "", err
	}
	user.Tasks = tasks

	return user, token, nil
}

func (s *UserService) findByCredentials(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, authErr("Login failed")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, authErr("Login failed")
	}

	return user, nil
}

func (s *UserService) Logout(ctx context.Context, userID uuid.UUID, token string) error {
	return s.auth.Revoke(ctx, userID, token)
}

func (s *UserService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return s.auth.RevokeAll(ctx, userID)
}

// Update applies a partial profile update through the field-update guard.
// The whole map is validated before anything is written; the write itself is
// one UPDATE statement, so the stored row never reflects half an update.
func (s *UserService) Update(ctx context.Context, userID uuid.UUID, updates map[string]any) (*model.User, error) {
	if err := CheckUpdatable(model.UserUpdatableFields, updates); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return s.getByID(ctx, userID)
	}

	fields := make(map[string]any, len(updates))
	for k, v := range updates {
		value, ok := v.(string)
		if !ok {
			return nil, validationErr("Invalid value for field: " + k)
		}
		fields[k] = value
	}

	if email, ok := fields["email"].(string); ok {
		email = strings.ToLower(email)
		if !emailPattern.MatchString(email) {
			return nil, validationErr("invalid email address")
		}
		fields["email"] = email
	}

	if password, ok := fields["password"].(string); ok {
		if err := validatePassword(password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		fields["password"] = string(hash)
	}

	user, err := s.store.UpdateUserFields(ctx, userID, fields)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, notFoundErr("User not found")
		}
		if isUniqueViolation(err) {
			return nil, validationErr("email already in use")
		}
		return nil, err
	}

	tasks, err := s.tasks.ListTasks(ctx, user.ID, model.TaskListOptions{})
	if err != nil {
		return nil, err
	}
	user.Tasks = tasks

	return user, nil
}

// Delete removes the account. The task cascade runs first as its own
// statement; the two deletes are not atomic, so a crash in between can leave
// the user without tasks but still present. A task-cascade failure aborts
// the account deletion.
func (s *UserService) Delete(ctx context.Context, user *model.User) error {
	if err := s.tasks.DeleteTasksByOwner(ctx, user.ID); err != nil {
		return err
	}

	if err := s.store.DeleteUser(ctx, user.ID); err != nil {
		if db.IsNoRows(err) {
			return notFoundErr("User not found")
		}
		return err
	}

	if s.mailer != nil {
		if err := s.mailer.SendCancellation(ctx, user.Email, user.Name); err != nil {
			slog.Warn("cancellation email failed", "email", user.Email, "err", err)
		}
	}

	return nil
}

// SetAvatar normalizes the uploaded image to a 200x200 PNG and stores it on
// the user record.
func (s *UserService) SetAvatar(ctx context.Context, userID uuid.UUID, data []byte) error {
	normalized, err := imaging.Normalize(data)
	if err != nil {
		return validationErr("invalid image data")
	}

	if err := s.store.SetAvatar(ctx, userID, normalized); err != nil {
		if db.IsNoRows(err) {
			return notFoundErr("User not found")
		}
		return err
	}
	return nil
}

func (s *UserService) ClearAvatar(ctx context.Context, userID uuid.UUID) error {
	return s.store.ClearAvatar(ctx, userID)
}

// Avatar returns the stored PNG for any user id; it backs the only
// unauthenticated read endpoint.
func (s *UserService) Avatar(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	data, err := s.store.GetAvatar(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, notFoundErr("Avatar not found")
		}
		return nil, err
	}
	return data, nil
}

func (s *UserService) getByID(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, notFoundErr("User not found")
		}
		return nil, err
	}

	tasks, err := s.tasks.ListTasks(ctx, user.ID, model.TaskListOptions{})
	if err != nil {
		return nil, err
	}
	user.Tasks = tasks

	return user, nil
}

func validateNewUser(req model.CreateUserRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return validationErr("name is required")
	}
	if !emailPattern.MatchString(strings.ToLower(req.Email)) {
		return validationErr("invalid email address")
	}
	return validatePassword(req.Password)
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return validationErr("password must be at least 7 characters")
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return validationErr("password must not contain \"password\"")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
