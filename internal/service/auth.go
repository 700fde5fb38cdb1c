package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/taskapp/backend/internal/config"
	"github.com/taskapp/backend/internal/db"
	"github.com/taskapp/backend/internal/model"
)

// ErrMisconfigured reports invalid auth configuration at startup.
var ErrMisconfigured = fmt.Errorf("auth config invalid")

// AuthService issues and verifies session tokens. A token is valid only when
// its signature and expiry check out AND the exact token string is still in
// the subject user's active-token list; logout removes the list entry without
// touching the signature.
type AuthService struct {
	users  UserStore
	tasks  TaskStore
	secret []byte
	ttl    time.Duration
}

func NewAuthService(users UserStore, tasks TaskStore, cfg config.AuthConfig) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}

	ttl, err := time.ParseDuration(cfg.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWT_TTL", ErrMisconfigured)
	}

	return &AuthService{
		users:  users,
		tasks:  tasks,
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
	}, nil
}

// Issue signs a session token for the user and appends it to the user's
// active-token list before returning it.
func (s *AuthService) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}

	if err := s.users.AppendAuthToken(ctx, userID, signed); err != nil {
		if db.IsNoRows(err) {
			return "", notFoundErr("User not found")
		}
		return "", err
	}

	return signed, nil
}

// Verify checks the token signature and expiry, then requires list
// membership via a store lookup. It returns the resolved user with its tasks
// populated, so downstream handlers never re-read the account. Every failure
// mode collapses into the same AuthError.
func (s *AuthService) Verify(ctx context.Context, tokenStr string) (*model.User, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrAuth
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, authErr("Invalid authentication token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, authErr("Invalid authentication token")
	}

	user, err := s.users.GetUserByIDAndToken(ctx, userID, tokenStr)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, authErr("Invalid authentication token")
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

// Revoke removes one token from the user's active list.
func (s *AuthService) Revoke(ctx context.Context, userID uuid.UUID, token string) error {
	return s.users.RemoveAuthToken(ctx, userID, token)
}

// RevokeAll clears the user's active-token list.
func (s *AuthService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return s.users.ClearAuthTokens(ctx, userID)
}
