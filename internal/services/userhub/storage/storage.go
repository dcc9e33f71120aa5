// Package storage defines persistence contracts for user hub state.
package storage

import (
	"context"
	"errors"

	"github.com/meridianpress/meridian/internal/services/userhub/domain"
)

var (
	// ErrNotFound indicates a requested user record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained user already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// UserStore persists platform accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) error
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error)
	CountByRole(ctx context.Context, role domain.Role) (int, error)
}
