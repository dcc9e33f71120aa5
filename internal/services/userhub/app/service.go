// Package app wires user hub domain rules to storage and token issuance.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	"github.com/meridianpress/meridian/internal/platform/id"
	"github.com/meridianpress/meridian/internal/services/userhub/domain"
	"github.com/meridianpress/meridian/internal/services/userhub/storage"
	"github.com/meridianpress/meridian/internal/services/userhub/token"
)

const minPasswordLength = 8

// Service provides account registration, authentication and role management.
type Service struct {
	store  storage.UserStore
	tokens token.Config
	now    func() time.Time
}

// New creates a user hub service.
func New(store storage.UserStore, tokens token.Config) *Service {
	return &Service{store: store, tokens: tokens, now: time.Now}
}

// Session is the result of a successful authentication: a short-lived
// access token paired with a long-lived refresh token.
type Session struct {
	User         domain.User
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
}

// Register creates a reader account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, displayName, password, locale string) (domain.User, error) {
	if len(password) < minPasswordLength {
		return domain.User{}, apperrors.New(apperrors.CodeUserPasswordTooShort, "password too short")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	user := domain.User{
		ID:           id.New(),
		Email:        domain.NormalizeEmail(email),
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		Role:         domain.RoleReader,
		Locale:       locale,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.Locale == "" {
		user.Locale = "en-US"
	}
	if err := user.Validate(); err != nil {
		return domain.User{}, err
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return domain.User{}, apperrors.New(apperrors.CodeUserEmailTaken, "email already registered")
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks credentials and issues a token pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Session, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, apperrors.New(apperrors.CodeUserBadCredentials, "unknown email")
		}
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return Session{}, apperrors.New(apperrors.CodeUserBadCredentials, "password mismatch")
	}
	return s.session(user)
}

// Refresh exchanges a valid refresh token for a fresh pair. The user is
// reloaded so the new access token carries the current role, not the
// one baked in at sign-in.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := token.VerifyRefresh(refreshToken, s.tokens)
	if err != nil {
		return Session{}, err
	}
	user, err := s.GetUser(ctx, claims.UserID)
	if err != nil {
		return Session{}, err
	}
	return s.session(user)
}

func (s *Service) session(user domain.User) (Session, error) {
	signed, expires, err := token.Issue(user, s.tokens)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	refresh, _, err := token.IssueRefresh(user, s.tokens)
	if err != nil {
		return Session{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return Session{User: user, Token: signed, RefreshToken: refresh, ExpiresAt: expires}, nil
}

// GetUser loads one account.
func (s *Service) GetUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.User{}, apperrors.New(apperrors.CodeNotFound, "user not found")
		}
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// ListUsers returns accounts for administration.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	users, err := s.store.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ChangeRole moves an account to a new role.
//
// Demoting the last admin is refused so the platform cannot lock itself out.
func (s *Service) ChangeRole(ctx context.Context, actor domain.User, userID string, newRole domain.Role) (domain.User, error) {
	if !actor.Role.CanAdminister() {
		return domain.User{}, apperrors.New(apperrors.CodePermissionDenied, "role changes require admin")
	}
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.Role == newRole {
		return user, nil
	}
	if user.Role == domain.RoleAdmin && newRole < domain.RoleAdmin {
		admins, err := s.store.CountByRole(ctx, domain.RoleAdmin)
		if err != nil {
			return domain.User{}, fmt.Errorf("count admins: %w", err)
		}
		if admins <= 1 {
			return domain.User{}, apperrors.New(apperrors.CodeUserLastAdmin, "cannot demote the last admin")
		}
	}
	user.Role = newRole
	user.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// UpdateProfile updates the caller's own display name and locale.
func (s *Service) UpdateProfile(ctx context.Context, userID, displayName, locale string) (domain.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if name := strings.TrimSpace(displayName); name != "" {
		user.DisplayName = name
	}
	if locale = strings.TrimSpace(locale); locale != "" {
		user.Locale = locale
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// EnsureAdmin creates or promotes the bootstrap admin account. Called once
// at startup when MERIDIAN_ADMIN_EMAIL is configured.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		if user.Role == domain.RoleAdmin {
			return nil
		}
		user.Role = domain.RoleAdmin
		user.UpdatedAt = s.now().UTC()
		return s.store.UpdateUser(ctx, user)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load admin: %w", err)
	}
	created, err := s.Register(ctx, email, "Administrator", password, "")
	if err != nil {
		return fmt.Errorf("register admin: %w", err)
	}
	created.Role = domain.RoleAdmin
	created.UpdatedAt = s.now().UTC()
	return s.store.UpdateUser(ctx, created)
}
