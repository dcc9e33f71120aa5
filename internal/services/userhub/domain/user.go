// Package domain defines the user model and role rules for the user hub.
package domain

import (
	"strings"
	"time"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
)

// Role is an ordered permission level. Higher roles include all lower
// capabilities.
type Role int

const (
	// RoleReader can read published content and post comments.
	RoleReader Role = iota
	// RoleAuthor can create drafts and submit them for review.
	RoleAuthor
	// RoleEditor can review, publish, reject and archive articles and
	// moderate comments.
	RoleEditor
	// RoleAdmin can manage users, taxonomy, ads and platform settings.
	RoleAdmin
)

// String returns the wire representation of the role.
func (r Role) String() string {
	switch r {
	case RoleReader:
		return "reader"
	case RoleAuthor:
		return "author"
	case RoleEditor:
		return "editor"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseRole converts a wire value into a Role.
func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "reader":
		return RoleReader, nil
	case "author":
		return RoleAuthor, nil
	case "editor":
		return RoleEditor, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleReader, apperrors.WithMetadata(
			apperrors.CodeUserInvalidRole,
			"unknown role",
			map[string]string{"Role": value},
		)
	}
}

// AtLeast reports whether the role grants the capabilities of min.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

// CanAuthor reports whether the role may create and edit own drafts.
func (r Role) CanAuthor() bool { return r.AtLeast(RoleAuthor) }

// CanModerate reports whether the role may review articles and comments.
func (r Role) CanModerate() bool { return r.AtLeast(RoleEditor) }

// CanAdminister reports whether the role may manage users and platform data.
func (r Role) CanAdminister() bool { return r.AtLeast(RoleAdmin) }

// User is one platform account.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         Role
	Locale       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail lowercases and trims an email for unique comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks invariants that hold for every stored user.
func (u User) Validate() error {
	if NormalizeEmail(u.Email) == "" {
		return apperrors.New(apperrors.CodeUserEmailEmpty, "email is required")
	}
	if strings.TrimSpace(u.DisplayName) == "" {
		return apperrors.New(apperrors.CodeUserEmptyDisplayName, "display name is required")
	}
	if u.Role < RoleReader || u.Role > RoleAdmin {
		return apperrors.New(apperrors.CodeUserInvalidRole, "role out of range")
	}
	return nil
}
