// Package domain defines the comment model and its moderation states.
package domain

import (
	"strings"
	"time"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
)

// Status is the moderation state of a comment.
type Status string

const (
	// StatusPending awaits moderation and is visible only to its author.
	StatusPending Status = "pending"
	// StatusApproved is publicly visible.
	StatusApproved Status = "approved"
	// StatusHidden was removed by a moderator.
	StatusHidden Status = "hidden"
)

// ParseStatus converts a wire value into a Status.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, true
	case StatusApproved:
		return StatusApproved, true
	case StatusHidden:
		return StatusHidden, true
	}
	return "", false
}

// MaxBodyLength bounds comment size.
const MaxBodyLength = 4000

// Comment is one reader remark on a published article. Replies nest one
// level deep: a reply's ParentID names a top-level comment.
type Comment struct {
	ID        string
	ArticleID string
	AuthorID  string
	ParentID  string
	Body      string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the comment's own fields.
func (c Comment) Validate() error {
	body := strings.TrimSpace(c.Body)
	if body == "" {
		return apperrors.New(apperrors.CodeCommentBodyEmpty, "comment body is required")
	}
	if len(body) > MaxBodyLength {
		return apperrors.New(apperrors.CodeCommentBodyEmpty, "comment body too long")
	}
	return nil
}
