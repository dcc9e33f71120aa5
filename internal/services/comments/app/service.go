// Package app implements comment posting, one-level threading and
// moderation.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	"github.com/meridianpress/meridian/internal/platform/id"
	"github.com/meridianpress/meridian/internal/services/comments/domain"
	"github.com/meridianpress/meridian/internal/services/comments/storage"
	"github.com/meridianpress/meridian/internal/services/shared/authctx"
)

// ArticleChecker reports whether an article exists and is published.
// Hooked up to the content service at composition time.
type ArticleChecker interface {
	ArticlePublished(ctx context.Context, articleID string) (bool, error)
}

// Service manages comment threads.
type Service struct {
	store    storage.CommentStore
	articles ArticleChecker
	now      func() time.Time
}

// New creates a comment service. articles may be nil, disabling the
// published-article check.
func New(store storage.CommentStore, articles ArticleChecker) *Service {
	return &Service{store: store, articles: articles, now: time.Now}
}

// Thread is one top-level comment with its replies.
type Thread struct {
	Comment domain.Comment
	Replies []domain.Comment
}

// Post adds a comment to a published article. New comments enter the
// pending state and become public once approved.
func (s *Service) Post(ctx context.Context, actor authctx.Identity, articleID, parentID, body string) (domain.Comment, error) {
	if actor.Anonymous() {
		return domain.Comment{}, apperrors.New(apperrors.CodeAuthenticationMissing, "commenting requires an account")
	}

	if s.articles != nil {
		published, err := s.articles.ArticlePublished(ctx, articleID)
		if err != nil {
			return domain.Comment{}, fmt.Errorf("check article: %w", err)
		}
		if !published {
			return domain.Comment{}, apperrors.New(apperrors.CodeCommentArticleMissing, "article not available for comments")
		}
	}

	parentID = strings.TrimSpace(parentID)
	if parentID != "" {
		parent, err := s.store.GetComment(ctx, parentID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return domain.Comment{}, apperrors.New(apperrors.CodeNotFound, "parent comment not found")
			}
			return domain.Comment{}, fmt.Errorf("load parent comment: %w", err)
		}
		if parent.ArticleID != articleID {
			return domain.Comment{}, apperrors.New(apperrors.CodeCommentArticleMissing, "parent comment belongs to another article")
		}
		// Replies to replies flatten onto the top-level comment.
		if parent.ParentID != "" {
			parentID = parent.ParentID
		}
	}

	now := s.now().UTC()
	comment := domain.Comment{
		ID:        id.New(),
		ArticleID: articleID,
		AuthorID:  actor.UserID,
		ParentID:  parentID,
		Body:      strings.TrimSpace(body),
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := comment.Validate(); err != nil {
		return domain.Comment{}, err
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return domain.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// Moderate sets a comment's moderation state. Editor role required.
func (s *Service) Moderate(ctx context.Context, actor authctx.Identity, commentID string, status domain.Status) (domain.Comment, error) {
	if !actor.Role.CanModerate() {
		return domain.Comment{}, apperrors.New(apperrors.CodePermissionDenied, "moderating comments requires the editor role")
	}
	if status != domain.StatusApproved && status != domain.StatusHidden {
		return domain.Comment{}, apperrors.New(apperrors.CodeCommentInvalidStatus, "comments can only be approved or hidden")
	}
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Comment{}, apperrors.New(apperrors.CodeNotFound, "comment not found")
		}
		return domain.Comment{}, fmt.Errorf("load comment: %w", err)
	}
	comment.Status = status
	comment.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateComment(ctx, comment); err != nil {
		return domain.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	return comment, nil
}

// ListThreads returns an article's comments as one-level threads.
// Readers see approved comments plus their own pending ones; editors see
// everything except hidden replies folded in.
func (s *Service) ListThreads(ctx context.Context, actor authctx.Identity, articleID string) ([]Thread, error) {
	comments, err := s.store.ListByArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	visible := comments[:0]
	for _, comment := range comments {
		if s.visibleTo(actor, comment) {
			visible = append(visible, comment)
		}
	}

	threads := make([]Thread, 0)
	index := make(map[string]int)
	for _, comment := range visible {
		if comment.ParentID == "" {
			index[comment.ID] = len(threads)
			threads = append(threads, Thread{Comment: comment})
		}
	}
	for _, comment := range visible {
		if comment.ParentID == "" {
			continue
		}
		if at, ok := index[comment.ParentID]; ok {
			threads[at].Replies = append(threads[at].Replies, comment)
		}
	}
	return threads, nil
}

// PendingQueue returns comments awaiting moderation.
func (s *Service) PendingQueue(ctx context.Context, actor authctx.Identity, limit int) ([]domain.Comment, error) {
	if !actor.Role.CanModerate() {
		return nil, apperrors.New(apperrors.CodePermissionDenied, "the moderation queue requires the editor role")
	}
	comments, err := s.store.ListByStatus(ctx, domain.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending comments: %w", err)
	}
	return comments, nil
}

// PurgeArticle removes every comment on an article. Called when the
// article itself is deleted.
func (s *Service) PurgeArticle(ctx context.Context, articleID string) error {
	if err := s.store.DeleteByArticle(ctx, articleID); err != nil {
		return fmt.Errorf("purge comments: %w", err)
	}
	return nil
}

// Stats returns comment counts per moderation state for the dashboard.
func (s *Service) Stats(ctx context.Context, actor authctx.Identity) (map[domain.Status]int, error) {
	if !actor.Role.CanModerate() {
		return nil, apperrors.New(apperrors.CodePermissionDenied, "stats require the editor role")
	}
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	return counts, nil
}

func (s *Service) visibleTo(actor authctx.Identity, comment domain.Comment) bool {
	switch comment.Status {
	case domain.StatusApproved:
		return true
	case domain.StatusPending:
		return actor.Role.CanModerate() || (actor.UserID != "" && actor.UserID == comment.AuthorID)
	default:
		return actor.Role.CanModerate()
	}
}
