// Package admin aggregates newsroom statistics for the dashboard.
package admin

import (
	"context"
	"fmt"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	commentdomain "github.com/meridianpress/meridian/internal/services/comments/domain"
	contentdomain "github.com/meridianpress/meridian/internal/services/content/domain"
	"github.com/meridianpress/meridian/internal/services/shared/authctx"
	subdomain "github.com/meridianpress/meridian/internal/services/subscription/domain"
	userdomain "github.com/meridianpress/meridian/internal/services/userhub/domain"
	viewstorage "github.com/meridianpress/meridian/internal/services/views/storage"
)

// ArticleStats supplies article counts per workflow status.
type ArticleStats interface {
	Stats(ctx context.Context, actor authctx.Identity) (map[contentdomain.Status]int, error)
}

// CommentStats supplies comment counts per moderation state.
type CommentStats interface {
	Stats(ctx context.Context, actor authctx.Identity) (map[commentdomain.Status]int, error)
}

// SubscriptionStats supplies active subscription counts per plan and
// the ledger revenue total.
type SubscriptionStats interface {
	Stats(ctx context.Context, actor authctx.Identity) (map[subdomain.Plan]int, error)
	Revenue(ctx context.Context, actor authctx.Identity) (int64, error)
}

// AdStats supplies impression counts per ad.
type AdStats interface {
	Stats(ctx context.Context, actor authctx.Identity) (map[string]int64, error)
}

// RoleCounter supplies account counts per role.
type RoleCounter interface {
	CountByRole(ctx context.Context, role userdomain.Role) (int, error)
}

// TopViewedLister supplies the most viewed articles.
type TopViewedLister interface {
	TopViewed(ctx context.Context, limit int) ([]viewstorage.ArticleViews, error)
}

// Dashboard is one snapshot of newsroom activity.
type Dashboard struct {
	Articles      map[contentdomain.Status]int
	Comments      map[commentdomain.Status]int
	Subscriptions map[subdomain.Plan]int
	RevenueCents  int64
	AdImpressions map[string]int64
	UsersByRole   map[userdomain.Role]int
	TopArticles   []viewstorage.ArticleViews
}

// Service builds dashboard snapshots from the other services.
type Service struct {
	articles      ArticleStats
	comments      CommentStats
	subscriptions SubscriptionStats
	ads           AdStats
	users         RoleCounter
	views         TopViewedLister
}

// New creates a dashboard service. Any collaborator may be nil; its
// section of the snapshot stays empty.
func New(
	articles ArticleStats,
	comments CommentStats,
	subscriptions SubscriptionStats,
	ads AdStats,
	users RoleCounter,
	views TopViewedLister,
) *Service {
	return &Service{
		articles:      articles,
		comments:      comments,
		subscriptions: subscriptions,
		ads:           ads,
		users:         users,
		views:         views,
	}
}

// topArticleCount bounds the most-viewed list on the dashboard.
const topArticleCount = 10

// Snapshot assembles the full dashboard. Editor role required.
func (s *Service) Snapshot(ctx context.Context, actor authctx.Identity) (Dashboard, error) {
	if !actor.Role.CanModerate() {
		return Dashboard{}, apperrors.New(apperrors.CodePermissionDenied, "the dashboard requires the editor role")
	}

	var dashboard Dashboard
	var err error

	if s.articles != nil {
		if dashboard.Articles, err = s.articles.Stats(ctx, actor); err != nil {
			return Dashboard{}, fmt.Errorf("article stats: %w", err)
		}
	}
	if s.comments != nil {
		if dashboard.Comments, err = s.comments.Stats(ctx, actor); err != nil {
			return Dashboard{}, fmt.Errorf("comment stats: %w", err)
		}
	}
	if s.subscriptions != nil {
		if dashboard.Subscriptions, err = s.subscriptions.Stats(ctx, actor); err != nil {
			return Dashboard{}, fmt.Errorf("subscription stats: %w", err)
		}
		if dashboard.RevenueCents, err = s.subscriptions.Revenue(ctx, actor); err != nil {
			return Dashboard{}, fmt.Errorf("subscription revenue: %w", err)
		}
	}
	if s.ads != nil {
		if dashboard.AdImpressions, err = s.ads.Stats(ctx, actor); err != nil {
			return Dashboard{}, fmt.Errorf("ad stats: %w", err)
		}
	}
	if s.users != nil {
		dashboard.UsersByRole = make(map[userdomain.Role]int)
		for _, role := range []userdomain.Role{
			userdomain.RoleReader, userdomain.RoleAuthor, userdomain.RoleEditor, userdomain.RoleAdmin,
		} {
			count, err := s.users.CountByRole(ctx, role)
			if err != nil {
				return Dashboard{}, fmt.Errorf("count %s users: %w", role, err)
			}
			dashboard.UsersByRole[role] = count
		}
	}
	if s.views != nil {
		if dashboard.TopArticles, err = s.views.TopViewed(ctx, topArticleCount); err != nil {
			return Dashboard{}, fmt.Errorf("top viewed: %w", err)
		}
	}
	return dashboard, nil
}
