// Package app orchestrates the editorial workflow over article storage,
// the search index, the payload cache and view counting.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	"github.com/meridianpress/meridian/internal/platform/id"
	"github.com/meridianpress/meridian/internal/platform/timeouts"
	"github.com/meridianpress/meridian/internal/services/content/domain"
	"github.com/meridianpress/meridian/internal/services/content/storage"
	"github.com/meridianpress/meridian/internal/services/shared/authctx"
	userdomain "github.com/meridianpress/meridian/internal/services/userhub/domain"
)

// paywallNotice closes a truncated premium article body.
var paywallNotice = domain.Block{
	Type: domain.BlockParagraph,
	Data: json.RawMessage(`{"text":"Subscribe to continue reading this article."}`),
}

// cacheTTL bounds staleness of cached published articles. Writes also
// invalidate, so the TTL only matters when invalidation is missed.
const cacheTTL = 5 * time.Minute

// SearchHit is one result from the full-text index.
type SearchHit struct {
	ArticleID string
	Slug      string
	Language  string
	Title     string
	Summary   string
}

// SearchIndex is the full-text index consumed by the service. All calls
// are best effort: failures degrade search, they never block publishing.
type SearchIndex interface {
	Upsert(ctx context.Context, article domain.Article) error
	Delete(ctx context.Context, articleID string) error
	Query(ctx context.Context, query, language string, limit int) ([]SearchHit, error)
}

// ArticleCache stores serialized published articles. Get errors are
// treated as misses.
type ArticleCache interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	DeletePrefix(prefix string) error
}

// ViewRecorder counts article reads.
type ViewRecorder interface {
	Record(articleID string)
	Views(ctx context.Context, articleID string) (int64, error)
	Forget(ctx context.Context, articleID string) error
}

// CommentPurger removes an article's comment thread when the article is
// deleted.
type CommentPurger interface {
	PurgeArticle(ctx context.Context, articleID string) error
}

// AccessChecker reports whether a reader may see premium content in full.
type AccessChecker interface {
	HasPremiumAccess(ctx context.Context, userID string) (bool, error)
}

// Service implements article authoring, the editorial workflow and
// public reading.
type Service struct {
	store    storage.ArticleStore
	index    SearchIndex
	cache    ArticleCache
	views    ViewRecorder
	comments CommentPurger
	access   AccessChecker
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

// WithSearchIndex attaches the full-text index.
func WithSearchIndex(index SearchIndex) Option {
	return func(s *Service) { s.index = index }
}

// WithCache attaches the published-article cache.
func WithCache(cache ArticleCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithViews attaches the view counter.
func WithViews(views ViewRecorder) Option {
	return func(s *Service) { s.views = views }
}

// WithCommentPurger attaches comment cleanup for article deletion.
func WithCommentPurger(purger CommentPurger) Option {
	return func(s *Service) { s.comments = purger }
}

// WithAccessChecker attaches the subscription check used by the paywall.
func WithAccessChecker(access AccessChecker) Option {
	return func(s *Service) { s.access = access }
}

// New creates a content service.
func New(store storage.ArticleStore, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DraftInput carries the author-editable fields of an article.
type DraftInput struct {
	Title         string
	Summary       string
	Language      string
	Blocks        []domain.Block
	CategoryID    string
	TagIDs        []string
	Premium       bool
	TranslationOf string
}

// ArticleView is an article prepared for a reader, with its view count
// and a flag marking paywall truncation.
type ArticleView struct {
	Article   domain.Article
	Views     int64
	Truncated bool
}

func canEdit(actor authctx.Identity, article domain.Article) bool {
	if actor.Role.AtLeast(userdomain.RoleEditor) {
		return true
	}
	return actor.UserID != "" && actor.UserID == article.AuthorID
}

// CreateDraft creates a new draft article owned by the actor.
func (s *Service) CreateDraft(ctx context.Context, actor authctx.Identity, input DraftInput) (domain.Article, error) {
	if !actor.Role.CanAuthor() {
		return domain.Article{}, apperrors.New(apperrors.CodePermissionDenied, "authoring requires the author role")
	}

	now := s.now().UTC()
	article := domain.Article{
		ID:         id.New(),
		Language:   strings.TrimSpace(input.Language),
		Title:      strings.TrimSpace(input.Title),
		Summary:    strings.TrimSpace(input.Summary),
		Blocks:     input.Blocks,
		AuthorID:   actor.UserID,
		CategoryID: strings.TrimSpace(input.CategoryID),
		TagIDs:     input.TagIDs,
		Premium:    input.Premium,
		Status:     domain.StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := article.Validate(); err != nil {
		return domain.Article{}, err
	}

	if input.TranslationOf != "" {
		origin, err := s.store.GetArticle(ctx, input.TranslationOf)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return domain.Article{}, apperrors.New(apperrors.CodeNotFound, "translated article not found")
			}
			return domain.Article{}, fmt.Errorf("load translation origin: %w", err)
		}
		article.TranslationGroupID = origin.TranslationGroupID
	} else {
		article.TranslationGroupID = id.New()
	}

	slug, err := s.uniqueSlug(ctx, article.Language, domain.Slugify(article.Title))
	if err != nil {
		return domain.Article{}, err
	}
	article.Slug = slug

	if err := s.store.CreateArticle(ctx, article); err != nil {
		return domain.Article{}, fmt.Errorf("create article: %w", err)
	}
	return article, nil
}

// UpdateDraft replaces the editable fields of an article. Authors may
// edit their own drafts and rejected articles; editors may additionally
// edit pending and published articles. The slug is frozen once an
// article has been published.
func (s *Service) UpdateDraft(ctx context.Context, actor authctx.Identity, articleID string, input DraftInput) (domain.Article, error) {
	article, err := s.loadArticle(ctx, articleID)
	if err != nil {
		return domain.Article{}, err
	}
	if !canEdit(actor, article) {
		return domain.Article{}, apperrors.New(apperrors.CodeArticleNotAuthor, "article belongs to another author")
	}

	switch article.Status {
	case domain.StatusDraft, domain.StatusRejected:
	case domain.StatusPending, domain.StatusPublished:
		if !actor.Role.CanModerate() {
			return domain.Article{}, apperrors.WithMetadata(
				apperrors.CodeArticleStatusDisallowsOp,
				"only editors may edit articles in review or published",
				map[string]string{"Status": string(article.Status)},
			)
		}
	default:
		return domain.Article{}, apperrors.WithMetadata(
			apperrors.CodeArticleStatusDisallowsOp,
			"archived articles are read only",
			map[string]string{"Status": string(article.Status)},
		)
	}

	titleChanged := strings.TrimSpace(input.Title) != article.Title

	article.Title = strings.TrimSpace(input.Title)
	article.Summary = strings.TrimSpace(input.Summary)
	article.Blocks = input.Blocks
	article.CategoryID = strings.TrimSpace(input.CategoryID)
	article.TagIDs = input.TagIDs
	article.Premium = input.Premium
	article.UpdatedAt = s.now().UTC()
	if err := article.Validate(); err != nil {
		return domain.Article{}, err
	}

	if titleChanged && article.PublishedAt.IsZero() {
		slug, err := s.uniqueSlug(ctx, article.Language, domain.Slugify(article.Title))
		if err != nil {
			return domain.Article{}, err
		}
		article.Slug = slug
	}

	if err := s.store.UpdateArticle(ctx, article); err != nil {
		return domain.Article{}, fmt.Errorf("update article: %w", err)
	}
	if article.Status == domain.StatusPublished {
		s.reindex(article)
		s.invalidate(article)
	}
	return article, nil
}

// Submit moves a draft into editorial review.
func (s *Service) Submit(ctx context.Context, actor authctx.Identity, articleID string) (domain.Article, error) {
	article, err := s.loadArticle(ctx, articleID)
	if err != nil {
		return domain.Article{}, err
	}
	if !canEdit(actor, article) {
		return domain.Article{}, apperrors.New(apperrors.CodeArticleNotAuthor, "article belongs to another author")
	}
	if err := article.ValidateForSubmit(); err != nil {
		return domain.Article{}, err
	}
	if err := article.Status.Transition(domain.StatusPending); err != nil {
		return domain.Article{}, err
	}
	article.Status = domain.StatusPending
	article.ReviewNote = ""
	article.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateArticle(ctx, article); err != nil {
		return domain.Article{}, fmt.Errorf("submit article: %w", err)
	}
	return article, nil
}

// Publish approves a pending article and makes it publicly readable. The
// first publication stamps PublishedAt; re-publication after archival is
// not part of the workflow.
func (s *Service) Publish(ctx context.Context, actor authctx.Identity, articleID string) (domain.Article, error) {
	if !actor.Role.CanModerate() {
		return domain.Article{}, apperrors.New(apperrors.CodePermissionDenied, "publishing requires the editor role")
	}
	article, err := s.loadArticle(ctx, articleID)
	if err != nil {
		return domain.Article{}, err
	}
	if err := article.ValidateForPublish(); err != nil {
		return domain.Article{}, err
	}
	if err := article.Status.Transition(domain.StatusPublished); err != nil {
		return domain.Article{}, err
	}
	article.Status = domain.StatusPublished
	article.ReviewNote = ""
	if article.PublishedAt.IsZero() {
		article.PublishedAt = s.now().UTC()
	}
	article.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateArticle(ctx, article); err != nil {
		return domain.Article{}, fmt.Errorf("publish article: %w", err)
	}
	s.reindex(article)
	s.invalidate(article)
	return article, nil
}

// Reject returns a pending article to its author with a review note.
func (s *Service) Reject(ctx context.Context, actor authctx.Identity, articleID, note string) (domain.Article, error) {
	if !actor.Role.CanModerate() {
		return domain.Article{}, apperrors.New(apperrors.CodePermissionDenied, "rejecting requires the editor role")
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return domain.Article{}, apperrors.New(apperrors.CodeArticleReviewNoteRequired, "rejection requires a review note")
	}
	article, err := s.loadArticle(ctx, articleID)
	if err != nil {
		return domain.Article{}, err
	}
	if err := article.Status.Transition(domain.StatusRejected); err != nil {
		return domain.Article{}, err
	}
	article.Status = domain.StatusRejected
	article.ReviewNote = note
	article.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateArticle(ctx, article); err != nil {
		return domain.Article{}, fmt.Errorf("reject article: %w", err)
	}
	return article, nil
}

// Revise returns a rejected article to draft so the author can rework it.
func (s *Service) Revise(ctx context.Context, actor authctx.Identity, articleID string) (domain.Article, error) {
	article, err := s.loadArticle(ctx, articleID)
	if err != nil {
		return domain.Article{}, err
	}
	if !canEdit(actor, article) {
		return domain.Article{}, apperrors.New(apperrors.CodeArticleNotAuthor, "article belongs to another author")
	}
	if err := article.Status.Transition(domain.StatusDraft); err != nil {
		return domain.Article{}, err
	}
	article.Status = domain.StatusDraft
	article.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateArticle(ctx, article); err != nil {
		return domain.Article{}, fmt.Errorf("revise article: %w", err)
	}
	return article, nil
}

// Archive withdraws a published article from public reading.
func (s *Service) Archive(ctx context.Context, actor authctx.Identity, articleID string) (domain.Article, error) {
	if !actor.Role.CanModerate() {
		return domain.Article{}, apperrors.New(apperrors.CodePermissionDenied, "archiving requires the editor role")
	}
	article, err := s.loadArticle(ctx, articleID)
	if err != nil {
		return domain.Article{}, err
	}
	if err := article.Status.Transition(domain.StatusArchived); err != nil {
		return domain.Article{}, err
	}
	article.Status = domain.StatusArchived
	article.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateArticle(ctx, article); err != nil {
		return domain.Article{}, fmt.Errorf("archive article: %w", err)
	}
	s.deindex(article.ID)
	s.invalidate(article)
	return article, nil
}

// Delete permanently removes an article along with its comments, view
// counts, cache entries and index document. Admin only.
func (s *Service) Delete(ctx context.Context, actor authctx.Identity, articleID string) error {
	if !actor.Role.CanAdminister() {
		return apperrors.New(apperrors.CodePermissionDenied, "deleting articles requires the admin role")
	}
	article, err := s.loadArticle(ctx, articleID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteArticle(ctx, articleID); err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	if s.comments != nil {
		if err := s.comments.PurgeArticle(ctx, articleID); err != nil {
			s.logger.Error("purge comments failed", "article_id", articleID, "error", err)
		}
	}
	if s.views != nil {
		if err := s.views.Forget(ctx, articleID); err != nil {
			s.logger.Error("forget views failed", "article_id", articleID, "error", err)
		}
	}
	s.deindex(articleID)
	s.invalidate(article)
	return nil
}

// GetForEdit loads any article for its author or an editor.
func (s *Service) GetForEdit(ctx context.Context, actor authctx.Identity, articleID string) (domain.Article, error) {
	article, err := s.loadArticle(ctx, articleID)
	if err != nil {
		return domain.Article{}, err
	}
	if !canEdit(actor, article) {
		return domain.Article{}, apperrors.New(apperrors.CodeArticleNotAuthor, "article belongs to another author")
	}
	return article, nil
}

// ReadPublished serves one published article to a reader, counting the
// view and applying the premium paywall. Unpublished articles are
// indistinguishable from missing ones.
func (s *Service) ReadPublished(ctx context.Context, actor authctx.Identity, language, slug string) (ArticleView, error) {
	article, ok := s.cachedArticle(language, slug)
	if !ok {
		var err error
		article, err = s.store.GetArticleBySlug(ctx, language, slug)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ArticleView{}, apperrors.New(apperrors.CodeNotFound, "article not found")
			}
			return ArticleView{}, fmt.Errorf("load article: %w", err)
		}
		if article.Status == domain.StatusPublished {
			s.cacheArticle(article)
		}
	}
	if article.Status != domain.StatusPublished {
		return ArticleView{}, apperrors.New(apperrors.CodeNotFound, "article not found")
	}

	view := ArticleView{Article: article}
	if s.views != nil {
		s.views.Record(article.ID)
		views, err := s.views.Views(ctx, article.ID)
		if err != nil {
			s.logger.Error("read view count failed", "article_id", article.ID, "error", err)
		} else {
			view.Views = views
		}
	}

	if article.Premium && !s.hasFullAccess(ctx, actor) {
		view.Article.Blocks = paywallPreview(article.Blocks)
		view.Truncated = true
	}
	return view, nil
}

// paywallPreview keeps the first block of prose and appends the
// subscription notice. Headings carry no body text, so they are
// skipped when choosing the preview block.
func paywallPreview(blocks []domain.Block) []domain.Block {
	preview := make([]domain.Block, 0, 2)
	for _, block := range blocks {
		if block.Type != domain.BlockHeading {
			preview = append(preview, block)
			break
		}
	}
	return append(preview, paywallNotice)
}

// List returns articles for a reader or the newsroom. Anyone below the
// editor role sees published articles only, except authors listing their
// own work.
func (s *Service) List(ctx context.Context, actor authctx.Identity, filter storage.Filter) ([]domain.Article, error) {
	ownWork := actor.Role.CanAuthor() && filter.AuthorID != "" && filter.AuthorID == actor.UserID
	if !actor.Role.CanModerate() && !ownWork {
		filter.Status = domain.StatusPublished
	}
	articles, err := s.store.ListArticles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return articles, nil
}

// Translations returns the language variants of an article. Readers see
// published variants only.
func (s *Service) Translations(ctx context.Context, actor authctx.Identity, articleID string) ([]domain.Article, error) {
	article, err := s.loadArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	variants, err := s.store.ListTranslations(ctx, article.TranslationGroupID)
	if err != nil {
		return nil, fmt.Errorf("list translations: %w", err)
	}
	if actor.Role.CanModerate() {
		return variants, nil
	}
	published := variants[:0]
	for _, variant := range variants {
		if variant.Status == domain.StatusPublished {
			published = append(published, variant)
		}
	}
	return published, nil
}

// Search queries the full-text index, falling back to a title search on
// the store when the index is unavailable.
func (s *Service) Search(ctx context.Context, query, language string, limit int) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.New(apperrors.CodeSearchQueryEmpty, "search query is empty")
	}
	if s.index != nil {
		hits, err := s.index.Query(ctx, query, language, limit)
		if err == nil {
			return s.hydrateHits(ctx, hits), nil
		}
		s.logger.Error("search index query failed, falling back to titles", "error", err)
	}
	articles, err := s.store.SearchTitles(ctx, query, language, limit)
	if err != nil {
		return nil, fmt.Errorf("title search: %w", err)
	}
	hits := make([]SearchHit, 0, len(articles))
	for _, article := range articles {
		hits = append(hits, SearchHit{
			ArticleID: article.ID,
			Slug:      article.Slug,
			Language:  article.Language,
			Title:     article.Title,
			Summary:   article.Summary,
		})
	}
	return hits, nil
}

// hydrateHits re-reads each hit from the article store. The index lags
// behind deletes and archivals, so hits whose article is gone or no
// longer published are dropped, and surviving hits carry the stored
// title and slug rather than the indexed ones.
func (s *Service) hydrateHits(ctx context.Context, hits []SearchHit) []SearchHit {
	fresh := hits[:0]
	for _, hit := range hits {
		article, err := s.store.GetArticle(ctx, hit.ArticleID)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				s.logger.Error("hydrate search hit failed", "article_id", hit.ArticleID, "error", err)
			}
			continue
		}
		if article.Status != domain.StatusPublished {
			continue
		}
		fresh = append(fresh, SearchHit{
			ArticleID: article.ID,
			Slug:      article.Slug,
			Language:  article.Language,
			Title:     article.Title,
			Summary:   article.Summary,
		})
	}
	return fresh
}

// Stats returns article counts per workflow status for the dashboard.
func (s *Service) Stats(ctx context.Context, actor authctx.Identity) (map[domain.Status]int, error) {
	if !actor.Role.CanModerate() {
		return nil, apperrors.New(apperrors.CodePermissionDenied, "stats require the editor role")
	}
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}
	return counts, nil
}

func (s *Service) loadArticle(ctx context.Context, articleID string) (domain.Article, error) {
	article, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Article{}, apperrors.New(apperrors.CodeNotFound, "article not found")
		}
		return domain.Article{}, fmt.Errorf("load article: %w", err)
	}
	return article, nil
}

// uniqueSlug appends a numeric suffix until the slug is free within the
// language.
func (s *Service) uniqueSlug(ctx context.Context, language, base string) (string, error) {
	candidate := base
	for attempt := 2; ; attempt++ {
		taken, err := s.store.SlugExists(ctx, language, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
}

func (s *Service) hasFullAccess(ctx context.Context, actor authctx.Identity) bool {
	if actor.Role.CanAuthor() {
		return true
	}
	if actor.Anonymous() || s.access == nil {
		return false
	}
	allowed, err := s.access.HasPremiumAccess(ctx, actor.UserID)
	if err != nil {
		s.logger.Error("premium access check failed", "user_id", actor.UserID, "error", err)
		return false
	}
	return allowed
}

func cacheKey(language, slug string) string {
	return "article:" + language + ":" + slug
}

func (s *Service) cachedArticle(language, slug string) (domain.Article, bool) {
	if s.cache == nil {
		return domain.Article{}, false
	}
	payload, err := s.cache.Get(cacheKey(language, slug))
	if err != nil {
		return domain.Article{}, false
	}
	var article domain.Article
	if err := json.Unmarshal(payload, &article); err != nil {
		return domain.Article{}, false
	}
	return article, true
}

func (s *Service) cacheArticle(article domain.Article) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(article)
	if err != nil {
		return
	}
	if err := s.cache.Set(cacheKey(article.Language, article.Slug), payload, cacheTTL); err != nil {
		s.logger.Error("cache article failed", "article_id", article.ID, "error", err)
	}
}

func (s *Service) invalidate(article domain.Article) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(cacheKey(article.Language, article.Slug)); err != nil {
		s.logger.Error("cache invalidation failed", "article_id", article.ID, "error", err)
	}
}

// reindex pushes an article to the search index without blocking the
// caller. The write already committed; index lag is acceptable.
func (s *Service) reindex(article domain.Article) {
	if s.index == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.SearchIndex)
		defer cancel()
		if err := s.index.Upsert(ctx, article); err != nil {
			s.logger.Error("search index update failed", "article_id", article.ID, "error", err)
		}
	}()
}

func (s *Service) deindex(articleID string) {
	if s.index == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.SearchIndex)
		defer cancel()
		if err := s.index.Delete(ctx, articleID); err != nil {
			s.logger.Error("search index removal failed", "article_id", articleID, "error", err)
		}
	}()
}
