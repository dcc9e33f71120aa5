package gateway

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	"github.com/meridianpress/meridian/internal/platform/i18n"
	contentapp "github.com/meridianpress/meridian/internal/services/content/app"
	contentdomain "github.com/meridianpress/meridian/internal/services/content/domain"
	"github.com/meridianpress/meridian/internal/services/content/storage"
	"github.com/meridianpress/meridian/internal/services/shared/authctx"
)

type articleJSON struct {
	ID                 string                `json:"id"`
	Slug               string                `json:"slug"`
	Language           string                `json:"language"`
	TranslationGroupID string                `json:"translation_group_id"`
	Title              string                `json:"title"`
	Summary            string                `json:"summary,omitempty"`
	Blocks             []contentdomain.Block `json:"blocks"`
	AuthorID           string                `json:"author_id"`
	CategoryID         string                `json:"category_id,omitempty"`
	TagIDs             []string              `json:"tag_ids,omitempty"`
	Premium            bool                  `json:"premium"`
	Status             string                `json:"status"`
	ReviewNote         string                `json:"review_note,omitempty"`
	PublishedAt        string                `json:"published_at,omitempty"`
	CreatedAt          string                `json:"created_at"`
	UpdatedAt          string                `json:"updated_at"`
}

func toArticleJSON(article contentdomain.Article) articleJSON {
	return articleJSON{
		ID:                 article.ID,
		Slug:               article.Slug,
		Language:           article.Language,
		TranslationGroupID: article.TranslationGroupID,
		Title:              article.Title,
		Summary:            article.Summary,
		Blocks:             article.Blocks,
		AuthorID:           article.AuthorID,
		CategoryID:         article.CategoryID,
		TagIDs:             article.TagIDs,
		Premium:            article.Premium,
		Status:             string(article.Status),
		ReviewNote:         article.ReviewNote,
		PublishedAt:        timeField(article.PublishedAt),
		CreatedAt:          timeField(article.CreatedAt),
		UpdatedAt:          timeField(article.UpdatedAt),
	}
}

func toArticleListJSON(articles []contentdomain.Article) []articleJSON {
	payload := make([]articleJSON, 0, len(articles))
	for _, article := range articles {
		payload = append(payload, toArticleJSON(article))
	}
	return payload
}

type draftRequest struct {
	Title         string                `json:"title" validate:"required"`
	Summary       string                `json:"summary"`
	Language      string                `json:"language" validate:"required"`
	Blocks        []contentdomain.Block `json:"blocks"`
	CategoryID    string                `json:"category_id"`
	TagIDs        []string              `json:"tag_ids"`
	Premium       bool                  `json:"premium"`
	TranslationOf string                `json:"translation_of"`
}

func (req draftRequest) input() contentapp.DraftInput {
	return contentapp.DraftInput{
		Title:         req.Title,
		Summary:       req.Summary,
		Language:      req.Language,
		Blocks:        req.Blocks,
		CategoryID:    req.CategoryID,
		TagIDs:        req.TagIDs,
		Premium:       req.Premium,
		TranslationOf: req.TranslationOf,
	}
}

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	article, err := s.services.Content.CreateDraft(r.Context(), identityFrom(r), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, toArticleJSON(article))
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	article, err := s.services.Content.UpdateDraft(r.Context(), identityFrom(r), chi.URLParam(r, "id"), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toArticleJSON(article))
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	article, err := s.services.Content.GetForEdit(r.Context(), identityFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toArticleJSON(article))
}

func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Content.Delete(r.Context(), identityFrom(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleSubmitArticle(w http.ResponseWriter, r *http.Request) {
	s.workflowStep(w, r, s.services.Content.Submit)
}

func (s *Server) handlePublishArticle(w http.ResponseWriter, r *http.Request) {
	s.workflowStep(w, r, s.services.Content.Publish)
}

func (s *Server) handleReviseArticle(w http.ResponseWriter, r *http.Request) {
	s.workflowStep(w, r, s.services.Content.Revise)
}

func (s *Server) handleArchiveArticle(w http.ResponseWriter, r *http.Request) {
	s.workflowStep(w, r, s.services.Content.Archive)
}

func (s *Server) workflowStep(w http.ResponseWriter, r *http.Request, step func(ctx context.Context, actor authctx.Identity, articleID string) (contentdomain.Article, error)) {
	article, err := step(r.Context(), identityFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toArticleJSON(article))
}

type rejectRequest struct {
	Note string `json:"note" validate:"required"`
}

func (s *Server) handleRejectArticle(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	article, err := s.services.Content.Reject(r.Context(), identityFrom(r), chi.URLParam(r, "id"), req.Note)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toArticleJSON(article))
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := storage.Filter{
		Language:   query.Get("language"),
		CategoryID: query.Get("category"),
		TagID:      query.Get("tag"),
		AuthorID:   query.Get("author"),
		Limit:      queryInt(r, "limit", 20),
		Offset:     queryInt(r, "offset", 0),
	}
	if raw := query.Get("status"); raw != "" {
		status, ok := contentdomain.ParseStatus(raw)
		if !ok {
			s.writeError(w, r, apperrors.WithMetadata(
				apperrors.CodeInvalidArgument,
				"unknown status",
				map[string]string{"Status": raw},
			))
			return
		}
		filter.Status = status
	}
	articles, err := s.services.Content.List(r.Context(), identityFrom(r), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toArticleListJSON(articles))
}

func (s *Server) handleTranslations(w http.ResponseWriter, r *http.Request) {
	articles, err := s.services.Content.Translations(r.Context(), identityFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toArticleListJSON(articles))
}

type articleReadJSON struct {
	Article       articleJSON `json:"article"`
	Views         int64       `json:"views"`
	Truncated     bool        `json:"truncated"`
	PaywallNotice string      `json:"paywall_notice,omitempty"`
}

func (s *Server) handleReadArticle(w http.ResponseWriter, r *http.Request) {
	view, err := s.services.Content.ReadPublished(
		r.Context(),
		identityFrom(r),
		chi.URLParam(r, "language"),
		chi.URLParam(r, "slug"),
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload := articleReadJSON{
		Article:   toArticleJSON(view.Article),
		Views:     view.Views,
		Truncated: view.Truncated,
	}
	if view.Truncated {
		payload.PaywallNotice = i18n.Printer(requestTag(r.Context())).Sprintf("paywall.preview_notice")
	}
	s.writeJSON(w, r, http.StatusOK, payload)
}

type searchHitJSON struct {
	ArticleID string `json:"article_id"`
	Slug      string `json:"slug"`
	Language  string `json:"language"`
	Title     string `json:"title"`
	Summary   string `json:"summary,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	hits, err := s.services.Content.Search(r.Context(), query.Get("q"), query.Get("language"), queryInt(r, "limit", 20))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload := make([]searchHitJSON, 0, len(hits))
	for _, hit := range hits {
		payload = append(payload, searchHitJSON{
			ArticleID: hit.ArticleID,
			Slug:      hit.Slug,
			Language:  hit.Language,
			Title:     hit.Title,
			Summary:   hit.Summary,
		})
	}
	s.writeJSON(w, r, http.StatusOK, payload)
}
