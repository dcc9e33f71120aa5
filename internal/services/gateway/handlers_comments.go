package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	commentsapp "github.com/meridianpress/meridian/internal/services/comments/app"
	commentdomain "github.com/meridianpress/meridian/internal/services/comments/domain"
)

type commentJSON struct {
	ID        string `json:"id"`
	ArticleID string `json:"article_id"`
	AuthorID  string `json:"author_id"`
	ParentID  string `json:"parent_id,omitempty"`
	Body      string `json:"body"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

type threadJSON struct {
	Comment commentJSON   `json:"comment"`
	Replies []commentJSON `json:"replies"`
}

func toCommentJSON(comment commentdomain.Comment) commentJSON {
	return commentJSON{
		ID:        comment.ID,
		ArticleID: comment.ArticleID,
		AuthorID:  comment.AuthorID,
		ParentID:  comment.ParentID,
		Body:      comment.Body,
		Status:    string(comment.Status),
		CreatedAt: timeField(comment.CreatedAt),
	}
}

func toCommentListJSON(comments []commentdomain.Comment) []commentJSON {
	payload := make([]commentJSON, 0, len(comments))
	for _, comment := range comments {
		payload = append(payload, toCommentJSON(comment))
	}
	return payload
}

func toThreadsJSON(threads []commentsapp.Thread) []threadJSON {
	payload := make([]threadJSON, 0, len(threads))
	for _, thread := range threads {
		payload = append(payload, threadJSON{
			Comment: toCommentJSON(thread.Comment),
			Replies: toCommentListJSON(thread.Replies),
		})
	}
	return payload
}

type postCommentRequest struct {
	ParentID string `json:"parent_id"`
	Body     string `json:"body" validate:"required"`
}

func (s *Server) handlePostComment(w http.ResponseWriter, r *http.Request) {
	var req postCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	comment, err := s.services.Comments.Post(r.Context(), identityFrom(r), chi.URLParam(r, "id"), req.ParentID, req.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, toCommentJSON(comment))
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.services.Comments.ListThreads(r.Context(), identityFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toThreadsJSON(threads))
}

type moderateCommentRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *Server) handleModerateComment(w http.ResponseWriter, r *http.Request) {
	var req moderateCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	status, ok := commentdomain.ParseStatus(req.Status)
	if !ok {
		s.writeError(w, r, apperrors.WithMetadata(
			apperrors.CodeCommentInvalidStatus,
			"unknown comment status",
			map[string]string{"Status": req.Status},
		))
		return
	}
	comment, err := s.services.Comments.Moderate(r.Context(), identityFrom(r), chi.URLParam(r, "id"), status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toCommentJSON(comment))
}

func (s *Server) handleCommentQueue(w http.ResponseWriter, r *http.Request) {
	comments, err := s.services.Comments.PendingQueue(r.Context(), identityFrom(r), queryInt(r, "limit", 50))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toCommentListJSON(comments))
}
