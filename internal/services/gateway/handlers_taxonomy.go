package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	taxonomyapp "github.com/meridianpress/meridian/internal/services/taxonomy/app"
	taxonomydomain "github.com/meridianpress/meridian/internal/services/taxonomy/domain"
)

type categoryJSON struct {
	ID          string            `json:"id"`
	Slug        string            `json:"slug"`
	Name        string            `json:"name"`
	Names       map[string]string `json:"names,omitempty"`
	Description string            `json:"description,omitempty"`
	ParentID    string            `json:"parent_id,omitempty"`
	Position    int               `json:"position"`
	CreatedAt   string            `json:"created_at"`
}

type categoryNodeJSON struct {
	Category categoryJSON       `json:"category"`
	Children []categoryNodeJSON `json:"children"`
}

func toCategoryJSON(category taxonomydomain.Category) categoryJSON {
	return categoryJSON{
		ID:          category.ID,
		Slug:        category.Slug,
		Name:        category.Name,
		Names:       category.Names,
		Description: category.Description,
		ParentID:    category.ParentID,
		Position:    category.Position,
		CreatedAt:   timeField(category.CreatedAt),
	}
}

func toCategoryTreeJSON(nodes []*taxonomyapp.CategoryNode) []categoryNodeJSON {
	payload := make([]categoryNodeJSON, 0, len(nodes))
	for _, node := range nodes {
		payload = append(payload, categoryNodeJSON{
			Category: toCategoryJSON(node.Category),
			Children: toCategoryTreeJSON(node.Children),
		})
	}
	return payload
}

type categoryRequest struct {
	Name        string            `json:"name" validate:"required"`
	Names       map[string]string `json:"names"`
	Description string            `json:"description"`
	ParentID    string            `json:"parent_id"`
	Position    int               `json:"position"`
}

func (req categoryRequest) input() taxonomyapp.CategoryInput {
	return taxonomyapp.CategoryInput{
		Name:        req.Name,
		Names:       req.Names,
		Description: req.Description,
		ParentID:    req.ParentID,
		Position:    req.Position,
	}
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	category, err := s.services.Taxonomy.CreateCategory(r.Context(), identityFrom(r), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, toCategoryJSON(category))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	category, err := s.services.Taxonomy.UpdateCategory(r.Context(), identityFrom(r), chi.URLParam(r, "id"), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toCategoryJSON(category))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.services.Taxonomy.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toCategoryJSON(category))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Taxonomy.DeleteCategory(r.Context(), identityFrom(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleCategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.services.Taxonomy.Tree(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toCategoryTreeJSON(tree))
}

type tagJSON struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func toTagJSON(tag taxonomydomain.Tag) tagJSON {
	return tagJSON{ID: tag.ID, Slug: tag.Slug, Name: tag.Name}
}

type tagRequest struct {
	Name string `json:"name" validate:"required"`
}

func (s *Server) handleEnsureTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tag, err := s.services.Taxonomy.EnsureTag(r.Context(), identityFrom(r), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toTagJSON(tag))
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.services.Taxonomy.ListTags(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload := make([]tagJSON, 0, len(tags))
	for _, tag := range tags {
		payload = append(payload, toTagJSON(tag))
	}
	s.writeJSON(w, r, http.StatusOK, payload)
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Taxonomy.DeleteTag(r.Context(), identityFrom(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusNoContent, nil)
}
