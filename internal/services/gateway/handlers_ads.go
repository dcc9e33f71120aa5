package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	adsapp "github.com/meridianpress/meridian/internal/services/ads/app"
	addomain "github.com/meridianpress/meridian/internal/services/ads/domain"
)

type adJSON struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Placement   string   `json:"placement"`
	TargetURL   string   `json:"target_url"`
	ImageURL    string   `json:"image_url,omitempty"`
	Active      bool     `json:"active"`
	Languages   []string `json:"languages,omitempty"`
	CategoryIDs []string `json:"category_ids,omitempty"`
	Weight      int      `json:"weight"`
	StartAt     string   `json:"start_at"`
	EndAt       string   `json:"end_at"`
}

func toAdJSON(ad addomain.Ad) adJSON {
	return adJSON{
		ID:          ad.ID,
		Name:        ad.Name,
		Placement:   string(ad.Placement),
		TargetURL:   ad.TargetURL,
		ImageURL:    ad.ImageURL,
		Active:      ad.Active,
		Languages:   ad.Languages,
		CategoryIDs: ad.CategoryIDs,
		Weight:      ad.Weight,
		StartAt:     timeField(ad.StartAt),
		EndAt:       timeField(ad.EndAt),
	}
}

type adRequest struct {
	Name        string    `json:"name" validate:"required"`
	Placement   string    `json:"placement" validate:"required"`
	TargetURL   string    `json:"target_url" validate:"required,url"`
	ImageURL    string    `json:"image_url"`
	Active      bool      `json:"active"`
	Languages   []string  `json:"languages"`
	CategoryIDs []string  `json:"category_ids"`
	Weight      int       `json:"weight" validate:"required,min=1"`
	StartAt     time.Time `json:"start_at" validate:"required"`
	EndAt       time.Time `json:"end_at" validate:"required"`
}

func (req adRequest) input() adsapp.AdInput {
	return adsapp.AdInput{
		Name:        req.Name,
		Placement:   req.Placement,
		TargetURL:   req.TargetURL,
		ImageURL:    req.ImageURL,
		Active:      req.Active,
		Languages:   req.Languages,
		CategoryIDs: req.CategoryIDs,
		Weight:      req.Weight,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
	}
}

func (s *Server) handleCreateAd(w http.ResponseWriter, r *http.Request) {
	var req adRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ad, err := s.services.Ads.Create(r.Context(), identityFrom(r), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, toAdJSON(ad))
}

func (s *Server) handleUpdateAd(w http.ResponseWriter, r *http.Request) {
	var req adRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ad, err := s.services.Ads.Update(r.Context(), identityFrom(r), chi.URLParam(r, "id"), req.input())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toAdJSON(ad))
}

func (s *Server) handleDeleteAd(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Ads.Delete(r.Context(), identityFrom(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleListAds(w http.ResponseWriter, r *http.Request) {
	ads, err := s.services.Ads.List(r.Context(), identityFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload := make([]adJSON, 0, len(ads))
	for _, ad := range ads {
		payload = append(payload, toAdJSON(ad))
	}
	s.writeJSON(w, r, http.StatusOK, payload)
}

// handleServeAd picks a campaign for the requested slot. An empty 200
// response body means no campaign matched; the client renders nothing.
func (s *Server) handleServeAd(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	ad, err := s.services.Ads.Serve(r.Context(), query.Get("placement"), query.Get("language"), query.Get("category"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ad == nil {
		s.writeJSON(w, r, http.StatusOK, nil)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toAdJSON(*ad))
}
