package gateway

import (
	"net/http"

	"github.com/meridianpress/meridian/internal/services/admin"
)

type topArticleJSON struct {
	ArticleID string `json:"article_id"`
	Views     int64  `json:"views"`
}

type dashboardJSON struct {
	Articles      map[string]int   `json:"articles"`
	Comments      map[string]int   `json:"comments"`
	Subscriptions map[string]int   `json:"subscriptions"`
	AdImpressions map[string]int64 `json:"ad_impressions"`
	UsersByRole   map[string]int   `json:"users_by_role"`
	RevenueCents  int64            `json:"revenue_cents"`
	TopArticles   []topArticleJSON `json:"top_articles"`
}

func toDashboardJSON(snapshot admin.Dashboard) dashboardJSON {
	payload := dashboardJSON{
		Articles:      map[string]int{},
		Comments:      map[string]int{},
		Subscriptions: map[string]int{},
		AdImpressions: map[string]int64{},
		UsersByRole:   map[string]int{},
		RevenueCents:  snapshot.RevenueCents,
		TopArticles:   make([]topArticleJSON, 0, len(snapshot.TopArticles)),
	}
	for adID, count := range snapshot.AdImpressions {
		payload.AdImpressions[adID] = count
	}
	for status, count := range snapshot.Articles {
		payload.Articles[string(status)] = count
	}
	for status, count := range snapshot.Comments {
		payload.Comments[string(status)] = count
	}
	for plan, count := range snapshot.Subscriptions {
		payload.Subscriptions[string(plan)] = count
	}
	for role, count := range snapshot.UsersByRole {
		payload.UsersByRole[role.String()] = count
	}
	for _, top := range snapshot.TopArticles {
		payload.TopArticles = append(payload.TopArticles, topArticleJSON{
			ArticleID: top.ArticleID,
			Views:     top.Views,
		})
	}
	return payload
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.services.Admin.Snapshot(r.Context(), identityFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toDashboardJSON(snapshot))
}
