package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	userapp "github.com/meridianpress/meridian/internal/services/userhub/app"
	userdomain "github.com/meridianpress/meridian/internal/services/userhub/domain"
)

type userJSON struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Locale      string `json:"locale,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type sessionJSON struct {
	User         userJSON `json:"user"`
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresAt    string   `json:"expires_at"`
}

func toUserJSON(user userdomain.User) userJSON {
	return userJSON{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role.String(),
		Locale:      user.Locale,
		CreatedAt:   timeField(user.CreatedAt),
	}
}

func toSessionJSON(session userapp.Session) sessionJSON {
	return sessionJSON{
		User:         toUserJSON(session.User),
		Token:        session.Token,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func timeField(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required"`
	Password    string `json:"password" validate:"required"`
	Locale      string `json:"locale"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.services.Users.Register(r.Context(), req.Email, req.DisplayName, req.Password, req.Locale)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, toUserJSON(user))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.services.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toSessionJSON(session))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.services.Users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toSessionJSON(session))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)
	if identity.Anonymous() {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthenticationMissing, "sign in required"))
		return
	}
	user, err := s.services.Users.GetUser(r.Context(), identity.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toUserJSON(user))
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name" validate:"required"`
	Locale      string `json:"locale"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)
	if identity.Anonymous() {
		s.writeError(w, r, apperrors.New(apperrors.CodeAuthenticationMissing, "sign in required"))
		return
	}
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.services.Users.UpdateProfile(r.Context(), identity.UserID, req.DisplayName, req.Locale)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toUserJSON(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !actor.Role.CanAdminister() {
		s.writeError(w, r, apperrors.New(apperrors.CodePermissionDenied, "listing users requires admin"))
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	users, err := s.services.Users.ListUsers(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload := make([]userJSON, 0, len(users))
	for _, user := range users {
		payload = append(payload, toUserJSON(user))
	}
	s.writeJSON(w, r, http.StatusOK, payload)
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (s *Server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req changeRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	role, err := userdomain.ParseRole(req.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, err := s.services.Users.ChangeRole(r.Context(), actor, chi.URLParam(r, "id"), role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toUserJSON(user))
}

// actorUser loads the full account behind the request identity for
// operations that need more than the token claims.
func (s *Server) actorUser(r *http.Request) (userdomain.User, error) {
	identity := identityFrom(r)
	if identity.Anonymous() {
		return userdomain.User{}, apperrors.New(apperrors.CodeAuthenticationMissing, "sign in required")
	}
	return s.services.Users.GetUser(r.Context(), identity.UserID)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
