package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	"github.com/meridianpress/meridian/internal/platform/i18n"
	"github.com/meridianpress/meridian/internal/services/shared/authctx"
	"github.com/meridianpress/meridian/internal/services/userhub/token"
)

type localeKey struct{}

// localeMiddleware resolves the response language for the request and
// persists an explicit ?lang= choice as a cookie.
func (s *Server) localeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag, persist := i18n.ResolveTag(r)
		if persist {
			i18n.SetLanguageCookie(w, tag)
		}
		ctx := context.WithValue(r.Context(), localeKey{}, tag)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestTag(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(localeKey{}).(language.Tag); ok {
		return tag
	}
	return i18n.Default()
}

// authMiddleware verifies a bearer token when one is supplied and stores
// the resulting identity in the request context. Requests without an
// Authorization header pass through as anonymous; the services decide
// which operations require authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		value, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			s.writeError(w, r, apperrors.New(apperrors.CodeTokenInvalid, "malformed authorization header"))
			return
		}
		claims, err := token.Verify(value, s.tokens)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		identity := authctx.Identity{UserID: claims.UserID, Role: claims.Role}
		next.ServeHTTP(w, r.WithContext(authctx.WithIdentity(r.Context(), identity)))
	})
}

func identityFrom(r *http.Request) authctx.Identity {
	identity, _ := authctx.FromContext(r.Context())
	return identity
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
