package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	h "bannedemails/internal/delivery/http/helpers"
	"bannedemails/internal/domain"
)

type contextKey string

const sessionKey contextKey = "session"

// SetSession returns a context carrying the verified session. Used by auth middleware.
func SetSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the verified session from the context, if present.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*domain.Session)
	return s, ok && s != nil
}

// bearerToken extracts the token from an Authorization header. present is
// false when the header is absent.
func bearerToken(r *http.Request) (token string, present bool, msg string) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false, "missing authorization header"
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", true, "invalid authorization format"
	}
	token = strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", true, "missing token"
	}
	return token, true, ""
}

// RequireRole returns a wrapper that validates the Bearer token, requires
// the given role and sets the session in the request context.
// It responds with 401 for a missing or invalid token and 403 for a missing role.
func RequireRole(verifier domain.TokenVerifier, role string, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, _, msg := bearerToken(r)
			if msg != "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, msg)
				return
			}
			session, err := verifier.Verify(token)
			if err != nil {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			if !session.HasRole(role) {
				logger.WarnContext(r.Context(), "forbidden", "path", r.URL.Path, "user_id", session.UserID, "role", role)
				h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "forbidden")
				return
			}
			next(w, r.WithContext(SetSession(r.Context(), session)))
		}
	}
}

// OptionalAuth sets the session in the request context when a Bearer token
// is sent. Requests without an Authorization header pass through as guests;
// a header with an invalid token is rejected with 401.
func OptionalAuth(verifier domain.TokenVerifier) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, present, msg := bearerToken(r)
			if !present {
				next(w, r)
				return
			}
			if msg != "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, msg)
				return
			}
			session, err := verifier.Verify(token)
			if err != nil {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			next(w, r.WithContext(SetSession(r.Context(), session)))
		}
	}
}
