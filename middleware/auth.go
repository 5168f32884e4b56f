package middleware

import (
	"net/http"
	"strings"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/service"
)

// Cookie names. The role cookie only drives the UI; authorization always
// uses the role inside the verified token.
const (
	TokenCookie = "token"
	RoleCookie  = "role"
)

// Verifier turns a raw session token into a verified session.
type Verifier interface {
	Verify(token string) (*service.Session, error)
}

// tokenFromRequest prefers the session cookie and falls back to a bearer
// header for API clients.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Authenticate attaches the session to the context when the request carries
// a valid token. Invalid or missing tokens leave the request anonymous; the
// Require* gates decide what that means.
func Authenticate(v Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			sess, err := v.Verify(raw)
			if err != nil {
				Logger(r.Context()).Debug("session rejected", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithSession(r.Context(), sess)
			ctx = WithLogger(ctx, Logger(ctx).With("user_id", sess.UserID.Hex()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			Error(w, r, apperr.Unauthenticated(""))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits only sessions whose role equals role exactly.
func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				Error(w, r, apperr.Unauthenticated(""))
				return
			}
			if sess.Role != role {
				Error(w, r, apperr.Forbidden(""))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
