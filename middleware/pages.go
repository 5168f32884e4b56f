package middleware

import (
	"net/http"
	"strings"

	"github.com/MohitSaini10/dan-aliph/models"
)

// PageGate guards the browser page routes with redirects instead of JSON
// errors:
//
//	/admin...            admin only; no or bad session -> /login, other role -> /
//	/author/dashboard... author only; same redirects
//	/login, /register    a signed-in visitor is sent to their home page;
//	                     an unverifiable token is sent to /
func PageGate(v Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			switch {
			case strings.HasPrefix(path, "/author/dashboard"):
				if to := gate(v, r, models.RoleAuthor); to != "" {
					redirect(w, r, to)
					return
				}
			case strings.HasPrefix(path, "/admin"):
				if to := gate(v, r, models.RoleAdmin); to != "" {
					redirect(w, r, to)
					return
				}
			case path == "/login" || path == "/register":
				if raw := pageToken(r); raw != "" {
					sess, err := v.Verify(raw)
					if err != nil {
						redirect(w, r, "/")
						return
					}
					redirect(w, r, homeFor(sess.Role))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func gate(v Verifier, r *http.Request, role string) string {
	raw := pageToken(r)
	if raw == "" {
		return "/login"
	}
	sess, err := v.Verify(raw)
	if err != nil {
		return "/login"
	}
	if sess.Role != role {
		return "/"
	}
	return ""
}

// Pages are browser navigations, so only the cookie counts here.
func pageToken(r *http.Request) string {
	c, err := r.Cookie(TokenCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func homeFor(role string) string {
	switch role {
	case models.RoleAdmin:
		return "/admin"
	case models.RoleAuthor:
		return "/author/dashboard"
	}
	return "/"
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusTemporaryRedirect)
}
