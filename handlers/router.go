package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/middleware"
	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestTimeout = 60 * time.Second

// Deps is everything the HTTP surface needs. Blobs and Limiter may be nil.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *service.Metrics
	Gatherer prometheus.Gatherer

	Sessions    *service.SessionService
	Users       *service.UserService
	Books       *service.BookService
	Moderation  *service.ModerationService
	Subscribers *service.SubscriberService
	Contacts    *service.ContactService
	Notify      *service.Dispatcher
	Blobs       service.BlobStore

	Limiter        *middleware.RateLimiter
	CORSOrigins    []string
	CookieSecure   bool
	MaxUploadBytes int64

	// Ping reports database health for /health.
	Ping func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	auth := &AuthHandler{Users: d.Users, SecureCookie: d.CookieSecure}
	books := &BooksHandler{Books: d.Books, Moderation: d.Moderation}
	users := &UsersHandler{Users: d.Users, Moderation: d.Moderation}
	uploads := &UploadHandler{Blobs: d.Blobs, MaxBytes: d.MaxUploadBytes}
	mail := &MailHandler{Subscribers: d.Subscribers, Contacts: d.Contacts, Notify: d.Notify}

	limited := func(h http.HandlerFunc) http.Handler {
		if d.Limiter == nil {
			return h
		}
		return d.Limiter.Handler(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}
	r.Use(middleware.CORS(d.CORSOrigins))
	r.Use(middleware.Authenticate(d.Sessions))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, apperr.NotFound("Route"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"code": "METHOD_NOT_ALLOWED", "error": "Method not allowed"})
	})

	r.Get("/health", health(d.Ping))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Method(http.MethodPost, "/register", limited(auth.Register))
			r.Method(http.MethodPost, "/login", limited(auth.Login))
			r.Post("/logout", auth.Logout)
			r.Get("/me", auth.Me)
			r.Method(http.MethodPost, "/forgot-password", limited(auth.ForgotPassword))
			r.Method(http.MethodPost, "/reset-password", limited(auth.ResetPassword))
		})

		r.Get("/books", books.List)
		r.Get("/book/featured", books.Featured)
		r.Get("/book/download/{id}", books.Download)
		r.Get("/book/{id}", books.Get)
		r.Get("/authors", books.Authors)
		r.Get("/authors/{authorId}/books", books.AuthorPublicBooks)

		r.Method(http.MethodPost, "/subscribe", limited(mail.Subscribe))
		r.Get("/unsubscribe", mail.Unsubscribe)
		r.Method(http.MethodPost, "/contact", limited(mail.Contact))

		r.With(middleware.RequireAuth).Post("/uploads", uploads.Upload)

		r.Route("/author", func(r chi.Router) {
			r.With(middleware.RequireAuth).Post("/request", users.RequestAuthor)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAuthor))
				r.Get("/books", books.MyBooks)
				r.Post("/books", books.Submit)
				r.Get("/stats", books.MyStats)
				r.Patch("/profile-image", users.ProfileImage)
				r.Get("/profile-image/upload-url", uploads.ProfileImageUploadURL)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))

			r.Get("/authors", users.AuthorRequests)
			r.Patch("/authors/approve", users.ApproveAuthor)
			r.Patch("/authors/reject", users.RejectAuthor)

			r.Get("/books", books.AdminList)
			r.Get("/books/approved", books.AdminApproved)
			r.Post("/books/approve", books.Approve)
			r.Post("/books/reject", books.Reject)
			r.Post("/books/feature", books.Feature)
			r.Post("/books/delete", books.Delete)
			r.Get("/books/{id}", books.AdminGet)
			r.Patch("/books/{id}", books.AdminUpdate)

			r.Get("/users", users.List)
			r.Patch("/users/role", users.SetRole)
			r.Patch("/users/block", users.SetBlocked)
			r.Patch("/users/edit", users.Edit)
			r.Delete("/users/delete", users.Delete)
			r.Get("/stats", users.Stats)

			r.Get("/subscribers", mail.ListSubscribers)
			r.Post("/newsletter", mail.Newsletter)
			r.Get("/email-logs", mail.EmailLogs)
			r.Get("/contact-us", mail.ListContacts)
			r.Delete("/contact-us", mail.DeleteContact)
			r.Post("/contact-us", mail.ReplyContact)
		})
	})

	// Page routes are rendered by the frontend; only their access rules live here.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PageGate(d.Sessions))
		page := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }
		for _, p := range []string{"/admin", "/admin/*", "/author/dashboard", "/author/dashboard/*", "/login", "/register"} {
			r.Get(p, page)
		}
	})

	return r
}

func health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				middleware.Logger(r.Context()).Warn("health check failed", "error", err)
				writeError(w, r, apperr.Unavailable("Database unavailable"))
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
