package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MohitSaini10/dan-aliph/handlers"
	"github.com/MohitSaini10/dan-aliph/middleware"
	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/service"
	"github.com/MohitSaini10/dan-aliph/service/servicetest"
	"github.com/MohitSaini10/dan-aliph/store/storetest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type server struct {
	mem      *storetest.Memory
	blobs    *servicetest.BlobStore
	sessions *service.SessionService
	deps     handlers.Deps
	handler  http.Handler
}

type option func(*handlers.Deps)

func withoutBlobs(d *handlers.Deps) { d.Blobs = nil }

func newServer(t *testing.T, opts ...option) *server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	s := &server{
		mem:      storetest.NewMemory(),
		blobs:    servicetest.NewBlobStore(),
		sessions: service.NewSessionService("handler-test", time.Hour),
	}
	metrics := service.NewMetrics(reg)
	dispatch := service.NewDispatcher(&servicetest.Notifier{}, s.mem, metrics, log)
	t.Cleanup(dispatch.Wait)
	users := service.NewUserService(s.mem, s.mem, s.sessions, dispatch, metrics, "https://danaliph.test", log)

	s.deps = handlers.Deps{
		Logger:         log,
		Metrics:        metrics,
		Gatherer:       reg,
		Sessions:       s.sessions,
		Users:          users,
		Books:          service.NewBookService(s.mem, s.mem, s.blobs, nil, metrics, log),
		Moderation:     service.NewModerationService(s.mem, s.mem, users, dispatch, nil, metrics, "https://danaliph.test", log),
		Subscribers:    service.NewSubscriberService(s.mem, dispatch, "https://danaliph.test", log),
		Contacts:       service.NewContactService(s.mem, dispatch, "admin@danaliph.test"),
		Notify:         dispatch,
		Blobs:          s.blobs,
		CORSOrigins:    []string{"http://localhost:3000"},
		MaxUploadBytes: 1 << 20,
	}
	for _, o := range opts {
		o(&s.deps)
	}
	s.handler = handlers.NewRouter(s.deps)
	return s
}

func (s *server) seedUser(t *testing.T, email, role string) (*models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Name: "Test " + role, Email: email, PasswordHash: string(hash), Role: role, CreatedAt: time.Now().UTC()}
	id, err := s.mem.CreateUser(context.Background(), u)
	require.NoError(t, err)
	u.ID = id
	token, _, err := s.sessions.Issue(u)
	require.NoError(t, err)
	return u, token
}

func (s *server) seedBook(t *testing.T, author *models.User, price float64, public bool) *models.Book {
	t.Helper()
	b := &models.Book{
		Title:      "Book " + primitive.NewObjectID().Hex(),
		Slug:       primitive.NewObjectID().Hex(),
		Category:   "Poetry",
		Language:   "English",
		AuthorID:   author.ID,
		AuthorName: author.Name,
		CoverImage: servicetest.BaseURL + "/covers/c.jpg",
		BookURL:    servicetest.BaseURL + "/books/b.pdf",
		Price:      price,
		Status:     models.StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if public {
		b.Status = models.StatusApproved
		b.IsPublished = true
	}
	id, err := s.mem.InsertBook(context.Background(), b)
	require.NoError(t, err)
	b.ID = id
	return b
}

func (s *server) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Asha", "email": " Asha@Example.com ", "phone": "9876543210", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "asha@example.com", decode(t, rec)["user"].(map[string]any)["email"])

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "asha@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.RoleUser, decode(t, rec)["role"])

	token := cookie(rec, middleware.TokenCookie)
	require.NotNil(t, token)
	assert.True(t, token.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, token.SameSite)
	assert.InDelta(t, time.Hour.Seconds(), float64(token.MaxAge), 5)
	role := cookie(rec, middleware.RoleCookie)
	require.NotNil(t, role)
	assert.False(t, role.HttpOnly)
	assert.Equal(t, models.RoleUser, role.Value)

	rec = s.do(t, http.MethodGet, "/api/auth/me", token.Value, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["isLoggedIn"])
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, false, decode(t, rec)["isLoggedIn"])

	rec = s.do(t, http.MethodPost, "/api/auth/logout", token.Value, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store, no-cache, must-revalidate", rec.Header().Get("Cache-Control"))
	for _, name := range []string{middleware.TokenCookie, middleware.RoleCookie} {
		c := cookie(rec, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

func TestLoginErrors(t *testing.T) {
	s := newServer(t)
	u, _ := s.seedUser(t, "blocked@example.com", models.RoleUser)
	_, err := s.mem.UpdateUser(context.Background(), u.ID, map[string]any{"isBlocked": true})
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "blocked@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ACCOUNT_BLOCKED", decode(t, rec)["code"])

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode(t, rec)["error"])
	assert.Nil(t, cookie(rec, middleware.TokenCookie))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", decode(t, rec)["error"])
}

func TestRoleGating(t *testing.T) {
	s := newServer(t)
	_, admin := s.seedUser(t, "admin@example.com", models.RoleAdmin)
	_, author := s.seedUser(t, "author@example.com", models.RoleAuthor)
	_, user := s.seedUser(t, "user@example.com", models.RoleUser)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"admin anonymous", http.MethodGet, "/api/admin/users", "", http.StatusUnauthorized},
		{"admin as user", http.MethodGet, "/api/admin/users", user, http.StatusForbidden},
		{"admin as author", http.MethodGet, "/api/admin/stats", author, http.StatusForbidden},
		{"admin as admin", http.MethodGet, "/api/admin/users", admin, http.StatusOK},
		{"author as admin", http.MethodGet, "/api/author/books", admin, http.StatusForbidden},
		{"author as author", http.MethodGet, "/api/author/stats", author, http.StatusOK},
		{"author request anonymous", http.MethodPost, "/api/author/request", "", http.StatusUnauthorized},
		{"author request as user", http.MethodPost, "/api/author/request", user, http.StatusOK},
		{"public listing", http.MethodGet, "/api/books", "", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestAdminBookUpdateRejectsUnknownFields(t *testing.T) {
	s := newServer(t)
	_, admin := s.seedUser(t, "admin@example.com", models.RoleAdmin)
	author, _ := s.seedUser(t, "author@example.com", models.RoleAuthor)
	book := s.seedBook(t, author, 0, false)

	rec := s.do(t, http.MethodPatch, "/api/admin/books/"+book.ID.Hex(), admin, map[string]any{"title": "New", "status": "approved"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Equal(t, "Unknown field: status", body["error"])

	rec = s.do(t, http.MethodPatch, "/api/admin/books/"+book.ID.Hex(), admin, map[string]any{"title": "New"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "New", decode(t, rec)["book"].(map[string]any)["title"])

	rec = s.do(t, http.MethodPatch, "/api/admin/books/not-an-id", admin, map[string]any{"title": "New"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid book id", decode(t, rec)["error"])
}

func TestModerationEndpoints(t *testing.T) {
	s := newServer(t)
	_, admin := s.seedUser(t, "admin@example.com", models.RoleAdmin)
	author, _ := s.seedUser(t, "author@example.com", models.RoleAuthor)
	book := s.seedBook(t, author, 0, false)

	rec := s.do(t, http.MethodPost, "/api/admin/books/approve", admin, map[string]string{"bookId": book.ID.Hex()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode(t, rec)["book"].(map[string]any)
	assert.Equal(t, models.StatusApproved, got["status"])
	assert.Equal(t, true, got["isPublished"])

	rec = s.do(t, http.MethodPost, "/api/admin/books/feature", admin, map[string]any{"bookId": book.ID.Hex(), "featuredOrder": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "isFeatured is required", decode(t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/api/admin/books/feature", admin, map[string]any{"bookId": book.ID.Hex(), "isFeatured": true, "featuredOrder": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Book featured", body["message"])
	got = body["book"].(map[string]any)
	assert.Equal(t, true, got["isFeatured"])
	assert.EqualValues(t, 3, got["featuredOrder"])

	rec = s.do(t, http.MethodGet, "/api/admin/books/approved", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["books"], 1)

	rec = s.do(t, http.MethodGet, "/api/book/featured", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["books"], 1)

	rec = s.do(t, http.MethodPost, "/api/admin/books/feature", admin, map[string]any{"bookId": book.ID.Hex(), "isFeatured": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, "Book removed from featured", body["message"])
	got = body["book"].(map[string]any)
	assert.Equal(t, false, got["isFeatured"])
	assert.EqualValues(t, 0, got["featuredOrder"])

	rec = s.do(t, http.MethodPost, "/api/admin/books/reject", admin, map[string]string{"bookId": book.ID.Hex()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Rejected by admin", decode(t, rec)["book"].(map[string]any)["rejectionReason"])

	rec = s.do(t, http.MethodPost, "/api/admin/books/delete", admin, map[string]string{"bookId": book.ID.Hex()})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []string{"covers/c.jpg", "books/b.pdf"}, s.blobs.DeletedKeys())

	rec = s.do(t, http.MethodPost, "/api/admin/books/delete", admin, map[string]string{"bookId": book.ID.Hex()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownload(t *testing.T) {
	s := newServer(t)
	author, _ := s.seedUser(t, "author@example.com", models.RoleAuthor)
	free := s.seedBook(t, author, 0, true)
	paid := s.seedBook(t, author, 199, true)
	pending := s.seedBook(t, author, 0, false)

	rec := s.do(t, http.MethodGet, "/api/book/download/"+free.ID.Hex(), "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, free.BookURL, rec.Header().Get("Location"))

	rec = s.do(t, http.MethodGet, "/api/book/download/"+paid.ID.Hex(), "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/book/download/"+pending.ID.Hex(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/book/"+paid.ID.Hex(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["book"].(map[string]any)["bookUrl"], "paid file location is hidden")
}

func TestSubmitAcceptsPDFURLAlias(t *testing.T) {
	s := newServer(t)
	_, author := s.seedUser(t, "author@example.com", models.RoleAuthor)

	rec := s.do(t, http.MethodPost, "/api/author/books", author, map[string]any{
		"title":      "Monsoon Letters",
		"category":   "Poetry",
		"coverImage": servicetest.BaseURL + "/covers/m.jpg",
		"pdfUrl":     servicetest.BaseURL + "/books/m.pdf",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Book submitted for approval", body["message"])
	book := body["book"].(map[string]any)
	assert.Equal(t, "monsoon-letters", book["slug"])
	assert.Equal(t, models.StatusPending, book["status"])

	rec = s.do(t, http.MethodGet, "/api/author/books", author, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["books"], 1)
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestUpload(t *testing.T) {
	upload := func(s *server, token, filename string, data []byte) *httptest.ResponseRecorder {
		body, ct := multipartBody(t, filename, data)
		req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
		req.Header.Set("Content-Type", ct)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: token})
		}
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	s := newServer(t)
	_, author := s.seedUser(t, "author@example.com", models.RoleAuthor)
	_, user := s.seedUser(t, "user@example.com", models.RoleUser)

	rec := upload(s, author, "cover.png", pngHeader)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Regexp(t, `^covers/[0-9a-f-]{36}\.png$`, body["key"])
	assert.Equal(t, servicetest.BaseURL+"/"+body["key"].(string), body["url"])

	rec = upload(s, author, "manuscript.pdf", []byte("%PDF-1.7\n"))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Regexp(t, `^books/.*\.pdf$`, decode(t, rec)["key"])

	rec = upload(s, author, "notes.png", []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "content is sniffed, not trusted from the name")

	rec = upload(s, author, "big.pdf", append([]byte("%PDF-1.7\n"), make([]byte, 2<<20)...))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	assert.Equal(t, http.StatusForbidden, upload(s, user, "cover.png", pngHeader).Code)
	assert.Equal(t, http.StatusUnauthorized, upload(s, "", "cover.png", pngHeader).Code)

	disabled := newServer(t, withoutBlobs)
	_, author = disabled.seedUser(t, "author@example.com", models.RoleAuthor)
	rec = upload(disabled, author, "cover.png", pngHeader)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decode(t, rec)["code"])
}

func TestProfileImageUploadURL(t *testing.T) {
	s := newServer(t)
	_, author := s.seedUser(t, "author@example.com", models.RoleAuthor)

	rec := s.do(t, http.MethodGet, "/api/author/profile-image/upload-url", author, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Regexp(t, `^profile-images/[0-9a-f-]{36}\.jpg$`, body["key"])
	assert.EqualValues(t, 60, body["expiresIn"])
	assert.NotEmpty(t, body["uploadUrl"])

	rec = s.do(t, http.MethodPatch, "/api/author/profile-image", author, map[string]string{"imageUrl": body["publicUrl"].(string)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, body["publicUrl"], decode(t, rec)["user"].(map[string]any)["profileImage"])
}

func TestUserAdministration(t *testing.T) {
	s := newServer(t)
	admin, adminToken := s.seedUser(t, "admin@example.com", models.RoleAdmin)
	target, _ := s.seedUser(t, "user@example.com", models.RoleUser)

	rec := s.do(t, http.MethodPatch, "/api/admin/users/block", adminToken, map[string]any{"userId": target.ID.Hex(), "isBlocked": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["user"].(map[string]any)["isBlocked"])

	rec = s.do(t, http.MethodPatch, "/api/admin/users/block", adminToken, map[string]any{"userId": target.ID.Hex()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/admin/users/role", adminToken, map[string]any{"userId": admin.ID.Hex(), "role": models.RoleUser})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPatch, "/api/admin/users/role", adminToken, map[string]any{"userId": target.ID.Hex(), "role": "owner"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/admin/users/delete?id="+target.ID.Hex(), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodDelete, "/api/admin/users/delete", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User id is required", decode(t, rec)["error"])
}

func TestOversizedJSONBody(t *testing.T) {
	s := newServer(t)
	_, admin := s.seedUser(t, "admin@example.com", models.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/contact", "", map[string]string{
		"name":    "Asha",
		"email":   "asha@example.com",
		"message": strings.Repeat("a", 2<<20),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Request body too large", decode(t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/api/admin/newsletter", admin, map[string]string{
		"title":   "Big",
		"content": strings.Repeat("b", 2<<20),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, s.mem.EmailLogs())
}

func TestSubscribeAndContact(t *testing.T) {
	s := newServer(t)
	_, admin := s.seedUser(t, "admin@example.com", models.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/subscribe", "", map[string]string{"email": "Reader@Example.com"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/subscribe", "", map[string]string{"email": "reader@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "You are already subscribed", decode(t, rec)["message"])

	rec = s.do(t, http.MethodGet, "/api/unsubscribe?token=unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/newsletter", admin, map[string]string{"title": "Hello", "content": "News"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode(t, rec)["queued"])

	rec = s.do(t, http.MethodPost, "/api/contact", "", map[string]string{"name": "Ravi", "email": "ravi@example.com", "message": "Hi"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/admin/contact-us", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	contacts := decode(t, rec)["contacts"].([]any)
	require.Len(t, contacts, 1)
	id := contacts[0].(map[string]any)["id"].(string)

	rec = s.do(t, http.MethodPost, "/api/admin/contact-us", admin, map[string]string{"id": id, "reply": "Thanks"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.ContactReplied, decode(t, rec)["contact"].(map[string]any)["status"])

	s.deps.Notify.Wait()
	rec = s.do(t, http.MethodGet, "/api/admin/email-logs?limit=2", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["logs"], 2)

	rec = s.do(t, http.MethodDelete, "/api/admin/contact-us?id="+id, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPageGateAndOps(t *testing.T) {
	s := newServer(t)
	_, admin := s.seedUser(t, "admin@example.com", models.RoleAdmin)

	rec := s.do(t, http.MethodGet, "/admin/books", "", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = s.do(t, http.MethodGet, "/login", admin, nil)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = s.do(t, http.MethodGet, "/admin", admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `danaliph_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestHealthReportsDatabaseFailure(t *testing.T) {
	s := newServer(t, func(d *handlers.Deps) {
		d.Ping = func(context.Context) error { return errors.New("no reachable servers") }
	})
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "reachable")
}

func TestAuthEndpointsAreRateLimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := newServer(t, func(d *handlers.Deps) {
		d.Limiter = middleware.NewRateLimiter(ctx, 0.001, 1)
	})
	creds := map[string]string{"email": "x@example.com", "password": "wrong-pass"}

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/auth/login", "", creds).Code)
	rec := s.do(t, http.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/books", "", nil).Code, "catalog reads are not limited")
}
