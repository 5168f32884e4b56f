package service_test

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/service"
	"github.com/MohitSaini10/dan-aliph/service/servicetest"
	"github.com/MohitSaini10/dan-aliph/store/storetest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const siteURL = "https://danaliph.test"

type harness struct {
	mem        *storetest.Memory
	mail       *servicetest.Notifier
	blobs      *servicetest.BlobStore
	metrics    *service.Metrics
	dispatch   *service.Dispatcher
	sessions   *service.SessionService
	users      *service.UserService
	books      *service.BookService
	moderation *service.ModerationService
	subs       *service.SubscriberService
	contacts   *service.ContactService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		mem:      storetest.NewMemory(),
		mail:     &servicetest.Notifier{},
		blobs:    servicetest.NewBlobStore(),
		metrics:  service.NewMetrics(prometheus.NewRegistry()),
		sessions: service.NewSessionService("test-secret", time.Hour),
	}
	h.dispatch = service.NewDispatcher(h.mail, h.mem, h.metrics, log)
	h.users = service.NewUserService(h.mem, h.mem, h.sessions, h.dispatch, h.metrics, siteURL, log)
	h.books = service.NewBookService(h.mem, h.mem, h.blobs, nil, h.metrics, log)
	h.moderation = service.NewModerationService(h.mem, h.mem, h.users, h.dispatch, nil, h.metrics, siteURL, log)
	h.subs = service.NewSubscriberService(h.mem, h.dispatch, siteURL, log)
	h.contacts = service.NewContactService(h.mem, h.dispatch, "admin@danaliph.test")
	t.Cleanup(h.dispatch.Wait)
	return h
}

// seedUser inserts an account directly with password "secret1".
func (h *harness) seedUser(t *testing.T, email, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Name:         "User " + email,
		Email:        email,
		Phone:        "9876543210",
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	id, err := h.mem.CreateUser(context.Background(), u)
	require.NoError(t, err)
	u.ID = id
	return u
}

type bookOpt func(*models.Book)

func approved(b *models.Book) {
	now := time.Now().UTC()
	b.Status = models.StatusApproved
	b.IsPublished = true
	b.ApprovedAt = &now
	b.PublishedAt = &now
}

func featured(order int) bookOpt {
	return func(b *models.Book) {
		b.IsFeatured = true
		b.FeaturedOrder = order
	}
}

func priced(p float64) bookOpt {
	return func(b *models.Book) { b.Price = p }
}

var seedSeq int

func (h *harness) seedBook(t *testing.T, author *models.User, title string, opts ...bookOpt) *models.Book {
	t.Helper()
	seedSeq++
	b := &models.Book{
		Title:       title,
		Slug:        primitive.NewObjectID().Hex(),
		Category:    "Fiction",
		Language:    "English",
		AuthorID:    author.ID,
		AuthorName:  author.Name,
		AuthorEmail: author.Email,
		CoverImage:  servicetest.BaseURL + "/covers/c.jpg",
		BookURL:     servicetest.BaseURL + "/books/b.pdf",
		Status:      models.StatusPending,
		CreatedAt:   time.Now().UTC().Add(time.Duration(seedSeq) * time.Second),
	}
	for _, o := range opts {
		o(b)
	}
	id, err := h.mem.InsertBook(context.Background(), b)
	require.NoError(t, err)
	b.ID = id
	return b
}

func (h *harness) book(t *testing.T, id primitive.ObjectID) *models.Book {
	t.Helper()
	b, err := h.mem.BookByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

func (h *harness) user(t *testing.T, id primitive.ObjectID) *models.User {
	t.Helper()
	u, err := h.mem.UserByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

var resetTokenRe = regexp.MustCompile(`token=([0-9a-f]+)`)

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae, "expected *apperr.AppError, got %T: %v", err, err)
	require.Equal(t, code, ae.Code, ae.Message)
}
