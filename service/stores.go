package service

import (
	"context"
	"io"
	"time"

	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The services depend on these narrow views of *store.DB so they can be
// exercised against in-memory doubles.

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ListUsers(ctx context.Context, f store.UserFilter) ([]models.User, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error)
	DeleteUser(ctx context.Context, id primitive.ObjectID) (bool, error)
	CountUsers(ctx context.Context, role string) (int64, error)
	SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (bool, error)
}

type BookStore interface {
	InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	ListBooks(ctx context.Context, f models.BookFilter, skip, limit int64) ([]models.Book, int64, error)
	CountBooks(ctx context.Context, f models.BookFilter) (int64, error)
	UpdateBook(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Book, error)
	DeleteBook(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	ListAuthors(ctx context.Context) ([]models.AuthorSummary, error)
}

type SubscriberStore interface {
	SubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	InsertSubscriber(ctx context.Context, s *models.Subscriber) (primitive.ObjectID, error)
	SetSubscriberActive(ctx context.Context, id primitive.ObjectID, active bool) error
	DeactivateByToken(ctx context.Context, token string) (bool, error)
	ListSubscribers(ctx context.Context, activeOnly bool) ([]models.Subscriber, error)
}

type ContactStore interface {
	InsertContact(ctx context.Context, c *models.Contact) (primitive.ObjectID, error)
	ContactByID(ctx context.Context, id primitive.ObjectID) (*models.Contact, error)
	ListContacts(ctx context.Context) ([]models.Contact, error)
	UpdateContact(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Contact, error)
	DeleteContact(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type EmailLogStore interface {
	InsertEmailLog(ctx context.Context, log *models.EmailLog) error
	RecentEmailLogs(ctx context.Context, limit int64) ([]models.EmailLog, error)
}

// BlobStore holds uploaded covers, manuscripts and profile images.
type BlobStore interface {
	Upload(ctx context.Context, prefix, filename string, body io.Reader, contentType string) (key string, err error)
	Delete(ctx context.Context, key string) error
	PresignedPutURL(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	PublicURL(key string) string
	KeyFromURL(rawURL string) string
}

var (
	_ UserStore       = (*store.DB)(nil)
	_ BookStore       = (*store.DB)(nil)
	_ SubscriberStore = (*store.DB)(nil)
	_ ContactStore    = (*store.DB)(nil)
	_ EmailLogStore   = (*store.DB)(nil)
)
