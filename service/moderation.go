package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ModerationService applies admin transitions to books and author requests.
type ModerationService struct {
	books   BookStore
	subs    SubscriberStore
	users   *UserService
	notify  *Dispatcher
	cache   FeaturedCache
	metrics *Metrics
	siteURL string
	log     *slog.Logger
	now     func() time.Time
}

func NewModerationService(books BookStore, subs SubscriberStore, users *UserService, notify *Dispatcher, cache FeaturedCache, metrics *Metrics, siteURL string, log *slog.Logger) *ModerationService {
	if cache == nil {
		cache = NopFeaturedCache{}
	}
	return &ModerationService{
		books:   books,
		subs:    subs,
		users:   users,
		notify:  notify,
		cache:   cache,
		metrics: metrics,
		siteURL: siteURL,
		log:     log,
		now:     time.Now,
	}
}

// Approve publishes a book and then tells active subscribers about it in
// the background.
func (s *ModerationService) Approve(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	now := s.now().UTC()
	book, err := s.transition(ctx, id, "approve", bson.M{
		"status":      models.StatusApproved,
		"isPublished": true,
		"approvedAt":  now,
		"publishedAt": now,
	})
	if err != nil {
		return nil, err
	}
	published := *book
	s.notify.DispatchFunc(models.EventBookPublished, id.Hex(), func(ctx context.Context) ([]Message, error) {
		subs, err := s.subs.ListSubscribers(ctx, true)
		if err != nil {
			return nil, err
		}
		msgs := make([]Message, 0, len(subs))
		for _, sub := range subs {
			msgs = append(msgs, bookPublishedEmail(s.siteURL, &published, sub))
		}
		return msgs, nil
	})
	return book, nil
}

// Reject unpublishes a book and removes it from the featured shelf.
func (s *ModerationService) Reject(ctx context.Context, id primitive.ObjectID, reason string) (*models.Book, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = models.DefaultRejectionReason
	}
	return s.transition(ctx, id, "reject", bson.M{
		"status":          models.StatusRejected,
		"isPublished":     false,
		"publishedAt":     nil,
		"approvedAt":      nil,
		"isFeatured":      false,
		"featuredOrder":   0,
		"rejectionReason": reason,
	})
}

// SetFeatured toggles the featured flag. Featuring respects the cap unless
// the book is already featured; featuredOrder changes only when order is
// given. Unfeaturing always resets the order to 0.
func (s *ModerationService) SetFeatured(ctx context.Context, id primitive.ObjectID, featured bool, order *int) (*models.Book, error) {
	if !featured {
		return s.transition(ctx, id, "unfeature", bson.M{"isFeatured": false, "featuredOrder": 0})
	}
	if order != nil && *order < 0 {
		return nil, apperr.Validation("FeaturedOrder cannot be negative")
	}
	book, err := s.books.BookByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if book == nil {
		return nil, apperr.NotFound("Book")
	}
	if err := checkFeatureCap(ctx, s.books, book); err != nil {
		return nil, err
	}
	set := bson.M{"isFeatured": true}
	if order != nil {
		set["featuredOrder"] = *order
	}
	return s.transition(ctx, id, "feature", set)
}

func (s *ModerationService) ApproveAuthorRequest(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.users.ApproveAuthor(ctx, userID)
}

func (s *ModerationService) RejectAuthorRequest(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.users.RejectAuthorRequest(ctx, userID)
}

func (s *ModerationService) transition(ctx context.Context, id primitive.ObjectID, name string, set bson.M) (*models.Book, error) {
	book, err := s.books.UpdateBook(ctx, id, set)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if book == nil {
		return nil, apperr.NotFound("Book")
	}
	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(name).Inc()
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("featured cache invalidate", "error", err)
	}
	s.log.Info("book transition", "book", id.Hex(), "transition", name, "status", book.Status)
	return book, nil
}
