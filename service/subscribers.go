package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/store"
	"github.com/MohitSaini10/dan-aliph/utils"
	"github.com/MohitSaini10/dan-aliph/validate"
)

// Subscribe outcomes.
const (
	Subscribed        = "subscribed"
	Resubscribed      = "resubscribed"
	AlreadySubscribed = "already_subscribed"
)

// SubscriberService manages the newsletter list.
type SubscriberService struct {
	subs    SubscriberStore
	notify  *Dispatcher
	siteURL string
	log     *slog.Logger
	now     func() time.Time
}

func NewSubscriberService(subs SubscriberStore, notify *Dispatcher, siteURL string, log *slog.Logger) *SubscriberService {
	return &SubscriberService{subs: subs, notify: notify, siteURL: siteURL, log: log, now: time.Now}
}

// Subscribe is idempotent. An inactive subscriber is reactivated and keeps
// the original unsubscribe token.
func (s *SubscriberService) Subscribe(ctx context.Context, email, source string) (string, error) {
	email = normalizeEmail(email)
	if err := validate.New().Required("email", email).Email("email", email).Err(); err != nil {
		return "", err
	}
	existing, err := s.subs.SubscriberByEmail(ctx, email)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if existing != nil {
		if existing.IsActive {
			return AlreadySubscribed, nil
		}
		if err := s.subs.SetSubscriberActive(ctx, existing.ID, true); err != nil {
			return "", apperr.Internal(err)
		}
		return Resubscribed, nil
	}

	token, err := utils.RandomToken(32)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if source = strings.TrimSpace(source); source == "" {
		source = "footer"
	}
	now := s.now().UTC()
	_, err = s.subs.InsertSubscriber(ctx, &models.Subscriber{
		Email:            email,
		Source:           source,
		IsActive:         true,
		UnsubscribeToken: token,
		SubscribedAt:     now,
		UpdatedAt:        now,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return AlreadySubscribed, nil
	}
	if err != nil {
		return "", apperr.Internal(err)
	}
	return Subscribed, nil
}

func (s *SubscriberService) Unsubscribe(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.Validation("Invalid unsubscribe link")
	}
	ok, err := s.subs.DeactivateByToken(ctx, token)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.NotFound("Subscriber")
	}
	return nil
}

func (s *SubscriberService) List(ctx context.Context) ([]models.Subscriber, error) {
	subs, err := s.subs.ListSubscribers(ctx, false)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return subs, nil
}

// SendNewsletter queues one email per active subscriber and returns how
// many were queued. Delivery happens in the background.
func (s *SubscriberService) SendNewsletter(ctx context.Context, title, content string) (int, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if err := validate.New().Required("title", title).Required("content", content).Err(); err != nil {
		return 0, err
	}
	subs, err := s.subs.ListSubscribers(ctx, true)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	msgs := make([]Message, 0, len(subs))
	for _, sub := range subs {
		msgs = append(msgs, newsletterEmail(s.siteURL, title, content, sub))
	}
	s.notify.Dispatch(models.EventNewsletter, "", msgs...)
	return len(msgs), nil
}
