package service

import (
	"context"
	"strings"
	"time"

	"github.com/MohitSaini10/dan-aliph/apperr"
	"github.com/MohitSaini10/dan-aliph/models"
	"github.com/MohitSaini10/dan-aliph/validate"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContactService struct {
	contacts   ContactStore
	notify     *Dispatcher
	adminEmail string
	now        func() time.Time
}

func NewContactService(contacts ContactStore, notify *Dispatcher, adminEmail string) *ContactService {
	return &ContactService{contacts: contacts, notify: notify, adminEmail: adminEmail, now: time.Now}
}

type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Submit stores a visitor message and notifies the site admin in the background.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) (*models.Contact, error) {
	c := &models.Contact{
		Name:      strings.TrimSpace(in.Name),
		Email:     normalizeEmail(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Message:   strings.TrimSpace(in.Message),
		Status:    models.ContactNew,
		CreatedAt: s.now().UTC(),
	}
	if err := validate.New().
		Required("name", c.Name).
		Required("email", c.Email).
		Email("email", c.Email).
		Required("phone", c.Phone).
		Required("message", c.Message).
		MaxLen("message", c.Message, 5000).
		Err(); err != nil {
		return nil, err
	}
	id, err := s.contacts.InsertContact(ctx, c)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	c.ID = id
	if s.adminEmail != "" {
		s.notify.Dispatch(models.EventContactReceived, id.Hex(), contactReceivedEmail(s.adminEmail, c))
	}
	return c, nil
}

func (s *ContactService) List(ctx context.Context) ([]models.Contact, error) {
	out, err := s.contacts.ListContacts(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *ContactService) Delete(ctx context.Context, id primitive.ObjectID) error {
	ok, err := s.contacts.DeleteContact(ctx, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.NotFound("Contact")
	}
	return nil
}

// Reply emails the visitor and marks the message replied. The email is the
// operation here, so a send failure is returned.
func (s *ContactService) Reply(ctx context.Context, id primitive.ObjectID, reply string) (*models.Contact, error) {
	reply = strings.TrimSpace(reply)
	if err := validate.New().Required("reply", reply).Err(); err != nil {
		return nil, err
	}
	c, err := s.contacts.ContactByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if c == nil {
		return nil, apperr.NotFound("Contact")
	}
	if err := s.notify.Send(ctx, models.EventContactReply, id.Hex(), contactReplyEmail(c, reply)); err != nil {
		return nil, apperr.ExternalService("Could not send reply email", err)
	}
	now := s.now().UTC()
	updated, err := s.contacts.UpdateContact(ctx, id, bson.M{
		"status":    models.ContactReplied,
		"reply":     reply,
		"repliedAt": now,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if updated == nil {
		return nil, apperr.NotFound("Contact")
	}
	return updated, nil
}
