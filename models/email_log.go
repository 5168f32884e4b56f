package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification events.
const (
	EventBookPublished   = "book_published"
	EventPasswordReset   = "password_reset"
	EventContactReceived = "contact_received"
	EventContactReply    = "contact_reply"
	EventNewsletter      = "newsletter"
)

// EmailLog records one notification delivery attempt. Error is empty on success.
type EmailLog struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Event   string             `bson:"event" json:"event"`
	RefID   string             `bson:"refId,omitempty" json:"refId,omitempty"`
	ToEmail string             `bson:"toEmail" json:"toEmail"`
	Subject string             `bson:"subject" json:"subject"`
	Error   string             `bson:"error,omitempty" json:"error,omitempty"`
	SentAt  time.Time          `bson:"sentAt" json:"sentAt"`
}
