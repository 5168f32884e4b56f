package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Subscriber struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email            string             `bson:"email" json:"email"`
	Source           string             `bson:"source" json:"source"`
	IsActive         bool               `bson:"isActive" json:"isActive"`
	UnsubscribeToken string             `bson:"unsubscribeToken" json:"-"`
	SubscribedAt     time.Time          `bson:"subscribedAt" json:"subscribedAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}
