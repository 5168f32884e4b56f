package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles are compared for exact equality; there is no hierarchy.
const (
	RoleUser   = "user"
	RoleAuthor = "author"
	RoleAdmin  = "admin"
)

var ValidRoles = []string{RoleUser, RoleAuthor, RoleAdmin}

func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                 string             `bson:"name" json:"name"`
	Email                string             `bson:"email" json:"email"` // lowercased, trimmed, unique
	Phone                string             `bson:"phone" json:"phone"`
	PasswordHash         string             `bson:"password" json:"-"`
	Role                 string             `bson:"role" json:"role"`
	AuthorRequest        bool               `bson:"authorRequest" json:"authorRequest"`
	IsBlocked            bool               `bson:"isBlocked" json:"isBlocked"`
	ProfileImage         string             `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	ResetPasswordToken   string             `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpires *time.Time         `bson:"resetPasswordExpires,omitempty" json:"-"`
	CreatedAt            time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AuthorSummary is an author with at least one public book.
type AuthorSummary struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	ProfileImage string             `bson:"profileImage" json:"profileImage"`
	BookCount    int64              `bson:"bookCount" json:"bookCount"`
}
