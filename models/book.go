package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var ValidStatuses = []string{StatusPending, StatusApproved, StatusRejected}

// MaxFeatured caps the featured shelf.
const MaxFeatured = 8

const DefaultRejectionReason = "Rejected by admin"

type BuyLinks struct {
	Amazon   string `bson:"amazon" json:"amazon"`
	Flipkart string `bson:"flipkart" json:"flipkart"`
}

type Book struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title           string             `bson:"title" json:"title"`
	Slug            string             `bson:"slug" json:"slug"`
	Category        string             `bson:"category" json:"category"`
	Language        string             `bson:"language" json:"language"`
	Description     string             `bson:"description" json:"description"`
	AuthorID        primitive.ObjectID `bson:"authorId" json:"authorId"`
	AuthorName      string             `bson:"authorName" json:"authorName"`
	AuthorEmail     string             `bson:"authorEmail" json:"authorEmail"`
	CoverImage      string             `bson:"coverImage" json:"coverImage"`
	BookURL         string             `bson:"bookUrl" json:"bookUrl"`
	Price           float64            `bson:"price" json:"price"`
	Status          string             `bson:"status" json:"status"`
	RejectionReason string             `bson:"rejectionReason" json:"rejectionReason"`
	ApprovedAt      *time.Time         `bson:"approvedAt" json:"approvedAt"`
	IsPublished     bool               `bson:"isPublished" json:"isPublished"`
	PublishedAt     *time.Time         `bson:"publishedAt" json:"publishedAt"`
	IsFeatured      bool               `bson:"isFeatured" json:"isFeatured"`
	FeaturedOrder   int                `bson:"featuredOrder" json:"featuredOrder"`
	BuyLinks        BuyLinks           `bson:"buyLinks" json:"buyLinks"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (b *Book) IsPaid() bool { return b.Price > 0 }

// Public returns the visitor-facing copy of b. The file URL of a paid book
// is never exposed.
func (b *Book) Public() Book {
	out := *b
	out.AuthorEmail = ""
	if out.IsPaid() {
		out.BookURL = ""
	}
	return out
}

// BookPatch holds the fields an administrator may change. Nil means absent.
type BookPatch struct {
	Title         *string   `json:"title"`
	Category      *string   `json:"category"`
	Description   *string   `json:"description"`
	Language      *string   `json:"language"`
	Price         *float64  `json:"price"`
	FeaturedOrder *int      `json:"featuredOrder"`
	IsFeatured    *bool     `json:"isFeatured"`
	BuyLinks      *BuyLinks `json:"buyLinks"`
}

func (p BookPatch) Empty() bool {
	return p.Title == nil && p.Category == nil && p.Description == nil && p.Language == nil &&
		p.Price == nil && p.FeaturedOrder == nil && p.IsFeatured == nil && p.BuyLinks == nil
}

// BookFilter narrows listings. Zero values mean "no constraint".
type BookFilter struct {
	AuthorID   primitive.ObjectID
	Status     string
	PublicOnly bool // approved and published
	Featured   bool // isFeatured, sorted by featuredOrder
	Query      string
}

type AuthorBookStats struct {
	Total    int64  `json:"total"`
	Pending  int64  `json:"pending"`
	Approved int64  `json:"approved"`
	Rejected int64  `json:"rejected"`
	Recent   []Book `json:"recentBooks"`
}

type SiteStats struct {
	TotalUsers   int64 `json:"totalUsers"`
	TotalAuthors int64 `json:"totalAuthors"`
	TotalBooks   int64 `json:"totalBooks"`
}
