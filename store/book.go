package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/MohitSaini10/dan-aliph/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertBook returns ErrDuplicate when the slug is already taken.
func (db *DB) InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error) {
	res, err := db.Books().InsertOne(ctx, book)
	if err != nil {
		return primitive.NilObjectID, mapWriteErr(err)
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) SlugExists(ctx context.Context, slug string) (bool, error) {
	n, err := db.Books().CountDocuments(ctx, bson.M{"slug": slug}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// BookByID returns nil, nil when the id is unknown.
func (db *DB) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ListBooks returns one page of books matching f and the total match count.
// A zero limit returns every match.
func (db *DB) ListBooks(ctx context.Context, f models.BookFilter, skip, limit int64) ([]models.Book, int64, error) {
	filter := bookQuery(f)
	total, err := db.Books().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bookSort(f)).SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := db.Books().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (db *DB) CountBooks(ctx context.Context, f models.BookFilter) (int64, error) {
	return db.Books().CountDocuments(ctx, bookQuery(f))
}

// UpdateBook applies set and returns the updated book, or nil when the id
// is unknown.
func (db *DB) UpdateBook(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": withUpdatedAt(set, time.Now().UTC())},
		after(),
	).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return &book, nil
}

// DeleteBook removes a book and returns the removed record so the caller
// can clean up its blobs. Returns nil, nil when the id is unknown.
func (db *DB) DeleteBook(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ListAuthors groups public books by author and joins the author profile.
func (db *DB) ListAuthors(ctx context.Context) ([]models.AuthorSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.StatusApproved, "isPublished": true}}},
		{{Key: "$group", Value: bson.M{"_id": "$authorId", "bookCount": bson.M{"$sum": 1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "author",
		}}},
		{{Key: "$unwind", Value: "$author"}},
		{{Key: "$project", Value: bson.M{
			"name":         "$author.name",
			"profileImage": bson.M{"$ifNull": bson.A{"$author.profileImage", ""}},
			"bookCount":    1,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "bookCount", Value: -1}, {Key: "name", Value: 1}}}},
	}
	cur, err := db.Books().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	authors := []models.AuthorSummary{}
	if err := cur.All(ctx, &authors); err != nil {
		return nil, err
	}
	return authors, nil
}

func bookQuery(f models.BookFilter) bson.M {
	q := bson.M{}
	if !f.AuthorID.IsZero() {
		q["authorId"] = f.AuthorID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.PublicOnly {
		q["status"] = models.StatusApproved
		q["isPublished"] = true
	}
	if f.Featured {
		q["isFeatured"] = true
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"category": re},
			bson.M{"description": re},
			bson.M{"authorName": re},
		}
	}
	return q
}

func bookSort(f models.BookFilter) bson.D {
	if f.Featured {
		return bson.D{{Key: "featuredOrder", Value: 1}, {Key: "createdAt", Value: -1}}
	}
	return bson.D{{Key: "createdAt", Value: -1}}
}
