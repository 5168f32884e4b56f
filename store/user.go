package store

import (
	"context"
	"errors"
	"time"

	"github.com/MohitSaini10/dan-aliph/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserFilter selects users for admin listings.
type UserFilter struct {
	ExcludeAdmins   bool
	AuthorRequested bool
}

// CountUsers counts users with the given role, or all users when role is empty.
func (db *DB) CountUsers(ctx context.Context, role string) (int64, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	return db.Users().CountDocuments(ctx, filter)
}

// UserByEmail returns nil, nil when no user has that email.
func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	res, err := db.Users().InsertOne(ctx, user)
	if err != nil {
		return primitive.NilObjectID, mapWriteErr(err)
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// UserByID returns nil, nil when the id is unknown.
func (db *DB) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns users newest first.
func (db *DB) ListUsers(ctx context.Context, f UserFilter) ([]models.User, error) {
	filter := bson.M{}
	if f.ExcludeAdmins {
		filter["role"] = bson.M{"$ne": models.RoleAdmin}
	}
	if f.AuthorRequested {
		filter["authorRequest"] = true
	}
	cur, err := db.Users().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser applies set and returns the updated user, or nil when the id
// is unknown.
func (db *DB) UpdateUser(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	var u models.User
	err := db.Users().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": withUpdatedAt(set, time.Now().UTC())},
		after(),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return &u, nil
}

// DeleteUser reports whether a user was removed.
func (db *DB) DeleteUser(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := db.Users().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (db *DB) SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"resetPasswordToken":   tokenHash,
		"resetPasswordExpires": expires,
		"updatedAt":            time.Now().UTC(),
	}})
	return err
}

// ConsumeResetToken sets a new password hash for the user holding an
// unexpired token and clears the token in the same write, so a token can
// be used once. It reports whether a user matched.
func (db *DB) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (bool, error) {
	res := db.Users().FindOneAndUpdate(ctx,
		bson.M{
			"resetPasswordToken":   tokenHash,
			"resetPasswordExpires": bson.M{"$gt": now},
		},
		bson.M{
			"$set":   bson.M{"password": passwordHash, "updatedAt": now},
			"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpires": ""},
		},
	)
	if errors.Is(res.Err(), mongo.ErrNoDocuments) {
		return false, nil
	}
	if res.Err() != nil {
		return false, res.Err()
	}
	return true, nil
}
