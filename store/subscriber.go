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

func (db *DB) SubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	var s models.Subscriber
	err := db.Subscribers().FindOne(ctx, bson.M{"email": email}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (db *DB) InsertSubscriber(ctx context.Context, s *models.Subscriber) (primitive.ObjectID, error) {
	res, err := db.Subscribers().InsertOne(ctx, s)
	if err != nil {
		return primitive.NilObjectID, mapWriteErr(err)
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) SetSubscriberActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	_, err := db.Subscribers().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"isActive":  active,
		"updatedAt": time.Now().UTC(),
	}})
	return err
}

// DeactivateByToken reports whether a subscriber holds the token.
func (db *DB) DeactivateByToken(ctx context.Context, token string) (bool, error) {
	res, err := db.Subscribers().UpdateOne(ctx, bson.M{"unsubscribeToken": token}, bson.M{"$set": bson.M{
		"isActive":  false,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// ListSubscribers returns subscribers newest first.
func (db *DB) ListSubscribers(ctx context.Context, activeOnly bool) ([]models.Subscriber, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	cur, err := db.Subscribers().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "subscribedAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	subs := []models.Subscriber{}
	if err := cur.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}
