package store

import (
	"context"
	"errors"

	"github.com/MohitSaini10/dan-aliph/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) InsertContact(ctx context.Context, c *models.Contact) (primitive.ObjectID, error) {
	res, err := db.Contacts().InsertOne(ctx, c)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) ContactByID(ctx context.Context, id primitive.ObjectID) (*models.Contact, error) {
	var c models.Contact
	err := db.Contacts().FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) ListContacts(ctx context.Context) ([]models.Contact, error) {
	cur, err := db.Contacts().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Contact{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (db *DB) UpdateContact(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Contact, error) {
	var c models.Contact
	err := db.Contacts().FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, after()).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) DeleteContact(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := db.Contacts().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
