package store

import (
	"context"

	"github.com/MohitSaini10/dan-aliph/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertEmailLog records a notification delivery attempt.
func (db *DB) InsertEmailLog(ctx context.Context, log *models.EmailLog) error {
	_, err := db.EmailLogs().InsertOne(ctx, log)
	return err
}

// RecentEmailLogs returns the latest delivery attempts, newest first.
func (db *DB) RecentEmailLogs(ctx context.Context, limit int64) ([]models.EmailLog, error) {
	cur, err := db.EmailLogs().Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "sentAt", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	logs := []models.EmailLog{}
	if err := cur.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
