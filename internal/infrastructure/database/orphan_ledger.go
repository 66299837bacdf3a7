package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ephemera/internal/domain/model"
	dbRepository "ephemera/internal/domain/repository/database"
)

type OrphanLedger struct {
	db *Database
}

func NewOrphanLedger(db *Database) *OrphanLedger {
	return &OrphanLedger{db: db}
}

// Record folds repeated failures for the same record and blob into one
// unresolved entry, so a redelivered event cannot duplicate it.
func (l *OrphanLedger) Record(ctx context.Context, orphan *model.Orphan) error {
	ctx, cancel := context.WithTimeout(ctx, l.db.QueryTimeout)
	defer cancel()

	if orphan.RecordedAt.IsZero() {
		orphan.RecordedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	filter := bson.M{"record_id": orphan.RecordID, "blob_id": orphan.BlobID, "resolved": false}
	update := bson.M{
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID().Hex()},
		"$set":         bson.M{"last_error": orphan.LastError, "recorded_at": orphan.RecordedAt},
		"$inc":         bson.M{"attempts": orphan.Attempts},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored model.Orphan
	err := l.db.collection(OrphanCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	if mongo.IsDuplicateKeyError(err) {
		// A concurrent upsert won the insert; this one now matches it.
		err = l.db.collection(OrphanCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored)
	}
	if err != nil {
		return fmt.Errorf("record orphan %s: %w", orphan.BlobID, err)
	}

	*orphan = stored

	return nil
}

// List returns unresolved orphans, oldest first. A limit <= 0 means no limit.
func (l *OrphanLedger) List(ctx context.Context, limit int64) ([]model.Orphan, error) {
	ctx, cancel := context.WithTimeout(ctx, l.db.QueryTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := l.db.collection(OrphanCollection).Find(ctx, bson.M{"resolved": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}
	defer cursor.Close(ctx)

	orphans := []model.Orphan{}
	if err := cursor.All(ctx, &orphans); err != nil {
		return nil, fmt.Errorf("decode orphans: %w", err)
	}

	return orphans, nil
}

func (l *OrphanLedger) Resolve(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, l.db.QueryTimeout)
	defer cancel()

	res, err := l.db.collection(OrphanCollection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"resolved": true, "resolved_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("resolve orphan %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return dbRepository.ErrNotFound
	}

	return nil
}
