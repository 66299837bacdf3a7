package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ephemera/internal/domain/model"
	dbRepository "ephemera/internal/domain/repository/database"
)

type ContentRetriever struct {
	db *Database
}

func NewContentRetriever(db *Database) *ContentRetriever {
	return &ContentRetriever{db: db}
}

// notExpired matches records without expires_at or with one still in the
// future; the TTL monitor may lag behind expiry.
func notExpired(now time.Time) bson.A {
	return bson.A{
		bson.M{"expires_at": nil},
		bson.M{"expires_at": bson.M{"$gt": now}},
	}
}

func (r *ContentRetriever) GetByID(ctx context.Context, id string) (*model.Content, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "$or": notExpired(time.Now())}

	var content model.Content
	err := r.db.collection(ContentCollection).FindOne(ctx, filter).Decode(&content)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, dbRepository.ErrNotFound
		}

		return nil, fmt.Errorf("find content %s: %w", id, err)
	}

	return &content, nil
}

func (r *ContentRetriever) GetByOwner(ctx context.Context, ownerID string) ([]model.Content, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout)
	defer cancel()

	filter := bson.M{"owner_id": ownerID, "$or": notExpired(time.Now())}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.db.collection(ContentCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find content of %s: %w", ownerID, err)
	}
	defer cursor.Close(ctx)

	contents := []model.Content{}
	if err = cursor.All(ctx, &contents); err != nil {
		return nil, fmt.Errorf("decode content of %s: %w", ownerID, err)
	}

	return contents, nil
}

type OwnerRetriever struct {
	db *Database
}

func NewOwnerRetriever(db *Database) *OwnerRetriever {
	return &OwnerRetriever{db: db}
}

func (r *OwnerRetriever) Exists(ctx context.Context, ownerID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout)
	defer cancel()

	n, err := r.db.collection(UserCollection).CountDocuments(ctx, bson.M{"_id": ownerID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}

	return n > 0, nil
}
