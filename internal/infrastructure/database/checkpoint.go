package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CheckpointStore keeps one resume token per stream name.
type CheckpointStore struct {
	db   *Database
	name string
}

type checkpoint struct {
	ID          string    `bson:"_id"`
	ResumeToken bson.Raw  `bson:"resume_token"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func NewCheckpointStore(db *Database, name string) *CheckpointStore {
	return &CheckpointStore{db: db, name: name}
}

func (s *CheckpointStore) Load(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.db.QueryTimeout)
	defer cancel()

	var cp checkpoint
	err := s.db.collection(CheckpointCollection).FindOne(ctx, bson.M{"_id": s.name}).Decode(&cp)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}

		return nil, fmt.Errorf("load checkpoint %s: %w", s.name, err)
	}

	return cp.ResumeToken, nil
}

func (s *CheckpointStore) Save(ctx context.Context, token []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.db.QueryTimeout)
	defer cancel()

	_, err := s.db.collection(CheckpointCollection).UpdateOne(ctx,
		bson.M{"_id": s.name},
		bson.M{"$set": bson.M{"resume_token": bson.Raw(token), "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", s.name, err)
	}

	return nil
}

func (s *CheckpointStore) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.db.QueryTimeout)
	defer cancel()

	if _, err := s.db.collection(CheckpointCollection).DeleteOne(ctx, bson.M{"_id": s.name}); err != nil {
		return fmt.Errorf("clear checkpoint %s: %w", s.name, err)
	}

	return nil
}
