package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

type ContentRemover struct {
	db *Database
}

func NewContentRemover(db *Database) *ContentRemover {
	return &ContentRemover{db: db}
}

func (r *ContentRemover) RemoveByID(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.db.QueryTimeout)
	defer cancel()

	res, err := r.db.collection(ContentCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete content %s: %w", id, err)
	}

	return res.DeletedCount > 0, nil
}
