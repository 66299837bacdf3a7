package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ephemera/internal/domain/model"
)

type ContentWriter struct {
	db *Database
}

func NewContentWriter(db *Database) *ContentWriter {
	return &ContentWriter{db: db}
}

func (w *ContentWriter) Write(ctx context.Context, content *model.Content) error {
	ctx, cancel := context.WithTimeout(ctx, w.db.QueryTimeout)
	defer cancel()

	if content.ID == "" {
		content.ID = primitive.NewObjectID().Hex()
	}
	content.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err := w.db.collection(ContentCollection).InsertOne(ctx, content)

	return err
}
