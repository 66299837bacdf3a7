package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ephemera/internal/domain/entity"
	"ephemera/internal/domain/model"
	dbRepository "ephemera/internal/domain/repository/database"
)

// Server error codes after which a change stream cannot be resumed.
const (
	codeInvalidResumeToken      = 260
	codeChangeStreamFatalError  = 280
	codeChangeStreamHistoryLost = 286
)

// DeletionStream watches delete events on the content collection. Deletions
// by the TTL monitor and by the application look the same here.
type DeletionStream struct {
	db *Database
}

func NewDeletionStream(db *Database) *DeletionStream {
	return &DeletionStream{db: db}
}

func (s *DeletionStream) Subscribe(ctx context.Context, resumeToken []byte) (dbRepository.DeletionCursor, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "delete"}}}},
	}

	opts := options.ChangeStream().SetFullDocumentBeforeChange(options.WhenAvailable)
	if len(resumeToken) > 0 {
		opts.SetResumeAfter(bson.Raw(resumeToken))
	}

	cs, err := s.db.collection(ContentCollection).Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, translateStreamError(err)
	}

	return &deletionCursor{cs: cs}, nil
}

type deletionChange struct {
	DocumentKey struct {
		ID bson.RawValue `bson:"_id"`
	} `bson:"documentKey"`
	FullDocumentBeforeChange *model.Content     `bson:"fullDocumentBeforeChange,omitempty"`
	ClusterTime              primitive.Timestamp `bson:"clusterTime"`
	WallTime                 *time.Time          `bson:"wallTime,omitempty"`
}

func (c *deletionChange) event() entity.DeletionEvent {
	ev := entity.DeletionEvent{
		RecordID:  documentID(c.DocumentKey.ID),
		DeletedAt: time.Unix(int64(c.ClusterTime.T), 0).UTC(),
	}
	if c.WallTime != nil {
		ev.DeletedAt = c.WallTime.UTC()
	}

	if pre := c.FullDocumentBeforeChange; pre != nil {
		ev.HasPreImage = true
		ev.OwnerID = pre.OwnerID
		ev.Media = pre.Media
	}

	return ev
}

func documentID(v bson.RawValue) string {
	if s, ok := v.StringValueOK(); ok {
		return s
	}
	if oid, ok := v.ObjectIDOK(); ok {
		return oid.Hex()
	}

	return v.String()
}

type deletionCursor struct {
	cs      *mongo.ChangeStream
	current entity.DeletionEvent
	err     error
}

func (c *deletionCursor) Next(ctx context.Context) bool {
	if c.err != nil || !c.cs.Next(ctx) {
		return false
	}

	var change deletionChange
	if err := c.cs.Decode(&change); err != nil {
		c.err = fmt.Errorf("decode change event: %w", err)

		return false
	}

	c.current = change.event()

	return true
}

func (c *deletionCursor) Event() entity.DeletionEvent {
	return c.current
}

func (c *deletionCursor) ResumeToken() []byte {
	return c.cs.ResumeToken()
}

func (c *deletionCursor) Err() error {
	if c.err != nil {
		return c.err
	}

	return translateStreamError(c.cs.Err())
}

func (c *deletionCursor) Close(ctx context.Context) error {
	return c.cs.Close(ctx)
}

func translateStreamError(err error) error {
	if err == nil {
		return nil
	}

	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorCode(codeChangeStreamHistoryLost) ||
		se.HasErrorCode(codeChangeStreamFatalError) ||
		se.HasErrorCode(codeInvalidResumeToken)) {
		return fmt.Errorf("%w: %w", dbRepository.ErrResumePointLost, err)
	}

	return err
}
