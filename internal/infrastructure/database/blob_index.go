package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BlobIndex struct {
	db *Database
}

func NewBlobIndex(db *Database) *BlobIndex {
	return &BlobIndex{db: db}
}

// inUsePipeline yields one document per distinct blob id. Results come back
// through a cursor, so the set is not bound by the 16MB reply limit.
var inUsePipeline = mongo.Pipeline{
	{{Key: "$project", Value: bson.D{{Key: "_id", Value: 0}, {Key: "media.blob_id", Value: 1}}}},
	{{Key: "$unwind", Value: "$media"}},
	{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$media.blob_id"}}}},
}

// BlobIDsInUse includes records that expired but were not yet removed by the
// TTL monitor; their blobs are released through the change stream instead.
func (i *BlobIndex) BlobIDsInUse(ctx context.Context) (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, i.db.QueryTimeout)
	defer cancel()

	opts := options.Aggregate().SetAllowDiskUse(true).SetBatchSize(1000)
	cursor, err := i.db.collection(ContentCollection).Aggregate(ctx, inUsePipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("aggregate blob ids: %w", err)
	}
	defer cursor.Close(ctx)

	inUse := make(map[string]struct{})
	for cursor.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode blob id: %w", err)
		}
		if row.ID != "" {
			inUse[row.ID] = struct{}{}
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate blob ids: %w", err)
	}

	return inUse, nil
}
