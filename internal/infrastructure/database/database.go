package database

import (
	"context"
	"fmt"
	"time"

	"github.com/dezh-tech/immortal/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ephemera/internal/domain/model"
)

const (
	ContentCollection    = "content"
	OrphanCollection     = "orphans"
	CheckpointCollection = "checkpoints"
	UserCollection       = "users"
)

type Database struct {
	DBName       string
	QueryTimeout time.Duration
	Client       *mongo.Client
}

func Connect(cfg Config) (*Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ConnectionTimeout)*time.Millisecond)
	defer cancel()

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(cfg.URI).
		SetServerAPIOptions(serverAPI).
		SetConnectTimeout(time.Duration(cfg.ConnectionTimeout) * time.Millisecond).
		SetBSONOptions(&options.BSONOptions{
			UseJSONStructTags: true,
			NilSliceAsEmpty:   true,
		})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	qCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.QueryTimeout)*time.Millisecond)
	defer cancel()

	if err := client.Ping(qCtx, nil); err != nil {
		return nil, err
	}

	db := &Database{
		Client:       client,
		DBName:       cfg.DBName,
		QueryTimeout: time.Duration(cfg.QueryTimeout) * time.Millisecond,
	}

	if err := initContentCollection(db); err != nil {
		return nil, fmt.Errorf("init %s collection: %w", ContentCollection, err)
	}

	if err := initOrphanCollection(db); err != nil {
		return nil, fmt.Errorf("init %s collection: %w", OrphanCollection, err)
	}

	return db, nil
}

func (db *Database) collection(name string) *mongo.Collection {
	return db.Client.Database(db.DBName).Collection(name)
}

func contentValidator() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": []string{"_id", "owner_id", "media", "visibility", "created_at"},
			"properties": bson.M{
				"_id":      bson.M{"bsonType": "string"},
				"owner_id": bson.M{"bsonType": "string", "minLength": 1},
				"media": bson.M{
					"bsonType": "array",
					"minItems": 1,
					"items": bson.M{
						"bsonType": "object",
						"required": []string{"blob_id", "url"},
						"properties": bson.M{
							"blob_id": bson.M{"bsonType": "string", "minLength": 1},
							"url":     bson.M{"bsonType": "string"},
						},
					},
				},
				"description": bson.M{"bsonType": "string"},
				"visibility": bson.M{
					"enum": []string{
						string(model.VisibilityPublic),
						string(model.VisibilityRestricted),
						string(model.VisibilityPrivate),
					},
				},
				"viewers": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": []string{"user_id", "viewed_at"},
						"properties": bson.M{
							"user_id":   bson.M{"bsonType": "string"},
							"viewed_at": bson.M{"bsonType": "date"},
						},
					},
				},
				"created_at": bson.M{"bsonType": "date"},
				"expires_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func initContentCollection(db *Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), db.QueryTimeout)
	defer cancel()

	mdb := db.Client.Database(db.DBName)

	collections, err := mdb.ListCollectionNames(ctx, bson.M{"name": ContentCollection})
	if err != nil {
		return err
	}

	if len(collections) == 0 {
		collOpts := options.CreateCollection().
			SetValidator(contentValidator()).
			SetChangeStreamPreAndPostImages(bson.M{"enabled": true})

		if err := mdb.CreateCollection(ctx, ContentCollection, collOpts); err != nil {
			return err
		}
	} else {
		// Collections created before pre-images were required still need them.
		err := mdb.RunCommand(ctx, bson.D{
			{Key: "collMod", Value: ContentCollection},
			{Key: "changeStreamPreAndPostImages", Value: bson.M{"enabled": true}},
			{Key: "validator", Value: contentValidator()},
		}).Err()
		if err != nil {
			return err
		}
	}

	_, err = mdb.Collection(ContentCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "media.blob_id", Value: 1}}},
	})

	return err
}

func initOrphanCollection(db *Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), db.QueryTimeout)
	defer cancel()

	_, err := db.collection(OrphanCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "resolved", Value: 1}, {Key: "recorded_at", Value: 1}},
		},
		{
			// At most one open entry per record and blob.
			Keys: bson.D{{Key: "record_id", Value: 1}, {Key: "blob_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"resolved": false}),
		},
	})

	return err
}

func (db *Database) Stop() error {
	if err := db.Client.Disconnect(context.Background()); err != nil {
		logger.Error("failed to disconnect from mongo", "err", err)

		return err
	}

	return nil
}
