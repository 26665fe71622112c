package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCacheDoc struct {
	Key       string    `bson:"_id"`
	Body      []byte    `bson:"body"`
	CreatedAt time.Time `bson:"created_at"`
}

// MongoCache stores responses in a collection keyed by _id.
type MongoCache struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoCache(ctx context.Context, uri, db, col string) (*MongoCache, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoCache{client: client, coll: client.Database(db).Collection(col)}, nil
}

func (c *MongoCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc mongoCacheDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc.Body, true, nil
}

func (c *MongoCache) Put(ctx context.Context, key string, body []byte) error {
	doc := mongoCacheDoc{Key: key, Body: body, CreatedAt: time.Now()}
	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

func (c *MongoCache) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
