// Package mongo stores ledger documents in a MongoDB collection keyed by
// account.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"finanzas/internal/core"
)

const defaultCollection = "ledger_documents"

type document struct {
	Account   string       `bson:"_id"`
	Data      core.AppData `bson:"data"`
	UpdatedAt time.Time    `bson:"updatedAt"`
}

type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect dials uri and pings the primary before returning.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	if collection == "" {
		collection = defaultCollection
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Load(ctx context.Context, account string) (core.AppData, bool, error) {
	var doc document
	err := s.collection.FindOne(ctx, bson.M{"_id": account}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.AppData{}, false, nil
	}
	if err != nil {
		return core.AppData{}, false, fmt.Errorf("find document %s: %w", account, err)
	}
	return doc.Data, true, nil
}

func (s *Store) Save(ctx context.Context, account string, data core.AppData) error {
	doc := document{Account: account, Data: data, UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": account}, doc, opts); err != nil {
		return fmt.Errorf("replace document %s: %w", account, err)
	}
	return nil
}

func (s *Store) Accounts(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var out []string
	for cursor.Next(ctx) {
		var row struct {
			Account string `bson:"_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		out = append(out, row.Account)
	}
	return out, cursor.Err()
}
