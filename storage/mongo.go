package storage

import (
	"Painter/core"
	"Painter/lib/sl"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "sessions"

type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *slog.Logger
}

func NewMongoStorage(uri, database string, log *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	collection := client.Database(database).Collection(collectionName)

	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Warn("creating index", sl.Err(err))
	}

	return &MongoStorage{
		client:     client,
		collection: collection,
		log:        log,
	}, nil
}

func (m *MongoStorage) Get(userId int64) (*Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var s Session
	err := m.collection.FindOne(ctx, bson.M{"user_id": userId}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return NewSession(userId), nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding session: %w", err)
	}
	return &s, nil
}

func (m *MongoStorage) Reset(userId int64) (*Session, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := NewSession(userId)
	opts := options.Replace().SetUpsert(true)
	if _, err := m.collection.ReplaceOne(ctx, bson.M{"user_id": userId}, s, opts); err != nil {
		return nil, fmt.Errorf("resetting session: %w", err)
	}
	return s, nil
}

func (m *MongoStorage) SetField(userId int64, field Field, value string) (*Session, error) {
	return m.SetFields(userId, map[Field]string{field: value})
}

func (m *MongoStorage) SetFields(userId int64, values map[Field]string) (*Session, error) {
	if err := validFields(values); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := sessionUpdate(userId, values, time.Now())
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var s Session
	err := m.collection.FindOneAndUpdate(ctx, bson.M{"user_id": userId}, update, opts).Decode(&s)
	if err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}
	return &s, nil
}

// sessionUpdate sets the given fields and, for a session created by this
// update, fills the remaining fields with their defaults
func sessionUpdate(userId int64, values map[Field]string, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	for field, value := range values {
		set[string(field)] = value
	}
	onInsert := bson.M{"user_id": userId}
	defaults := map[Field]string{
		FieldPositive: "",
		FieldNegative: "",
		FieldStyle:    string(core.StyleDefault),
		FieldAwaiting: string(AwaitingNone),
	}
	for field, value := range defaults {
		if _, ok := values[field]; !ok {
			onInsert[string(field)] = value
		}
	}
	return bson.M{"$set": set, "$setOnInsert": onInsert}
}

func (m *MongoStorage) Evict(olderThan time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := m.collection.DeleteMany(ctx, bson.M{"updated_at": bson.M{"$lt": olderThan}})
	if err != nil {
		return 0, fmt.Errorf("evicting sessions: %w", err)
	}
	return int(res.DeletedCount), nil
}

func (m *MongoStorage) Count() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := m.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return int(n), nil
}

func (m *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
