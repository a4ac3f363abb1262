package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Protocol-Lattice/go-compact/src/memory/model"
)

// MongoStore implements FactStore on a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	nowFn      func() time.Time
}

var (
	_ FactStore         = (*MongoStore)(nil)
	_ SchemaInitializer = (*MongoStore)(nil)
)

const mongoCloseTimeout = 5 * time.Second

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if collection == "" {
		return nil, errors.New("mongo collection name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		nowFn:      time.Now,
	}, nil
}

func (ms *MongoStore) AddFact(ctx context.Context, subject, content string, topics []string) error {
	if err := validateSubject(subject); err != nil {
		return err
	}
	if ms == nil || ms.collection == nil {
		return nil
	}
	doc := newMongoFactDocument(subject, content, topics, ms.nowFn())
	if _, err := ms.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo insert fact: %w", err)
	}
	return nil
}

func (ms *MongoStore) Facts(ctx context.Context, subject string, limit int) ([]model.Fact, error) {
	if err := validateSubject(subject); err != nil {
		return nil, err
	}
	if ms == nil || ms.collection == nil {
		return nil, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(clampLimit(limit)))
	cursor, err := ms.collection.Find(ctx, bson.M{"subject": subject}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find facts: %w", err)
	}
	defer cursor.Close(ctx)

	var facts []model.Fact
	for cursor.Next(ctx) {
		var doc mongoFactDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		facts = append(facts, doc.toFact())
	}
	return facts, cursor.Err()
}

// CreateSchema ensures the collection is indexed for per-subject reads.
func (ms *MongoStore) CreateSchema(ctx context.Context) error {
	if ms == nil || ms.collection == nil {
		return nil
	}
	_, err := ms.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subject", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("subject_created_at"),
		},
		{
			Keys:    bson.D{{Key: "topics", Value: 1}},
			Options: options.Index().SetName("topics"),
		},
	})
	return err
}

type mongoFactDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Subject   string             `bson:"subject"`
	Content   string             `bson:"content"`
	Topics    []string           `bson:"topics"`
	CreatedAt time.Time          `bson:"created_at"`
}

func newMongoFactDocument(subject, content string, topics []string, now time.Time) mongoFactDocument {
	topics = model.NormalizeTopics(topics)
	if topics == nil {
		topics = []string{}
	}
	return mongoFactDocument{
		ID:        primitive.NewObjectID(),
		Subject:   subject,
		Content:   content,
		Topics:    topics,
		CreatedAt: now.UTC(),
	}
}

func (doc mongoFactDocument) toFact() model.Fact {
	return model.Fact{
		ID:        doc.ID.Hex(),
		Subject:   doc.Subject,
		Content:   doc.Content,
		Topics:    model.NormalizeTopics(doc.Topics),
		CreatedAt: doc.CreatedAt.UTC(),
	}
}

func (ms *MongoStore) Close() error {
	if ms == nil || ms.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}
