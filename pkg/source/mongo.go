package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	perrors "github.com/matzehuels/pipescope/pkg/errors"
	"github.com/matzehuels/pipescope/pkg/lineage"
)

// Default MongoDB names.
const (
	DefaultMongoDatabase   = "pipescope"
	DefaultMongoCollection = "payloads"
)

// MongoStore publishes and loads named payloads in a MongoDB collection.
// Each payload is one document keyed by name; saving replaces it.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// payloadDoc is the stored document. The payload is kept in its JSON form
// so that any mode layout round-trips unchanged.
type payloadDoc struct {
	Name      string    `bson:"_id"`
	Payload   string    `bson:"payload"`
	Modes     []string  `bson:"modes"`
	Nodes     int       `bson:"nodes"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// PayloadInfo describes a stored payload.
type PayloadInfo struct {
	Name      string    `json:"name"`
	Modes     []string  `json:"modes"`
	Nodes     int       `json:"nodes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMongoStore connects to MongoDB and verifies the connection. Empty
// database or collection names use the defaults.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeNetwork, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, perrors.Wrap(perrors.ErrCodeNetwork, err, "ping mongodb")
	}
	return &MongoStore{client: client, collection: client.Database(database).Collection(collection)}, nil
}

// Save stores the payload under name, replacing any previous version.
func (s *MongoStore) Save(ctx context.Context, name string, store *lineage.Store) error {
	data, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	doc := payloadDoc{
		Name:      name,
		Payload:   string(data),
		Modes:     store.Modes(),
		Nodes:     nodeCount(store),
		UpdatedAt: time.Now().UTC(),
	}
	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeNetwork, err, "save payload %q", name)
	}
	return nil
}

// Load returns the payload stored under name.
func (s *MongoStore) Load(ctx context.Context, name string) (*lineage.Store, error) {
	var doc payloadDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, perrors.New(perrors.ErrCodeNotFound, "payload %q not found", name)
	}
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeNetwork, err, "load payload %q", name)
	}
	return lineage.ParsePayload([]byte(doc.Payload))
}

// List returns the stored payloads, most recently updated first.
func (s *MongoStore) List(ctx context.Context) ([]PayloadInfo, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetProjection(bson.M{"payload": 0})
	cur, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeNetwork, err, "list payloads")
	}
	defer cur.Close(ctx)

	var docs []payloadDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeNetwork, err, "list payloads")
	}
	out := make([]PayloadInfo, len(docs))
	for i, d := range docs {
		out[i] = PayloadInfo{Name: d.Name, Modes: d.Modes, Nodes: d.Nodes, UpdatedAt: d.UpdatedAt}
	}
	return out, nil
}

// Delete removes a stored payload. Deleting a missing payload is not an
// error.
func (s *MongoStore) Delete(ctx context.Context, name string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": name}); err != nil {
		return perrors.Wrap(perrors.ErrCodeNetwork, err, "delete payload %q", name)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func nodeCount(store *lineage.Store) int {
	n := 0
	for _, mode := range store.Modes() {
		g, _ := store.Graph(mode)
		n += g.NodeCount()
	}
	return n
}
