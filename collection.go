package mongomap

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection is the capability surface the executor needs from a driver
// collection. Every method is a suspension point: it blocks on the round trip
// and honors ctx cancellation. *mongo.Collection satisfies it through the
// adapter below; tests substitute in-memory fakes.
type Collection interface {
	Name() string
	Find(ctx context.Context, filter any, opts *options.FindOptionsBuilder) (Cursor, error)
	CountDocuments(ctx context.Context, filter any) (int64, error)
	InsertMany(ctx context.Context, docs []any) ([]any, error)
	ReplaceOne(ctx context.Context, filter any, doc any) error
	UpdateMany(ctx context.Context, filter any, update any) (int64, error)
	DeleteMany(ctx context.Context, filter any) (int64, error)
	CreateIndexes(ctx context.Context, models []mongo.IndexModel) error
}

// Cursor streams a query's results incrementally. It is stateful and
// single-use: one logical owner, no sharing across concurrent consumers.
type Cursor interface {
	Next(ctx context.Context) bool
	Decode(v any) error
	Err() error
	Close(ctx context.Context) error
}

type mongoCollection struct {
	coll *mongo.Collection
}

// WrapCollection adapts a driver collection to the Collection capability.
func WrapCollection(coll *mongo.Collection) Collection {
	return &mongoCollection{coll: coll}
}

func (c *mongoCollection) Name() string {
	return c.coll.Name()
}

func (c *mongoCollection) Find(ctx context.Context, filter any, opts *options.FindOptionsBuilder) (Cursor, error) {
	cur, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (c *mongoCollection) CountDocuments(ctx context.Context, filter any) (int64, error) {
	return c.coll.CountDocuments(ctx, filter)
}

func (c *mongoCollection) InsertMany(ctx context.Context, docs []any) ([]any, error) {
	res, err := c.coll.InsertMany(ctx, docs)
	if err != nil {
		return nil, err
	}
	return res.InsertedIDs, nil
}

func (c *mongoCollection) ReplaceOne(ctx context.Context, filter any, doc any) error {
	_, err := c.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	return err
}

func (c *mongoCollection) UpdateMany(ctx context.Context, filter any, update any) (int64, error) {
	res, err := c.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (c *mongoCollection) DeleteMany(ctx context.Context, filter any) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *mongoCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) error {
	_, err := c.coll.Indexes().CreateMany(ctx, models)
	return err
}

// normalizeID flattens numeric id representations so ids compare equal as
// map keys regardless of whether they came from the driver (int32/int64) or
// from caller code (int, float64 holding a whole number).
func normalizeID(id any) any {
	switch v := id.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float32:
		return int64(v)
	case float64:
		return int64(v)
	case bson.ObjectID:
		return v.Hex()
	default:
		return id
	}
}
