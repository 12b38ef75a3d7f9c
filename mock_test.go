package mongomap

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// fakeCollection implements Collection in memory, recording every issued
// operation so tests can assert on exactly what reached the "server".
type fakeCollection struct {
	name string

	// docs is the result set Find serves, before skip/limit are applied.
	docs []bson.D

	countResult int64
	insertIDs   []any
	updateN     int64
	deleteN     int64
	err         error

	finds    []findCall
	counts   []bson.M
	inserts  [][]any
	replaces []replaceCall
	updates  []updateCall
	deletes  []bson.M
	indexes  [][]mongo.IndexModel
}

type findCall struct {
	filter bson.M
	opts   *options.FindOptions
}

type replaceCall struct {
	filter bson.M
	doc    any
}

type updateCall struct {
	filter bson.M
	update bson.M
}

func newFakeCollection(name string) *fakeCollection {
	return &fakeCollection{name: name}
}

func (c *fakeCollection) Name() string { return c.name }

func materialize(b *options.FindOptionsBuilder) *options.FindOptions {
	opts := &options.FindOptions{}
	if b == nil {
		return opts
	}
	for _, fn := range b.Opts {
		_ = fn(opts)
	}
	return opts
}

func (c *fakeCollection) Find(ctx context.Context, filter any, b *options.FindOptionsBuilder) (Cursor, error) {
	if c.err != nil {
		return nil, c.err
	}
	opts := materialize(b)
	c.finds = append(c.finds, findCall{filter: filter.(bson.M), opts: opts})

	docs := c.docs
	if opts.Skip != nil {
		n := *opts.Skip
		if n > int64(len(docs)) {
			n = int64(len(docs))
		}
		docs = docs[n:]
	}
	if opts.Limit != nil && *opts.Limit > 0 && *opts.Limit < int64(len(docs)) {
		docs = docs[:*opts.Limit]
	}
	return &fakeCursor{docs: docs, pos: -1}, nil
}

func (c *fakeCollection) CountDocuments(ctx context.Context, filter any) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.counts = append(c.counts, filter.(bson.M))
	return c.countResult, nil
}

func (c *fakeCollection) InsertMany(ctx context.Context, docs []any) ([]any, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.inserts = append(c.inserts, docs)
	if c.insertIDs != nil {
		return c.insertIDs, nil
	}
	ids := make([]any, len(docs))
	for i := range docs {
		ids[i] = bson.NewObjectID()
	}
	return ids, nil
}

func (c *fakeCollection) ReplaceOne(ctx context.Context, filter any, doc any) error {
	if c.err != nil {
		return c.err
	}
	c.replaces = append(c.replaces, replaceCall{filter: filter.(bson.M), doc: doc})
	return nil
}

func (c *fakeCollection) UpdateMany(ctx context.Context, filter any, update any) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.updates = append(c.updates, updateCall{filter: filter.(bson.M), update: update.(bson.M)})
	return c.updateN, nil
}

func (c *fakeCollection) DeleteMany(ctx context.Context, filter any) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.deletes = append(c.deletes, filter.(bson.M))
	return c.deleteN, nil
}

func (c *fakeCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) error {
	if c.err != nil {
		return c.err
	}
	c.indexes = append(c.indexes, models)
	return nil
}

type fakeCursor struct {
	docs   []bson.D
	pos    int
	closed bool
}

func (c *fakeCursor) Next(ctx context.Context) bool {
	if ctx.Err() != nil || c.closed {
		return false
	}
	c.pos++
	return c.pos < len(c.docs)
}

func (c *fakeCursor) Decode(v any) error {
	*(v.(*bson.D)) = c.docs[c.pos]
	return nil
}

func (c *fakeCursor) Err() error { return nil }

func (c *fakeCursor) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

// fakeDB hands out one fake collection per name, creating them on demand.
type fakeDB struct {
	colls map[string]*fakeCollection
}

func newFakeDB() *fakeDB {
	return &fakeDB{colls: make(map[string]*fakeCollection)}
}

func (db *fakeDB) open(name string) Collection {
	return db.coll(name)
}

func (db *fakeDB) coll(name string) *fakeCollection {
	c, ok := db.colls[name]
	if !ok {
		c = newFakeCollection(name)
		db.colls[name] = c
	}
	return c
}
