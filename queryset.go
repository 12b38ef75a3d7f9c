package mongomap

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/ilex/mongomap/query"
	"github.com/ilex/mongomap/schema"
)

// Queryset binds an immutable query specification to a live collection
// handle. Building one is free of I/O; every method taking a context issues
// the round trip. Querysets derive like their specifications: each chaining
// method returns a new one, so they can be shared and layered.
//
// Multi-document writes (Update, Delete, BulkCreate) are not transactional:
// cancelling the context mid-flight may leave a partial effect.
type Queryset struct {
	mgr *Manager
	q   query.Query
}

// Query returns the underlying query specification.
func (s *Queryset) Query() query.Query { return s.q }

// Filter layers a filter expression onto the specification.
func (s *Queryset) Filter(expr bson.M) *Queryset {
	return &Queryset{mgr: s.mgr, q: s.q.Filter(expr)}
}

// Raw replaces the filter clause entirely.
func (s *Queryset) Raw(expr bson.M) *Queryset {
	return &Queryset{mgr: s.mgr, q: s.q.Raw(expr)}
}

// Only restricts results to the named fields.
func (s *Queryset) Only(fields ...string) *Queryset {
	return &Queryset{mgr: s.mgr, q: s.q.Only(fields...)}
}

// Exclude omits the named fields from results.
func (s *Queryset) Exclude(fields ...string) *Queryset {
	return &Queryset{mgr: s.mgr, q: s.q.Exclude(fields...)}
}

// OrderBy replaces the sort order.
func (s *Queryset) OrderBy(sorts ...query.Sort) *Queryset {
	return &Queryset{mgr: s.mgr, q: s.q.OrderBy(sorts...)}
}

// Skip sets the number of documents to pass over.
func (s *Queryset) Skip(n int64) *Queryset {
	return &Queryset{mgr: s.mgr, q: s.q.Skip(n)}
}

// Limit caps the number of documents returned.
func (s *Queryset) Limit(n int64) *Queryset {
	return &Queryset{mgr: s.mgr, q: s.q.Limit(n)}
}

func (s *Queryset) filterDoc() bson.M {
	return translateFilter(s.mgr.model, s.q.FilterDoc())
}

// Count returns the number of matching documents.
func (s *Queryset) Count(ctx context.Context) (int64, error) {
	return s.mgr.coll.CountDocuments(ctx, s.filterDoc())
}

// Iter issues the query and returns a lazy iterator over decoded instances.
// The iterator is single-use and owned by the caller; restarting iteration
// means calling Iter again, since the server-side cursor is stateful.
func (s *Queryset) Iter(ctx context.Context) (*Iter, error) {
	cur, err := s.mgr.coll.Find(ctx, s.filterDoc(), s.q.FindOptions())
	if err != nil {
		return nil, err
	}
	s.mgr.eng.log.Debug("find",
		zap.String("collection", s.mgr.coll.Name()),
		zap.String("model", s.mgr.model.Name))
	return &Iter{cur: cur, codec: s.mgr.eng.codec, model: s.mgr.model}, nil
}

// First returns the first matching document, or a DoesNotExistError when
// nothing matches.
func (s *Queryset) First(ctx context.Context) (*Instance, error) {
	it, err := s.Limit(1).Iter(ctx)
	if err != nil {
		return nil, err
	}
	defer it.Close(ctx)
	if !it.Next(ctx) {
		if err := it.Err(); err != nil {
			return nil, err
		}
		return nil, &DoesNotExistError{Model: s.mgr.model.Name}
	}
	return it.Value(), nil
}

// Get layers match onto the filter and requires exactly one result:
// DoesNotExistError on zero, MultipleObjectsReturnedError on more than one.
func (s *Queryset) Get(ctx context.Context, match bson.M) (*Instance, error) {
	it, err := s.Filter(match).Limit(2).Iter(ctx)
	if err != nil {
		return nil, err
	}
	defer it.Close(ctx)
	if !it.Next(ctx) {
		if err := it.Err(); err != nil {
			return nil, err
		}
		return nil, &DoesNotExistError{Model: s.mgr.model.Name}
	}
	first := it.Value()
	if it.Next(ctx) {
		return nil, &MultipleObjectsReturnedError{Model: s.mgr.model.Name}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return first, nil
}

// All drains the full result set into an ordered slice.
func (s *Queryset) All(ctx context.Context) ([]*Instance, error) {
	it, err := s.Iter(ctx)
	if err != nil {
		return nil, err
	}
	defer it.Close(ctx)
	var out []*Instance
	for it.Next(ctx) {
		out = append(out, it.Value())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// AllDeref drains the result set and runs the reference resolver over the
// whole list before returning it.
func (s *Queryset) AllDeref(ctx context.Context) ([]*Instance, error) {
	out, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.mgr.eng.Dereference(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// At returns the single document at position i in the current ordering.
// This is a round trip, which is why it is a plainly named suspending
// method and not an index operator.
func (s *Queryset) At(ctx context.Context, i int64) (*Instance, error) {
	return s.Skip(i).First(ctx)
}

// Slice returns the documents in positions [a, b) of the current ordering.
func (s *Queryset) Slice(ctx context.Context, a, b int64) ([]*Instance, error) {
	return s.Skip(a).Limit(b - a).All(ctx)
}

// Update applies the modification document to every matching document and
// returns the number modified.
func (s *Queryset) Update(ctx context.Context, mods bson.M) (int64, error) {
	n, err := s.mgr.coll.UpdateMany(ctx, s.filterDoc(), mods)
	if err != nil {
		return 0, err
	}
	s.mgr.eng.log.Debug("update",
		zap.String("collection", s.mgr.coll.Name()),
		zap.Int64("modified", n))
	return n, nil
}

// Delete removes every matching document and returns the number deleted.
// When the model declares delete rules, Deny rules are checked before
// anything is removed and the remaining rules applied afterwards.
func (s *Queryset) Delete(ctx context.Context) (int64, error) {
	rules := s.mgr.model.DeleteRules
	if len(rules) == 0 {
		return s.deleteMany(ctx)
	}

	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	ids, err := s.matchingIDs(ctx)
	if err != nil {
		return 0, err
	}

	// Deny rules veto the whole delete before any document is touched.
	for _, rule := range rules {
		if rule.Kind != schema.Deny {
			continue
		}
		related, err := s.mgr.eng.Manager(rule.Model)
		if err != nil {
			return 0, err
		}
		refs, err := related.coll.CountDocuments(ctx, bson.M{rule.Field: bson.M{"$in": ids}})
		if err != nil {
			return 0, err
		}
		if refs > 0 {
			return 0, &OperationError{Msg: "cannot delete " + s.mgr.model.Name +
				" while " + rule.Model + " refers to it through " + rule.Field}
		}
	}

	deleted, err := s.deleteMany(ctx)
	if err != nil {
		return 0, err
	}

	for _, rule := range rules {
		related, err := s.mgr.eng.Manager(rule.Model)
		if err != nil {
			return 0, err
		}
		refFilter := bson.M{rule.Field: bson.M{"$in": ids}}
		switch rule.Kind {
		case schema.Nullify:
			if _, err := related.coll.UpdateMany(ctx, refFilter,
				bson.M{"$unset": bson.M{rule.Field: ""}}); err != nil {
				return deleted, err
			}
		case schema.Cascade:
			if _, err := related.Raw(refFilter).Delete(ctx); err != nil {
				return deleted, err
			}
		case schema.Pull:
			if _, err := related.coll.UpdateMany(ctx, refFilter,
				bson.M{"$pull": bson.M{rule.Field: bson.M{"$in": ids}}}); err != nil {
				return deleted, err
			}
		}
	}
	return deleted, nil
}

func (s *Queryset) deleteMany(ctx context.Context) (int64, error) {
	n, err := s.mgr.coll.DeleteMany(ctx, s.filterDoc())
	if err != nil {
		return 0, err
	}
	s.mgr.eng.log.Debug("delete",
		zap.String("collection", s.mgr.coll.Name()),
		zap.Int64("deleted", n))
	return n, nil
}

// matchingIDs fetches the primary keys of every matching document without
// decoding full instances.
func (s *Queryset) matchingIDs(ctx context.Context) ([]any, error) {
	opts := options.Find().SetProjection(bson.M{wireID: 1})
	cur, err := s.mgr.coll.Find(ctx, s.filterDoc(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var ids []any
	for cur.Next(ctx) {
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		for _, elem := range doc {
			if elem.Key == wireID {
				ids = append(ids, elem.Value)
			}
		}
	}
	return ids, cur.Err()
}

// BulkCreate validates and encodes every instance, issues one bulk insert,
// and writes the driver-assigned ids back into each instance's primary key
// in submission order. Validation of the whole batch happens before any
// network I/O.
func (s *Queryset) BulkCreate(ctx context.Context, instances []*Instance) error {
	docs := make([]any, len(instances))
	for i, inst := range instances {
		doc, err := s.mgr.eng.codec.Encode(inst)
		if err != nil {
			return err
		}
		docs[i] = doc
	}
	ids, err := s.mgr.coll.InsertMany(ctx, docs)
	if err != nil {
		return err
	}
	for i, id := range ids {
		if i < len(instances) {
			instances[i].SetPK(id)
		}
	}
	s.mgr.eng.log.Debug("bulk insert",
		zap.String("collection", s.mgr.coll.Name()),
		zap.Int("count", len(instances)))
	return nil
}

// CreateIndexes issues the model's declared index definitions. The server
// treats re-issuing identical definitions as a no-op, so calling this on
// every startup is safe.
func (s *Queryset) CreateIndexes(ctx context.Context) error {
	if len(s.mgr.model.Indexes) == 0 {
		return nil
	}
	return s.mgr.coll.CreateIndexes(ctx, s.mgr.model.Indexes)
}
