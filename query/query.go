// Package query builds immutable MongoDB query specifications. A Query is
// pure data: it accumulates filter, projection, sort and paging fragments and
// translates them to driver documents, but never talks to the database.
package query

import (
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Sort is one (field, direction) pair of an ordering.
type Sort struct {
	Field string
	Desc  bool
}

// Asc sorts ascending on the field.
func Asc(field string) Sort { return Sort{Field: field} }

// Desc sorts descending on the field.
func Desc(field string) Sort { return Sort{Field: field, Desc: true} }

// Query is an immutable query specification. The zero value matches every
// document. Every method returns a derived copy, so specifications can be
// layered and shared freely.
type Query struct {
	conjuncts []bson.M
	raw       bson.M

	include []string
	exclude []string

	sorts []Sort

	skip     int64
	limit    int64
	hasSkip  bool
	hasLimit bool
}

// New returns an empty query specification.
func New() Query { return Query{} }

// Filter adds a filter expression. Filters conjunct: documents must match
// every expression added along the chain.
func (q Query) Filter(expr bson.M) Query {
	if len(expr) == 0 {
		return q
	}
	q.conjuncts = append(q.conjuncts[:len(q.conjuncts):len(q.conjuncts)], expr)
	return q
}

// Raw replaces the whole filter clause with expr. The last Raw in a chain
// wins over any accumulated Filter expressions.
func (q Query) Raw(expr bson.M) Query {
	q.raw = expr
	return q
}

// Only restricts results to the named fields. It replaces any previous
// projection.
func (q Query) Only(fields ...string) Query {
	q.include = append([]string(nil), fields...)
	q.exclude = nil
	return q
}

// Exclude omits the named fields from results. It replaces any previous
// projection.
func (q Query) Exclude(fields ...string) Query {
	q.exclude = append([]string(nil), fields...)
	q.include = nil
	return q
}

// OrderBy replaces the sort order.
func (q Query) OrderBy(sorts ...Sort) Query {
	q.sorts = append([]Sort(nil), sorts...)
	return q
}

// Skip sets the number of documents to pass over.
func (q Query) Skip(n int64) Query {
	q.skip = n
	q.hasSkip = true
	return q
}

// Limit caps the number of documents returned.
func (q Query) Limit(n int64) Query {
	q.limit = n
	q.hasLimit = true
	return q
}

// Skipped reports the skip value and whether one was set.
func (q Query) Skipped() (int64, bool) { return q.skip, q.hasSkip }

// Limited reports the limit value and whether one was set.
func (q Query) Limited() (int64, bool) { return q.limit, q.hasLimit }

// FilterDoc assembles the effective filter document. Disjoint filter
// expressions merge into one document; expressions that share a field path
// fold into an $and list so neither clobbers the other.
func (q Query) FilterDoc() bson.M {
	if q.raw != nil {
		return q.raw
	}
	switch len(q.conjuncts) {
	case 0:
		return bson.M{}
	case 1:
		return cloneExpr(q.conjuncts[0])
	}

	merged := bson.M{}
	for _, expr := range q.conjuncts {
		for k, v := range expr {
			if _, collide := merged[k]; collide {
				return andDoc(q.conjuncts)
			}
			merged[k] = v
		}
	}
	return merged
}

func andDoc(conjuncts []bson.M) bson.M {
	clauses := make(bson.A, len(conjuncts))
	for i, expr := range conjuncts {
		clauses[i] = expr
	}
	return bson.M{"$and": clauses}
}

func cloneExpr(expr bson.M) bson.M {
	out := make(bson.M, len(expr))
	for k, v := range expr {
		out[k] = v
	}
	return out
}

// ProjectionDoc returns the projection document, or nil when no projection
// was requested.
func (q Query) ProjectionDoc() bson.M {
	if len(q.include) > 0 {
		doc := make(bson.M, len(q.include))
		for _, f := range q.include {
			doc[f] = 1
		}
		return doc
	}
	if len(q.exclude) > 0 {
		doc := make(bson.M, len(q.exclude))
		for _, f := range q.exclude {
			doc[f] = 0
		}
		return doc
	}
	return nil
}

// SortDoc returns the ordered sort document, or nil when no order was set.
// bson.D keeps the field order, which MongoDB sort semantics depend on.
func (q Query) SortDoc() bson.D {
	if len(q.sorts) == 0 {
		return nil
	}
	doc := make(bson.D, len(q.sorts))
	for i, s := range q.sorts {
		dir := 1
		if s.Desc {
			dir = -1
		}
		doc[i] = bson.E{Key: s.Field, Value: dir}
	}
	return doc
}

// FindOptions translates the projection, sort and paging fragments into
// driver find options.
func (q Query) FindOptions() *options.FindOptionsBuilder {
	opts := options.Find()
	if p := q.ProjectionDoc(); p != nil {
		opts.SetProjection(p)
	}
	if s := q.SortDoc(); s != nil {
		opts.SetSort(s)
	}
	if q.hasSkip {
		opts.SetSkip(q.skip)
	}
	if q.hasLimit {
		opts.SetLimit(q.limit)
	}
	return opts
}
