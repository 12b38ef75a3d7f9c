package query

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestFilterConjunctionDisjointFields(t *testing.T) {
	a := bson.M{"age": bson.M{"$gt": 25}}
	b := bson.M{"name": "Ada"}

	q1 := New().Filter(a).Filter(b)
	q2 := New().Filter(b).Filter(a)

	want := bson.M{"age": bson.M{"$gt": 25}, "name": "Ada"}
	require.Equal(t, want, q1.FilterDoc())
	require.Equal(t, want, q2.FilterDoc(), "conjunction of disjoint fields commutes")
}

func TestFilterCollisionFoldsIntoAnd(t *testing.T) {
	q := New().
		Filter(bson.M{"age": bson.M{"$gt": 25}}).
		Filter(bson.M{"age": bson.M{"$lt": 60}})

	doc := q.FilterDoc()
	clauses, ok := doc["$and"].(bson.A)
	require.True(t, ok, "colliding field paths must fold into $and, got %v", doc)
	require.Len(t, clauses, 2)
}

func TestImmutability(t *testing.T) {
	base := New().Filter(bson.M{"a": 1})

	derived := base.Filter(bson.M{"b": 2}).Skip(5).Limit(10).Only("a")

	require.Equal(t, bson.M{"a": 1}, base.FilterDoc(), "base spec unchanged by chaining")
	_, hasSkip := base.Skipped()
	require.False(t, hasSkip)
	require.Nil(t, base.ProjectionDoc())

	require.Equal(t, bson.M{"a": 1, "b": 2}, derived.FilterDoc())
}

func TestSharedPrefixDoesNotAlias(t *testing.T) {
	base := New().Filter(bson.M{"a": 1})

	q1 := base.Filter(bson.M{"b": 2})
	q2 := base.Filter(bson.M{"c": 3})

	require.Equal(t, bson.M{"a": 1, "b": 2}, q1.FilterDoc())
	require.Equal(t, bson.M{"a": 1, "c": 3}, q2.FilterDoc())
}

func TestRawWins(t *testing.T) {
	raw := bson.M{"$where": "1"}
	q := New().Filter(bson.M{"a": 1}).Raw(bson.M{"old": true}).Raw(raw)
	require.Equal(t, raw, q.FilterDoc(), "last raw replaces the filter clause")
}

func TestEmptyFilter(t *testing.T) {
	require.Equal(t, bson.M{}, New().FilterDoc())
	require.Equal(t, bson.M{}, New().Filter(bson.M{}).FilterDoc())
}

func TestProjectionReplaces(t *testing.T) {
	q := New().Only("a", "b")
	require.Equal(t, bson.M{"a": 1, "b": 1}, q.ProjectionDoc())

	q = q.Exclude("c")
	require.Equal(t, bson.M{"c": 0}, q.ProjectionDoc(), "exclude replaces only")

	q = q.Only("d")
	require.Equal(t, bson.M{"d": 1}, q.ProjectionDoc(), "only replaces exclude")
}

func TestSortDocPreservesOrder(t *testing.T) {
	q := New().OrderBy(Desc("created"), Asc("name"))
	require.Equal(t, bson.D{
		{Key: "created", Value: -1},
		{Key: "name", Value: 1},
	}, q.SortDoc())
}

func TestSkipLimitOverwrite(t *testing.T) {
	q := New().Skip(10).Limit(20).Skip(3).Limit(4)

	skip, ok := q.Skipped()
	require.True(t, ok)
	require.EqualValues(t, 3, skip)

	limit, ok := q.Limited()
	require.True(t, ok)
	require.EqualValues(t, 4, limit)
}
