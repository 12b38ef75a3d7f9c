package mongomap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ilex/mongomap/schema"
)

// testRegistry builds the model set most tests share: users with an embedded
// address, posts referencing their author and carrying embedded comments
// that reference users too.
func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()

	reg.MustDefineEmbedded("Address", []*schema.Field{
		schema.String("street"),
		schema.String("city"),
	})
	reg.MustDefineEmbedded("Comment", []*schema.Field{
		schema.String("body"),
		schema.Reference("author", "User"),
	})
	reg.MustDefine("User", []*schema.Field{
		schema.String("email", schema.PrimaryKey()),
		schema.String("name", schema.Required(), schema.MaxLength(80)),
		schema.Int("age", schema.Min(0), schema.Max(150)),
		schema.List("tags", schema.String("")),
		schema.Embedded("address", "Address"),
	})
	reg.MustDefine("Post", []*schema.Field{
		schema.String("title", schema.PrimaryKey()),
		schema.Reference("author", "User"),
		schema.List("comments", schema.Embedded("", "Comment")),
	})
	return reg
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *fakeDB) {
	t.Helper()
	db := newFakeDB()
	eng := NewWithOpener(db.open, testRegistry(t), opts...)
	return eng, db
}

// requireInstanceEqual compares two instances field by field, descending
// into embedded instances and lists.
func requireInstanceEqual(t *testing.T, want, got *Instance) {
	t.Helper()
	require.Equal(t, want.Model().Name, got.Model().Name)
	require.Equal(t, want.Fields(), got.Fields())
	for _, name := range want.Fields() {
		requireValueEqual(t, want.Value(name), got.Value(name), name)
	}
	require.Equal(t, want.Extra(), got.Extra())
}

func requireValueEqual(t *testing.T, want, got any, path string) {
	t.Helper()
	switch w := want.(type) {
	case *Instance:
		g, ok := got.(*Instance)
		require.True(t, ok, "%s: want instance, got %T", path, got)
		requireInstanceEqual(t, w, g)
	case []any:
		g, ok := got.([]any)
		require.True(t, ok, "%s: want list, got %T", path, got)
		require.Len(t, g, len(w), path)
		for i := range w {
			requireValueEqual(t, w[i], g[i], path)
		}
	default:
		require.Equal(t, want, got, path)
	}
}
