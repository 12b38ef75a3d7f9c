package mongomap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ilex/mongomap/schema"
)

func TestSaveInsertsWithoutPK(t *testing.T) {
	reg := schema.NewRegistry()
	reg.MustDefine("Event", []*schema.Field{schema.String("kind")})
	db := newFakeDB()
	eng := NewWithOpener(db.open, reg)

	events := eng.MustManager("Event")
	inst := events.New().MustSet("kind", "signup")

	require.NoError(t, events.Save(context.Background(), inst))
	require.True(t, inst.HasPK(), "driver-assigned id written back")
	require.Len(t, db.coll("event").inserts, 1)
	require.Empty(t, db.coll("event").replaces)
}

func TestSaveReplacesWithPK(t *testing.T) {
	eng, db := newTestEngine(t)
	users := eng.MustManager("User")

	inst := users.New().MustSet("email", "a@x.com").MustSet("name", "A")
	require.NoError(t, users.Save(context.Background(), inst))

	replaces := db.coll("user").replaces
	require.Len(t, replaces, 1)
	require.Equal(t, bson.M{"_id": "a@x.com"}, replaces[0].filter)
	require.Empty(t, db.coll("user").inserts)
}

func TestSaveValidatesBeforeIO(t *testing.T) {
	eng, db := newTestEngine(t)
	users := eng.MustManager("User")

	inst := users.New().MustSet("email", "a@x.com") // name required
	err := users.Save(context.Background(), inst)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Empty(t, db.coll("user").inserts)
	require.Empty(t, db.coll("user").replaces)
}

func TestDeleteOne(t *testing.T) {
	eng, db := newTestEngine(t)
	users := eng.MustManager("User")
	db.coll("user").deleteN = 1

	inst := users.New().MustSet("email", "a@x.com").MustSet("name", "A")
	n, err := users.DeleteOne(context.Background(), inst)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Equal(t, []bson.M{{"_id": "a@x.com"}}, db.coll("user").deletes)

	_, err = users.DeleteOne(context.Background(), users.New())
	var operr *OperationError
	require.ErrorAs(t, err, &operr)
}

func TestRefresh(t *testing.T) {
	eng, db := newTestEngine(t)
	users := eng.MustManager("User")
	db.coll("user").docs = []bson.D{userDoc("a@x.com", "Fresh")}

	inst := users.New().MustSet("email", "a@x.com").MustSet("name", "Stale")
	require.NoError(t, users.Refresh(context.Background(), inst))
	require.Equal(t, "Fresh", inst.Value("name"))

	require.Equal(t, bson.M{"_id": "a@x.com"}, db.coll("user").finds[0].filter)
}

func TestRefreshSubsetOfFields(t *testing.T) {
	eng, db := newTestEngine(t)
	users := eng.MustManager("User")
	db.coll("user").docs = []bson.D{{{Key: "_id", Value: "a@x.com"}, {Key: "name", Value: "Fresh"}}}

	inst := users.New().MustSet("email", "a@x.com").MustSet("name", "Stale")
	require.NoError(t, users.Refresh(context.Background(), inst, "name"))

	opts := db.coll("user").finds[0].opts
	require.Equal(t, bson.M{"name": 1}, opts.Projection)
}

func TestRefreshBeforeSave(t *testing.T) {
	eng, _ := newTestEngine(t)
	users := eng.MustManager("User")

	err := users.Refresh(context.Background(), users.New())
	var operr *OperationError
	require.ErrorAs(t, err, &operr)
}

func TestGetByID(t *testing.T) {
	eng, db := newTestEngine(t)
	db.coll("user").docs = []bson.D{userDoc("a@x.com", "A")}

	inst, err := eng.MustManager("User").GetByID(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "A", inst.Value("name"))
	require.Equal(t, bson.M{"_id": "a@x.com"}, db.coll("user").finds[0].filter)
}

func TestManagerForEmbeddedModel(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Manager("Address")
	var derr *schema.DefinitionError
	require.ErrorAs(t, err, &derr)

	_, err = eng.Manager("Ghost")
	require.ErrorAs(t, err, &derr)
}
