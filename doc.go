// Package mongomap is a schema-driven object-document mapper for MongoDB.
//
// Models are declared once at startup against a registry, with typed field
// schemas covering scalars, ordered lists, embedded documents and lazy
// cross-document references:
//
//	reg := schema.NewRegistry()
//	user := reg.MustDefine("User", []*schema.Field{
//		schema.String("email", schema.PrimaryKey()),
//		schema.String("name", schema.Required()),
//	})
//	post := reg.MustDefine("Post", []*schema.Field{
//		schema.String("title", schema.PrimaryKey()),
//		schema.Reference("author", "User"),
//	})
//
// An engine binds the registry to a connected database and hands out
// managers; querysets layer immutable query specifications and execute them
// against the collection, decoding raw documents back into instances:
//
//	eng := mongomap.New(client.Database("app"), reg)
//	posts := eng.MustManager("Post")
//	p, err := posts.All().Get(ctx, bson.M{"_id": "T"})
//
// Reference fields hold the referenced document's primary key until
// explicitly resolved; Engine.Dereference batches the lookups, one query per
// referenced model regardless of how many instances point at it.
package mongomap
