package schema

import (
	"strings"
	"unicode"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// RuleKind selects how a related document reacts when the document it
// references is deleted.
type RuleKind int

const (
	// DoNothing leaves the referencing field untouched.
	DoNothing RuleKind = iota
	// Nullify unsets the referencing field.
	Nullify
	// Cascade deletes the referencing documents as well.
	Cascade
	// Pull removes the deleted ids from a list-valued referencing field.
	Pull
	// Deny refuses the delete while referencing documents exist.
	Deny
)

// DeleteRule binds a referencing model and field to a RuleKind. Rules are
// declared on the referenced model.
type DeleteRule struct {
	Model string
	Field string
	Kind  RuleKind
}

// Model is the immutable definition of a document type: its fields in
// declaration order plus collection metadata. Build one through
// Registry.Define or Registry.DefineEmbedded.
type Model struct {
	Name       string
	Collection string
	Embedded   bool

	Fields      []*Field
	Indexes     []mongo.IndexModel
	DeleteRules []DeleteRule

	pk     *Field
	byName map[string]*Field
}

// ModelOption configures a model at definition time.
type ModelOption func(*Model)

// Collection overrides the default collection name (the snake-case form of
// the model name).
func Collection(name string) ModelOption {
	return func(m *Model) { m.Collection = name }
}

// Indexes declares the indexes that CreateIndexes should issue for the model.
func Indexes(models ...mongo.IndexModel) ModelOption {
	return func(m *Model) { m.Indexes = append(m.Indexes, models...) }
}

// OnDelete declares what happens to documents of the named model, through the
// named reference field, when documents of this model are deleted.
func OnDelete(model, field string, kind RuleKind) ModelOption {
	return func(m *Model) {
		m.DeleteRules = append(m.DeleteRules, DeleteRule{Model: model, Field: field, Kind: kind})
	}
}

// PK returns the model's primary key field. Embedded models have none.
func (m *Model) PK() *Field {
	return m.pk
}

// Field returns the named field, or nil.
func (m *Model) Field(name string) *Field {
	return m.byName[name]
}

func (m *Model) index() error {
	m.byName = make(map[string]*Field, len(m.Fields))
	for _, f := range m.Fields {
		if f.Name == "" {
			return &DefinitionError{Model: m.Name, Detail: "field with empty name"}
		}
		if _, dup := m.byName[f.Name]; dup {
			return &DefinitionError{Model: m.Name, Detail: "duplicate field " + f.Name}
		}
		m.byName[f.Name] = f
		if f.PrimaryKey {
			if m.Embedded {
				return &DefinitionError{Model: m.Name, Detail: "embedded model cannot declare a primary key"}
			}
			if m.pk != nil {
				return &DefinitionError{Model: m.Name, Detail: "multiple primary key fields"}
			}
			m.pk = f
		}
	}
	return nil
}

// snakeCase converts a model name like "OrderItem" to "order_item", matching
// the default collection naming of the mapper.
func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
