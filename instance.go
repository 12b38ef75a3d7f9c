package mongomap

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ilex/mongomap/schema"
)

// BrokenRef marks a reference field whose target document was missing during
// dereferencing. It is the default policy; strict mode raises a
// BrokenReferenceError instead.
type BrokenRef struct {
	Model string
	ID    any
}

// Instance is one in-memory document bound to its model definition. Field
// values are typed per the schema; reference fields hold the referenced
// primary key until dereferenced, a *Instance afterwards, or a BrokenRef when
// the target is gone. An instance is owned by the caller holding it and is
// not safe for concurrent mutation.
type Instance struct {
	model  *schema.Model
	values map[string]any

	// extra holds unknown wire fields preserved by the permissive decode
	// policy. They are re-emitted verbatim on encode.
	extra bson.D
}

// NewInstance returns an empty instance of the model.
func NewInstance(model *schema.Model) *Instance {
	return &Instance{model: model, values: make(map[string]any)}
}

// Model returns the instance's model definition.
func (i *Instance) Model() *schema.Model { return i.model }

// Set assigns a field value, normalizing scalars to the schema's canonical
// representation (int64 for ints, float64 for floats). Unknown fields and
// uncoercible values are rejected.
func (i *Instance) Set(field string, v any) error {
	f := i.model.Field(field)
	if f == nil {
		return &ValidationError{Model: i.model.Name, Field: field, Constraint: "unknown field", Value: v}
	}
	nv, err := coerce(f, v)
	if err != nil {
		return err
	}
	i.values[field] = nv
	return nil
}

// MustSet is Set, panicking on error. Meant for literal instance
// construction in application startup code and tests.
func (i *Instance) MustSet(field string, v any) *Instance {
	if err := i.Set(field, v); err != nil {
		panic(err)
	}
	return i
}

// Get returns a field value and whether the field is set.
func (i *Instance) Get(field string) (any, bool) {
	v, ok := i.values[field]
	return v, ok
}

// Value returns a field value, or nil when unset.
func (i *Instance) Value(field string) any {
	return i.values[field]
}

// Unset removes a field value.
func (i *Instance) Unset(field string) {
	delete(i.values, field)
}

// PK returns the primary key value, or nil when unset.
func (i *Instance) PK() any {
	pk := i.model.PK()
	if pk == nil {
		return nil
	}
	return i.values[pk.Name]
}

// SetPK assigns the primary key value directly, bypassing coercion. Used by
// the executor to write driver-assigned ids back after an insert.
func (i *Instance) SetPK(v any) {
	if pk := i.model.PK(); pk != nil {
		i.values[pk.Name] = v
	}
}

// HasPK reports whether the primary key holds a usable value.
func (i *Instance) HasPK() bool {
	v := i.PK()
	if v == nil {
		return false
	}
	if oid, ok := v.(bson.ObjectID); ok {
		return !oid.IsZero()
	}
	return true
}

// Fields returns the names of the set fields in declaration order.
func (i *Instance) Fields() []string {
	names := make([]string, 0, len(i.values))
	for _, f := range i.model.Fields {
		if _, ok := i.values[f.Name]; ok {
			names = append(names, f.Name)
		}
	}
	return names
}

// Extra returns any unknown wire fields preserved during decoding.
func (i *Instance) Extra() bson.D { return i.extra }

func (i *Instance) String() string {
	return fmt.Sprintf("%s(%v)", i.model.Name, i.PK())
}

// coerce normalizes v to the canonical in-memory representation for f, so
// that encode/decode round trips compare equal.
func coerce(f *schema.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind {
	case schema.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, badType(f, v)
		}
		return s, nil
	case schema.KindInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		}
		return nil, badType(f, v)
	case schema.KindFloat:
		switch n := v.(type) {
		case float32:
			return float64(n), nil
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
		return nil, badType(f, v)
	case schema.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, badType(f, v)
		}
		return b, nil
	case schema.KindTime:
		t, ok := v.(time.Time)
		if !ok {
			return nil, badType(f, v)
		}
		return t, nil
	case schema.KindObjectID:
		switch id := v.(type) {
		case bson.ObjectID:
			return id, nil
		case string:
			oid, err := bson.ObjectIDFromHex(id)
			if err != nil {
				return nil, badType(f, v)
			}
			return oid, nil
		}
		return nil, badType(f, v)
	case schema.KindList:
		items, ok := v.([]any)
		if !ok {
			return nil, badType(f, v)
		}
		out := make([]any, len(items))
		for idx, item := range items {
			nv, err := coerce(f.Elem, item)
			if err != nil {
				return nil, err
			}
			out[idx] = nv
		}
		return out, nil
	case schema.KindEmbedded:
		inst, ok := v.(*Instance)
		if !ok {
			return nil, badType(f, v)
		}
		if inst.model.Name != f.Ref {
			return nil, badType(f, v)
		}
		return inst, nil
	case schema.KindReference:
		// Either the referenced instance itself, its raw primary key, or a
		// BrokenRef sentinel. All three are legal field states.
		return v, nil
	default:
		return nil, badType(f, v)
	}
}

func badType(f *schema.Field, v any) error {
	return &ValidationError{
		Field:      f.Name,
		Constraint: fmt.Sprintf("type %s", f.Kind),
		Value:      v,
	}
}
