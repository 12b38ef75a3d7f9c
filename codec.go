package mongomap

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ilex/mongomap/schema"
)

// wireID is the document key every primary key travels under, whatever the
// field is called in the model.
const wireID = "_id"

// Codec converts between instances and wire-level bson documents. It owns
// field validation on the way out and type mapping on the way in, and never
// performs I/O itself.
type Codec struct {
	reg *schema.Registry

	// preserveUnknown keeps wire fields absent from the schema on the decoded
	// instance instead of dropping them.
	preserveUnknown bool
}

// NewCodec returns a codec resolving embedded model names against reg.
func NewCodec(reg *schema.Registry, preserveUnknown bool) *Codec {
	return &Codec{reg: reg, preserveUnknown: preserveUnknown}
}

// Encode validates inst field by field in declaration order and produces its
// wire document. The first constraint violation aborts with a
// *ValidationError; nothing is written anywhere.
func (c *Codec) Encode(inst *Instance) (bson.D, error) {
	m := inst.Model()
	doc := make(bson.D, 0, len(m.Fields)+len(inst.extra))

	for _, f := range m.Fields {
		v, ok := inst.Get(f.Name)
		if !ok || v == nil {
			if f.Required {
				return nil, &ValidationError{Model: m.Name, Field: f.Name, Constraint: "required"}
			}
			continue
		}
		if err := c.checkConstraints(m, f, v); err != nil {
			return nil, err
		}
		wv, err := c.encodeValue(m, f, v)
		if err != nil {
			return nil, err
		}
		key := f.Name
		if f.PrimaryKey {
			key = wireID
		}
		doc = append(doc, bson.E{Key: key, Value: wv})
	}

	doc = append(doc, inst.extra...)
	return doc, nil
}

func (c *Codec) checkConstraints(m *schema.Model, f *schema.Field, v any) error {
	switch f.Kind {
	case schema.KindString:
		s, _ := v.(string)
		if f.MaxLength > 0 && len(s) > f.MaxLength {
			return &ValidationError{Model: m.Name, Field: f.Name, Constraint: fmt.Sprintf("max length %d", f.MaxLength), Value: v}
		}
	case schema.KindInt, schema.KindFloat:
		var n float64
		switch t := v.(type) {
		case int64:
			n = float64(t)
		case float64:
			n = t
		}
		if f.Min != nil && n < *f.Min {
			return &ValidationError{Model: m.Name, Field: f.Name, Constraint: fmt.Sprintf("min %v", *f.Min), Value: v}
		}
		if f.Max != nil && n > *f.Max {
			return &ValidationError{Model: m.Name, Field: f.Name, Constraint: fmt.Sprintf("max %v", *f.Max), Value: v}
		}
	}
	return nil
}

func (c *Codec) encodeValue(m *schema.Model, f *schema.Field, v any) (any, error) {
	switch f.Kind {
	case schema.KindEmbedded:
		child, ok := v.(*Instance)
		if !ok {
			return nil, &ValidationError{Model: m.Name, Field: f.Name, Constraint: "embedded " + f.Ref, Value: v}
		}
		return c.Encode(child)

	case schema.KindList:
		items, ok := v.([]any)
		if !ok {
			return nil, &ValidationError{Model: m.Name, Field: f.Name, Constraint: "list", Value: v}
		}
		out := make(bson.A, len(items))
		for idx, item := range items {
			wv, err := c.encodeValue(m, f.Elem, item)
			if err != nil {
				return nil, err
			}
			out[idx] = wv
		}
		return out, nil

	case schema.KindReference:
		// References flatten to the referenced primary key. Documents embed
		// at most one level of another document this way: never the full
		// target, only its id.
		switch ref := v.(type) {
		case *Instance:
			if !ref.HasPK() {
				return nil, &ValidationError{Model: m.Name, Field: f.Name, Constraint: "referenced " + f.Ref + " has no primary key", Value: ref}
			}
			return ref.PK(), nil
		case BrokenRef:
			return ref.ID, nil
		default:
			return v, nil
		}

	default:
		return v, nil
	}
}

// Decode converts a raw driver document into an instance of model. Decoding
// is permissive: wire fields missing from the schema are preserved opaquely
// or dropped per the configured policy, never an error.
func (c *Codec) Decode(model *schema.Model, raw bson.D) (*Instance, error) {
	inst := NewInstance(model)

	for _, elem := range raw {
		f := model.Field(elem.Key)
		if f == nil && elem.Key == wireID {
			f = model.PK()
		}
		if f == nil {
			if c.preserveUnknown {
				inst.extra = append(inst.extra, elem)
			}
			continue
		}
		v, err := c.decodeValue(model, f, elem.Value)
		if err != nil {
			return nil, err
		}
		inst.values[f.Name] = v
	}
	return inst, nil
}

func (c *Codec) decodeValue(m *schema.Model, f *schema.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind {
	case schema.KindEmbedded:
		doc, err := asDoc(v)
		if err != nil {
			return nil, decodeErr(m, f, v)
		}
		child, err := c.reg.Lookup(f.Ref)
		if err != nil {
			return nil, err
		}
		return c.Decode(child, doc)

	case schema.KindList:
		var items []any
		switch arr := v.(type) {
		case bson.A:
			items = arr
		case []any:
			items = arr
		default:
			return nil, decodeErr(m, f, v)
		}
		out := make([]any, len(items))
		for idx, item := range items {
			dv, err := c.decodeValue(m, f.Elem, item)
			if err != nil {
				return nil, err
			}
			out[idx] = dv
		}
		return out, nil

	case schema.KindReference:
		// The raw primary key stays in place until Dereference resolves it.
		return v, nil

	case schema.KindTime:
		if dt, ok := v.(bson.DateTime); ok {
			return dt.Time(), nil
		}
		return coerce(f, v)

	default:
		return coerce(f, v)
	}
}

func asDoc(v any) (bson.D, error) {
	switch doc := v.(type) {
	case bson.D:
		return doc, nil
	case bson.M:
		out := make(bson.D, 0, len(doc))
		for k, dv := range doc {
			out = append(out, bson.E{Key: k, Value: dv})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("mongomap: not a document: %T", v)
	}
}

func decodeErr(m *schema.Model, f *schema.Field, v any) error {
	return &ValidationError{Model: m.Name, Field: f.Name, Constraint: "decode " + f.Kind.String(), Value: v}
}

// translateFilter rewrites the model's primary-key field name to the wire
// "_id" key throughout a filter document, so callers can filter on the field
// name they declared.
func translateFilter(model *schema.Model, filter bson.M) bson.M {
	pk := model.PK()
	if pk == nil || pk.Name == wireID {
		return filter
	}
	out := make(bson.M, len(filter))
	for k, v := range filter {
		key := k
		if k == pk.Name {
			key = wireID
		}
		out[key] = translateFilterValue(pk.Name, v)
	}
	return out
}

func translateFilterValue(pkName string, v any) any {
	switch val := v.(type) {
	case bson.M:
		out := make(bson.M, len(val))
		for k, vv := range val {
			key := k
			if k == pkName {
				key = wireID
			}
			out[key] = translateFilterValue(pkName, vv)
		}
		return out
	case bson.A:
		out := make(bson.A, len(val))
		for i, item := range val {
			out[i] = translateFilterValue(pkName, item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = translateFilterValue(pkName, item)
		}
		return out
	default:
		return v
	}
}
