package schema

// Kind identifies the declared type of a field.
type Kind int

const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
	KindBool
	KindTime
	KindObjectID
	KindList
	KindEmbedded
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindObjectID:
		return "objectid"
	case KindList:
		return "list"
	case KindEmbedded:
		return "embedded"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Field describes a single declared field of a model. Fields are built with
// the constructor functions below and must not be mutated after the owning
// model has been defined.
type Field struct {
	Name string
	Kind Kind

	// Elem is the element schema for KindList fields.
	Elem *Field

	// Ref names the target model for KindEmbedded and KindReference fields.
	Ref string

	Required   bool
	PrimaryKey bool
	Unique     bool

	// MaxLength bounds KindString values. Zero means unbounded.
	MaxLength int

	// Min and Max bound KindInt and KindFloat values when set.
	Min *float64
	Max *float64
}

// Option configures a field at construction time.
type Option func(*Field)

// Required marks the field as mandatory during encoding.
func Required() Option {
	return func(f *Field) { f.Required = true }
}

// PrimaryKey marks the field as the model's primary key. It is stored under
// the "_id" key on the wire.
func PrimaryKey() Option {
	return func(f *Field) { f.PrimaryKey = true }
}

// Unique records a uniqueness intent for the field. Enforcement happens at
// the storage layer through a unique index, not in the codec.
func Unique() Option {
	return func(f *Field) { f.Unique = true }
}

// MaxLength bounds the length of a string field.
func MaxLength(n int) Option {
	return func(f *Field) { f.MaxLength = n }
}

// Min sets the lower bound for a numeric field.
func Min(v float64) Option {
	return func(f *Field) { f.Min = &v }
}

// Max sets the upper bound for a numeric field.
func Max(v float64) Option {
	return func(f *Field) { f.Max = &v }
}

func newField(name string, kind Kind, opts []Option) *Field {
	f := &Field{Name: name, Kind: kind}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// String declares a string field.
func String(name string, opts ...Option) *Field {
	return newField(name, KindString, opts)
}

// Int declares an integer field. Values are normalized to int64.
func Int(name string, opts ...Option) *Field {
	return newField(name, KindInt, opts)
}

// Float declares a float64 field.
func Float(name string, opts ...Option) *Field {
	return newField(name, KindFloat, opts)
}

// Bool declares a boolean field.
func Bool(name string, opts ...Option) *Field {
	return newField(name, KindBool, opts)
}

// Time declares a time.Time field.
func Time(name string, opts ...Option) *Field {
	return newField(name, KindTime, opts)
}

// ObjectID declares a bson.ObjectID field.
func ObjectID(name string, opts ...Option) *Field {
	return newField(name, KindObjectID, opts)
}

// List declares an ordered list field. elem describes the element type; its
// name is ignored.
func List(name string, elem *Field, opts ...Option) *Field {
	f := newField(name, KindList, opts)
	f.Elem = elem
	return f
}

// Embedded declares a field holding an instance of the named embedded model,
// stored inline in the parent document.
func Embedded(name, model string, opts ...Option) *Field {
	f := newField(name, KindEmbedded, opts)
	f.Ref = model
	return f
}

// Reference declares a field holding the primary key of a document in the
// named model's collection. References are never resolved automatically.
func Reference(name, model string, opts ...Option) *Field {
	f := newField(name, KindReference, opts)
	f.Ref = model
	return f
}
