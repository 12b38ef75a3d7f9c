package schema

import (
	"fmt"
	"sync"
)

// DefinitionError reports an invalid model definition.
type DefinitionError struct {
	Model  string
	Detail string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("schema: model %s: %s", e.Model, e.Detail)
}

// Registry maps model names to their definitions. It has two phases: a define
// phase at startup, and a read-only phase thereafter. Definitions are never
// replaced or mutated once registered.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Model
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*Model)}
}

// Define registers a top-level model. If no field is flagged as the primary
// key, a synthetic ObjectID field named "id" is injected at the front;
// either way the primary key travels under "_id" on the wire.
func (r *Registry) Define(name string, fields []*Field, opts ...ModelOption) (*Model, error) {
	m := &Model{Name: name, Fields: append([]*Field(nil), fields...)}
	for _, opt := range opts {
		opt(m)
	}
	if m.Collection == "" {
		m.Collection = snakeCase(name)
	}

	hasPK := false
	for _, f := range m.Fields {
		if f.PrimaryKey {
			hasPK = true
			break
		}
	}
	if !hasPK {
		m.Fields = append([]*Field{ObjectID("id", PrimaryKey())}, m.Fields...)
	}

	if err := m.index(); err != nil {
		return nil, err
	}
	return m, r.add(m)
}

// DefineEmbedded registers a model stored inline inside parent documents.
// Embedded models have no collection and no primary key.
func (r *Registry) DefineEmbedded(name string, fields []*Field, opts ...ModelOption) (*Model, error) {
	m := &Model{Name: name, Embedded: true, Fields: append([]*Field(nil), fields...)}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.index(); err != nil {
		return nil, err
	}
	return m, r.add(m)
}

// MustDefine is Define, panicking on error. Meant for package-level model
// declarations evaluated once at startup.
func (r *Registry) MustDefine(name string, fields []*Field, opts ...ModelOption) *Model {
	m, err := r.Define(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// MustDefineEmbedded is DefineEmbedded, panicking on error.
func (r *Registry) MustDefineEmbedded(name string, fields []*Field, opts ...ModelOption) *Model {
	m, err := r.DefineEmbedded(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (r *Registry) add(m *Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.models[m.Name]; dup {
		return &DefinitionError{Model: m.Name, Detail: "already defined"}
	}
	r.models[m.Name] = m
	return nil
}

// Lookup returns the named model definition.
func (r *Registry) Lookup(name string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	if !ok {
		return nil, &DefinitionError{Model: name, Detail: "not defined"}
	}
	return m, nil
}

// Models returns the registered model names. Order is unspecified.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	return names
}
