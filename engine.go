package mongomap

import (
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"

	"github.com/ilex/mongomap/conf"
	"github.com/ilex/mongomap/internal/util"
	"github.com/ilex/mongomap/schema"
)

// Engine binds a model registry to a database and hands out managers. It
// holds the cross-cutting policies: decode behavior for unknown fields,
// broken-reference strictness, and logging. The engine itself is immutable
// after New and safe to share; any real mutual exclusion lives in the
// driver's connection pool underneath.
type Engine struct {
	reg      *schema.Registry
	openColl func(name string) Collection
	codec    *Codec
	log      *zap.Logger

	// strictRefs makes Dereference fail on a missing target instead of
	// leaving a BrokenRef sentinel in the field.
	strictRefs bool

	preserveUnknown bool
}

// Option configures an engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithPreserveUnknown keeps wire fields absent from the schema on decoded
// instances instead of dropping them.
func WithPreserveUnknown() Option {
	return func(e *Engine) { e.preserveUnknown = true }
}

// WithStrictRefs makes dereferencing fail with a BrokenReferenceError when a
// referenced document no longer exists.
func WithStrictRefs() Option {
	return func(e *Engine) { e.strictRefs = true }
}

// WithConfig applies a loaded configuration.
func WithConfig(cfg *conf.Config) Option {
	return func(e *Engine) {
		e.preserveUnknown = cfg.PreserveUnknown
		e.strictRefs = cfg.StrictRefs
		if cfg.LogLevel != "" {
			e.log = util.NewLogger(cfg.LogJSON, cfg.LogLevel)
		}
	}
}

// New returns an engine over a connected database handle.
func New(db *mongo.Database, reg *schema.Registry, opts ...Option) *Engine {
	open := func(name string) Collection {
		return WrapCollection(db.Collection(name))
	}
	return NewWithOpener(open, reg, opts...)
}

// NewWithOpener returns an engine that obtains collection handles through
// open. This is the seam tests and alternative transports plug into.
func NewWithOpener(open func(name string) Collection, reg *schema.Registry, opts ...Option) *Engine {
	e := &Engine{reg: reg, openColl: open, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.codec = NewCodec(reg, e.preserveUnknown)
	return e
}

// Registry returns the engine's model registry.
func (e *Engine) Registry() *schema.Registry { return e.reg }

// Codec returns the engine's document codec.
func (e *Engine) Codec() *Codec { return e.codec }

// Manager returns the manager for the named model.
func (e *Engine) Manager(model string) (*Manager, error) {
	m, err := e.reg.Lookup(model)
	if err != nil {
		return nil, err
	}
	if m.Embedded {
		return nil, &schema.DefinitionError{Model: model, Detail: "embedded models have no collection"}
	}
	return &Manager{eng: e, model: m, coll: e.openColl(m.Collection)}, nil
}

// MustManager is Manager, panicking on error.
func (e *Engine) MustManager(model string) *Manager {
	m, err := e.Manager(model)
	if err != nil {
		panic(err)
	}
	return m
}
