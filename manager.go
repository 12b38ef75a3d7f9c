package mongomap

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/ilex/mongomap/query"
	"github.com/ilex/mongomap/schema"
)

// Manager is the entry point for one model's storage operations: it pairs
// the model definition with its live collection handle. Managers are cheap
// and stateless; hold one or ask the engine each time.
type Manager struct {
	eng   *Engine
	model *schema.Model
	coll  Collection
}

// Model returns the managed model definition.
func (m *Manager) Model() *schema.Model { return m.model }

// All returns a queryset matching every document.
func (m *Manager) All() *Queryset {
	return &Queryset{mgr: m, q: query.New()}
}

// Find returns a queryset bound to the given query specification.
func (m *Manager) Find(q query.Query) *Queryset {
	return &Queryset{mgr: m, q: q}
}

// Filter is shorthand for All().Filter(expr).
func (m *Manager) Filter(expr bson.M) *Queryset {
	return m.Find(query.New().Filter(expr))
}

// Raw is shorthand for All().Raw(expr).
func (m *Manager) Raw(expr bson.M) *Queryset {
	return m.Find(query.New().Raw(expr))
}

// New returns an empty instance of the managed model.
func (m *Manager) New() *Instance {
	return NewInstance(m.model)
}

// Save persists inst. Without a primary key the document is inserted and the
// driver-assigned id written back; with one, the entire document replaces
// the stored version, upserting if necessary.
func (m *Manager) Save(ctx context.Context, inst *Instance) error {
	doc, err := m.eng.codec.Encode(inst)
	if err != nil {
		return err
	}
	if !inst.HasPK() {
		ids, err := m.coll.InsertMany(ctx, []any{doc})
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			inst.SetPK(ids[0])
		}
		m.eng.log.Debug("insert", zap.String("collection", m.coll.Name()))
		return nil
	}
	if err := m.coll.ReplaceOne(ctx, bson.M{wireID: inst.PK()}, doc); err != nil {
		return err
	}
	m.eng.log.Debug("replace", zap.String("collection", m.coll.Name()))
	return nil
}

// DeleteOne removes inst's document by primary key.
func (m *Manager) DeleteOne(ctx context.Context, inst *Instance) (int64, error) {
	if !inst.HasPK() {
		return 0, &OperationError{Msg: "cannot delete before saving"}
	}
	return m.Raw(bson.M{wireID: inst.PK()}).Delete(ctx)
}

// Refresh reloads inst from the database, overwriting local field values.
// With a non-empty fields list only those fields are reloaded; saving
// afterwards may then revert or unset the rest.
func (m *Manager) Refresh(ctx context.Context, inst *Instance, fields ...string) error {
	if !inst.HasPK() {
		return &OperationError{Msg: "cannot refresh from db before saving"}
	}
	qs := m.Raw(bson.M{wireID: inst.PK()})
	if len(fields) > 0 {
		qs = qs.Only(fields...)
	}
	fresh, err := qs.First(ctx)
	if err != nil {
		return err
	}
	inst.values = fresh.values
	inst.extra = fresh.extra
	return nil
}

// GetByID fetches the single document with the given primary key.
func (m *Manager) GetByID(ctx context.Context, id any) (*Instance, error) {
	return m.All().Get(ctx, bson.M{wireID: id})
}
