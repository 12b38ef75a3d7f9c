package mongomap

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/ilex/mongomap/query"
	"github.com/ilex/mongomap/schema"
)

// pendingRef is one reference field occurrence waiting for its target.
type pendingRef struct {
	model  string
	key    any
	rawID  any
	assign func(any)
}

// DereferenceOne resolves the reference fields of a single instance. See
// Dereference.
func (e *Engine) DereferenceOne(ctx context.Context, inst *Instance, fields ...string) error {
	return e.Dereference(ctx, []*Instance{inst}, fields...)
}

// Dereference walks the declared reference fields of the given instances,
// including those nested in embedded documents and lists, and substitutes
// resolved instances for the raw primary keys held in them. Identifiers are
// grouped by referenced model, so the call issues at most one lookup query
// per distinct referenced model no matter how many instances or fields
// point at it.
//
// fields, when non-empty, restricts resolution to the named paths (dot
// notation for nested fields). A reference whose target document no longer
// exists is filled with a BrokenRef sentinel, or fails with a
// BrokenReferenceError when the engine runs with WithStrictRefs.
//
// Dereference mutates the instances passed in; already-resolved fields are
// left alone.
func (e *Engine) Dereference(ctx context.Context, instances []*Instance, fields ...string) error {
	pending := make(map[string][]pendingRef)
	for _, inst := range instances {
		e.findRefs(inst, "", fields, pending)
	}
	if len(pending) == 0 {
		return nil
	}

	for modelName, refs := range pending {
		resolved, err := e.lookupRefs(ctx, modelName, refs)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			target, ok := resolved[ref.key]
			if !ok {
				if e.strictRefs {
					return &BrokenReferenceError{Model: ref.model, ID: ref.rawID}
				}
				ref.assign(BrokenRef{Model: ref.model, ID: ref.rawID})
				continue
			}
			ref.assign(target)
		}
	}
	return nil
}

// findRefs walks one instance, recording every unresolved reference under
// its referenced model name.
func (e *Engine) findRefs(inst *Instance, prefix string, selected []string, pending map[string][]pendingRef) {
	for _, f := range inst.Model().Fields {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		switch f.Kind {
		case schema.KindReference:
			if !pathSelected(selected, path) {
				continue
			}
			v := inst.Value(f.Name)
			if !isRawRef(v) {
				continue
			}
			name := f.Name
			target := inst
			pending[f.Ref] = append(pending[f.Ref], pendingRef{
				model:  f.Ref,
				key:    normalizeID(v),
				rawID:  v,
				assign: func(resolved any) { target.values[name] = resolved },
			})

		case schema.KindEmbedded:
			if child, ok := inst.Value(f.Name).(*Instance); ok && pathReachable(selected, path) {
				e.findRefs(child, path, selected, pending)
			}

		case schema.KindList:
			items, ok := inst.Value(f.Name).([]any)
			if !ok {
				continue
			}
			switch f.Elem.Kind {
			case schema.KindReference:
				if !pathSelected(selected, path) {
					continue
				}
				for idx, item := range items {
					if !isRawRef(item) {
						continue
					}
					i := idx
					pending[f.Elem.Ref] = append(pending[f.Elem.Ref], pendingRef{
						model:  f.Elem.Ref,
						key:    normalizeID(item),
						rawID:  item,
						assign: func(resolved any) { items[i] = resolved },
					})
				}
			case schema.KindEmbedded:
				if !pathReachable(selected, path) {
					continue
				}
				for _, item := range items {
					if child, ok := item.(*Instance); ok {
						e.findRefs(child, path, selected, pending)
					}
				}
			}
		}
	}
}

// isRawRef reports whether a reference field still holds a raw identifier
// rather than a resolved instance or a broken-reference marker.
func isRawRef(v any) bool {
	if v == nil {
		return false
	}
	switch v.(type) {
	case *Instance, BrokenRef:
		return false
	}
	return true
}

// pathSelected reports whether a reference at path should be resolved.
func pathSelected(selected []string, path string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		if s == path {
			return true
		}
	}
	return false
}

// pathReachable reports whether any selected path runs through an embedded
// field at path, so the walk knows to descend into it.
func pathReachable(selected []string, path string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		if strings.HasPrefix(s, path+".") {
			return true
		}
	}
	return false
}

// lookupRefs issues the one batched lookup for a referenced model and maps
// the results by normalized identifier.
func (e *Engine) lookupRefs(ctx context.Context, modelName string, refs []pendingRef) (map[any]*Instance, error) {
	model, err := e.reg.Lookup(modelName)
	if err != nil {
		return nil, err
	}

	ids := make(bson.A, 0, len(refs))
	seen := make(map[any]bool, len(refs))
	for _, ref := range refs {
		if seen[ref.key] {
			continue
		}
		seen[ref.key] = true
		ids = append(ids, ref.rawID)
	}

	coll := e.openColl(model.Collection)
	cur, err := coll.Find(ctx, bson.M{wireID: bson.M{"$in": ids}}, query.New().FindOptions())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	e.log.Debug("dereference",
		zap.String("collection", model.Collection),
		zap.Int("ids", len(ids)))

	resolved := make(map[any]*Instance, len(ids))
	for cur.Next(ctx) {
		var raw bson.D
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		inst, err := e.codec.Decode(model, raw)
		if err != nil {
			return nil, err
		}
		resolved[normalizeID(inst.PK())] = inst
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return resolved, nil
}
