package mongomap

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ilex/mongomap/schema"
)

// Iter is a lazy, single-pass sequence of decoded instances backed by a
// server-side cursor. Each Next call suspends until the next document or
// batch arrives. An Iter has exactly one logical owner; it cannot be shared
// or restarted.
type Iter struct {
	cur   Cursor
	codec *Codec
	model *schema.Model

	inst *Instance
	err  error
}

// Next advances to the next document, decoding it into an instance. It
// returns false at the end of the result set or on error; check Err after
// the loop.
func (it *Iter) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if !it.cur.Next(ctx) {
		return false
	}
	var raw bson.D
	if err := it.cur.Decode(&raw); err != nil {
		it.err = err
		return false
	}
	inst, err := it.codec.Decode(it.model, raw)
	if err != nil {
		it.err = err
		return false
	}
	it.inst = inst
	return true
}

// Value returns the instance decoded by the last successful Next.
func (it *Iter) Value() *Instance { return it.inst }

// Err returns the first error hit while iterating or decoding.
func (it *Iter) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.cur.Err()
}

// Close releases the server-side cursor. Safe to call more than once.
func (it *Iter) Close(ctx context.Context) error {
	return it.cur.Close(ctx)
}
