package jit

import (
	"sentrabf/internal/bferrors"
	"sentrabf/internal/ir"
)

// promiseID is the stable 16-bit identifier emitted literally into
// machine code at a deferred-loop call site. Once issued, an ID is
// never reassigned.
type promiseID uint16

// maxPromises bounds the pool to the 16-bit ID space a promiseID can
// address.
const maxPromises = 1 << 16

// promiseState distinguishes a deferred loop body from one that has
// already been compiled once.
type promiseState int

const (
	deferred promiseState = iota
	compiled
)

// promise is one pool entry: either a captured IR body awaiting its
// first entry, or a reusable compiled target.
type promise struct {
	state  promiseState
	source []ir.Node // always populated, even once compiled, for add()'s dedup scan
	target *Target   // populated once state == compiled
}

// promisePool is the ordered, dedup-enforced container of promises. A
// slot is nil only transiently while its promise is checked out during
// jitCallback; the take/put discipline guarantees a slot is never
// observed in an inconsistent state.
type promisePool struct {
	entries []*promise
}

// add returns the ID of an existing promise with a structurally equal
// body, or appends a new Deferred promise and returns its fresh ID. A
// checked-out (nil) slot is skipped during the scan: it cannot match,
// since a Brainfuck loop body can never contain itself.
func (p *promisePool) add(body []ir.Node) (promiseID, error) {
	for i, entry := range p.entries {
		if entry == nil {
			continue
		}
		if ir.Equal(entry.source, body) {
			return promiseID(i), nil
		}
	}

	if len(p.entries) >= maxPromises {
		return 0, bferrors.NewCompile("promise pool exhausted: more than 65536 distinct large loop bodies")
	}

	p.entries = append(p.entries, &promise{state: deferred, source: body})
	return promiseID(len(p.entries) - 1), nil
}

// take removes and returns the entry at id, leaving the slot nil. The
// caller must put() it back before any other caller may observe it
// again; this is never a problem in practice since Brainfuck has no
// recursion and the pool is accessed from a single thread.
func (p *promisePool) take(id promiseID) *promise {
	entry := p.entries[id]
	if entry == nil {
		panic("jit: promise pool slot checked out twice; this is a bug in the JIT, not a Brainfuck program")
	}
	p.entries[id] = nil
	return entry
}

// put writes an entry back after execution.
func (p *promisePool) put(id promiseID, entry *promise) {
	p.entries[id] = entry
}

// close releases every compiled promise's executable memory. Deferred
// entries own no machine code yet and need no release.
func (p *promisePool) close() error {
	var firstErr error
	for _, entry := range p.entries {
		if entry == nil || entry.state != compiled {
			continue
		}
		if err := entry.target.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
