// Package jit implements the template-based, lazily-compiling
// Just-In-Time engine: a per-architecture native code generator, an
// executable-memory allocator, a promise pool that deduplicates loop
// bodies deferred for later compilation, and the callback ABI stitching
// deferred fragments back into the caller.
//
// Everything here must produce the same observable output stream and
// final memory state as internal/interp for the same program and
// input; parity_test.go checks that directly.
package jit

import (
	"io"

	"sentrabf/internal/bferrors"
	"sentrabf/internal/ir"
	"sentrabf/internal/tape"
)

// Engine is one running program's JIT execution context: the host
// reader/writer and the promise pool shared by every target compiled
// over the program's lifetime. The pool is local to one Engine
// instance.
type Engine struct {
	pool   promisePool
	reader io.Reader
	writer io.Writer
	mem    []byte
}

// New compiles body's top-level target eagerly; loop bodies at or above
// inlineThreshold are registered as deferred promises and compiled
// lazily on first entry. The returned Target is the program's entry
// point for Run.
func New(body []ir.Node, reader io.Reader, writer io.Writer) (*Engine, *Target, error) {
	engine := &Engine{
		reader: reader,
		writer: writer,
		mem:    make([]byte, tape.InitialSize),
	}

	top, err := newTopTarget(engine, body)
	if err != nil {
		return nil, nil, err
	}
	return engine, top, nil
}

// Run enters the compiled top-level target against a freshly zeroed
// memory buffer. Fatal conditions raised by the host callbacks (I/O
// errors) surface as a returned error rather than a process panic.
func (e *Engine) Run(top *Target) (err error) {
	defer func() {
		if r := recover(); r == nil {
			return
		} else if be, ok := r.(*bferrors.Error); ok {
			err = be
		} else {
			panic(r)
		}
	}()

	for i := range e.mem {
		e.mem[i] = 0
	}
	tapePtr := memPtr(e.mem)
	top.exec(tapePtr)
	return nil
}

// Close releases the executable memory held by every compiled promise in
// the engine's pool. The top-level target is owned by the caller of New
// and closed separately, after the pool.
func (e *Engine) Close() error {
	return e.pool.close()
}

// Mem exposes the memory buffer left by the most recent Run, for parity
// checks against the interpreter's final tape state.
func (e *Engine) Mem() []byte {
	return e.mem
}

// print writes one byte to the engine's output sink.
func (e *Engine) print(b byte) error {
	if _, err := e.writer.Write([]byte{b}); err != nil {
		return bferrors.Wrap(bferrors.IO, "write failed", err)
	}
	return nil
}

// read consumes one byte from the engine's input source. EOF delivers
// '\n' rather than propagating as an error.
func (e *Engine) read() (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(e.reader, buf[:])
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return '\n', nil
		}
		return 0, bferrors.Wrap(bferrors.IO, "read failed", err)
	}
	return buf[0], nil
}
