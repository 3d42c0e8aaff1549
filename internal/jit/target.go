package jit

import (
	"sentrabf/internal/ir"
)

// inlineThreshold splits loops between the two compilation strategies:
// bodies below this IR length compile AOT inline; larger ones defer to
// the promise pool as an indirect callback. Small loops amortize the
// callback cost poorly; large bodies amortize it well and push their
// compile time out to first execution.
const inlineThreshold = 22

// Target owns one page-aligned buffer of executable bytes produced by
// the code generator, plus a back-reference to the engine for promise
// pool access and host I/O callbacks. Targets are append-only: once
// bytes are marked executable they are never rewritten.
type Target struct {
	region *Region
	engine *Engine
}

// newTopTarget builds the top-level target: emit_wrapper(shallow_compile(body)).
func newTopTarget(engine *Engine, body []ir.Node) (*Target, error) {
	inner, err := shallowCompile(engine, body)
	if err != nil {
		return nil, err
	}
	return newTargetFromCode(engine, emitWrapper(inner))
}

// newFragmentTarget compiles a deferred loop body's own standalone
// entry point on first call: emit_wrapper(emit_aot_loop(shallow_compile(body))).
func newFragmentTarget(engine *Engine, body []ir.Node) (*Target, error) {
	inner, err := shallowCompile(engine, body)
	if err != nil {
		return nil, err
	}
	return newTargetFromCode(engine, emitWrapper(emitAOTLoop(inner)))
}

func newTargetFromCode(engine *Engine, code []byte) (*Target, error) {
	region, err := NewRegion(code)
	if err != nil {
		return nil, err
	}
	return &Target{region: region, engine: engine}, nil
}

// shallowCompile lowers one layer of IR to machine code. Nested loop
// bodies either recurse (AOT, below inlineThreshold) or register
// themselves in the promise pool and become emitJITLoop call sites.
func shallowCompile(engine *Engine, nodes []ir.Node) ([]byte, error) {
	var out []byte
	for _, n := range nodes {
		switch n.Op {
		case ir.Incr:
			out = append(out, emitIncr(n.Byte)...)
		case ir.Decr:
			out = append(out, emitDecr(n.Byte)...)
		case ir.Next:
			out = append(out, emitNext(uint32(n.Count))...)
		case ir.Prev:
			out = append(out, emitPrev(uint32(n.Count))...)
		case ir.Set:
			out = append(out, emitSet(n.Byte)...)
		case ir.Print:
			out = append(out, emitPrint()...)
		case ir.Read:
			out = append(out, emitRead()...)
		case ir.AddTo:
			out = append(out, emitAddTo(int64(n.Offset))...)
		case ir.SubFrom:
			out = append(out, emitSubFrom(int64(n.Offset))...)
		case ir.MulAddTo:
			out = append(out, emitMulAddTo(int64(n.Offset), n.Factor)...)
		case ir.CopyTo:
			out = append(out, emitCopyTo(toInt64Offsets(n.Offsets))...)
		case ir.Loop:
			if ir.Len(n.Body) < inlineThreshold {
				compiled, err := shallowCompile(engine, n.Body)
				if err != nil {
					return nil, err
				}
				out = append(out, emitAOTLoop(compiled)...)
			} else {
				id, err := engine.pool.add(n.Body)
				if err != nil {
					return nil, err
				}
				out = append(out, emitJITLoop(id)...)
			}
		}
	}
	return out, nil
}

func toInt64Offsets(offsets []int16) []int64 {
	out := make([]int64, len(offsets))
	for i, o := range offsets {
		out[i] = int64(o)
	}
	return out
}

// jitCallback is the hot-path trampoline behind vtable slot 0: take the
// promise, compile it on first entry (remembering the compiled target),
// run it, and put it back. A loop body thus compiles lazily, exactly
// once; every later entry dispatches through a single indirect call.
func (t *Target) jitCallback(id promiseID, tapePtr uintptr) uintptr {
	p := t.engine.pool.take(id)

	var result uintptr
	switch p.state {
	case deferred:
		child, err := newFragmentTarget(t.engine, p.source)
		if err != nil {
			panic(err)
		}
		result = child.exec(tapePtr)
		p.state = compiled
		p.target = child
	case compiled:
		result = p.target.exec(tapePtr)
	}

	t.engine.pool.put(id, p)
	return result
}

// hostPrint writes one byte to the engine's output sink; called by
// JIT-compiled code through vtable slot 2.
func (t *Target) hostPrint(b byte) {
	if err := t.engine.print(b); err != nil {
		panic(err)
	}
}

// hostRead reads one byte from the engine's input source, delivering
// '\n' on EOF; called by JIT-compiled code through vtable slot 1.
func (t *Target) hostRead() byte {
	b, err := t.engine.read()
	if err != nil {
		panic(err)
	}
	return b
}

// exec invokes the target's compiled entry point with the current tape
// pointer, through the native-call trampoline (callJITEntry) that bridges
// Go's calling convention to the host ABI the wrapper expects.
func (t *Target) exec(tapePtr uintptr) uintptr {
	vt := newVTable()
	return callJITEntry(t.region.Addr(), tapePtr, t, &vt)
}

// Close releases the target's executable memory.
func (t *Target) Close() error {
	return t.region.Close()
}
