package jit

// Vtable entry indices, fixed across both backends. Emitted
// loop/read/print calls resolve the target by loading the slot from the
// vtable register, never by embedding an absolute address, keeping
// compiled code position-independent across targets and across
// multiple engine instances.
const (
	vtableJITCallback = 0
	vtableRead        = 1
	vtablePrint       = 2
)

// vtable is the fixed-order, 3-entry function-pointer array passed as
// the third argument to every JIT entrypoint. Each slot holds the raw
// code address of one of this package's ABI trampolines (amd64_asm.go /
// arm64_asm.go), not a Go func value: the JIT's native code invokes
// these by a plain indirect CALL/BLR, the same way it would call into
// any other C-ABI routine.
type vtable [3]uintptr

func newVTable() vtable {
	return vtable{
		vtableJITCallback: trampolineJITCallbackAddr(),
		vtableRead:        trampolineReadAddr(),
		vtablePrint:       trampolinePrintAddr(),
	}
}
