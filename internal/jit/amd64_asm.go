//go:build amd64

package jit

// trampolineJITCallback, trampolineRead, and trampolinePrint are the
// three ABI bridges emitted code calls through the vtable. Each is
// implemented in amd64_asm_amd64.s: it receives
// arguments in the System-V registers the code generator populates
// (amd64.go's emitPrint/emitRead/emitJITLoop), re-homes them onto the
// stack in Go's calling convention, and calls into the corresponding
// …Dispatch function below.
func trampolineJITCallback()
func trampolineRead()
func trampolinePrint()

func trampolineJITCallbackAddr() uintptr { return funcPC(trampolineJITCallback) }
func trampolineReadAddr() uintptr        { return funcPC(trampolineRead) }
func trampolinePrintAddr() uintptr       { return funcPC(trampolinePrint) }

// callJITEntry bridges the other direction: Go code calling into a raw
// host-ABI function pointer (a compiled Target's wrapper entry point),
// passing arguments the way emit_wrapper expects them (tape pointer,
// *Target, *vtable) and returning the updated tape pointer.
func callJITEntry(fn uintptr, tapePtr uintptr, self *Target, vt *vtable) uintptr

// jitCallbackDispatch, readDispatch, and printDispatch are the Go-side
// halves of the trampolines above, called via the stack-passing
// convention the assembler always targets for plain symbol calls from
// hand-written .s files.
//
//go:nosplit
func jitCallbackDispatch(self *Target, id uint64, tapePtr uintptr) uintptr {
	return self.jitCallback(promiseID(id), tapePtr)
}

//go:nosplit
func readDispatch(self *Target) uint64 {
	return uint64(self.hostRead())
}

//go:nosplit
func printDispatch(self *Target, b uint64) {
	self.hostPrint(byte(b))
}
