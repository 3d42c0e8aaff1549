//go:build arm64

package jit

// trampolineJITCallback, trampolineRead, and trampolinePrint are the
// AArch64 ABI bridges emitted code calls through the vtable, mirroring
// amd64_asm.go. clearCacheARM64 issues the DC CVAU / IC IVAU cache
// maintenance sequence over [start, end) so newly written instructions
// are visible to the instruction fetch unit.
func trampolineJITCallback()
func trampolineRead()
func trampolinePrint()
func clearCacheARM64(start, end uintptr)

func trampolineJITCallbackAddr() uintptr { return funcPC(trampolineJITCallback) }
func trampolineReadAddr() uintptr        { return funcPC(trampolineRead) }
func trampolinePrintAddr() uintptr       { return funcPC(trampolinePrint) }

// callJITEntry bridges the other direction: Go code calling into a raw
// host-ABI function pointer (a compiled Target's wrapper entry point).
func callJITEntry(fn uintptr, tapePtr uintptr, self *Target, vt *vtable) uintptr

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
