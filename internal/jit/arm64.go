//go:build arm64

// Code generator for the AArch64 backend.
//
// Register assignment (fixed, never reallocated):
//
//	x19 - tape pointer (the data pointer register), callee-saved
//	x20 - *Target, callee-saved
//	x21 - vtable pointer, callee-saved
//	x8, x9, x10 - scratch, used by bulk ops and offset materialization
package jit

import "encoding/binary"

var retBytes = [4]byte{0xc0, 0x03, 0x5f, 0xd6} // ret (0xd65f03c0, little-endian)

func fillWithRet(addr uintptr, size int) {
	buf := regionBytes(addr, size)
	for i := 0; i+4 <= len(buf); i += 4 {
		copy(buf[i:i+4], retBytes[:])
	}
}

// flushInstructionCache ensures icache coherence after writing new
// instructions, required on ARM unlike x86. JIT-written pages need an
// explicit flush the Go runtime doesn't know to perform; the
// maintenance sequence lives in arm64_asm_arm64.s.
func flushInstructionCache(addr uintptr, size int) {
	clearCacheARM64(addr, addr+uintptr(size))
}

func emitU32(b []byte, instr uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], instr)
	return append(b, buf[:]...)
}

func encodeSignedImm9(offset int64) uint32 {
	return (uint32(offset) & 0x1FF) << 12
}

func loadImmediateX9(b []byte, value int64) []byte {
	v := uint64(value)
	b = emitU32(b, 0xd2800009|(uint32(v&0xFFFF)<<5)) // movz x9, #lo16
	if v > 0xFFFF || value < 0 {
		b = emitU32(b, 0xf2a00009|(uint32((v>>16)&0xFFFF)<<5)) // movk x9, lsl #16
	}
	if v > 0xFFFFFFFF || value < 0 {
		b = emitU32(b, 0xf2c00009|(uint32((v>>32)&0xFFFF)<<5)) // movk x9, lsl #32
	}
	if value < 0 {
		b = emitU32(b, 0xf2e00009|(uint32((v>>48)&0xFFFF)<<5)) // movk x9, lsl #48
	}
	return b
}

func calleeSaveToStack(b []byte) []byte {
	b = emitU32(b, 0xa9bf7bfd) // stp x29, x30, [sp, #-16]!
	b = emitU32(b, 0xa9bf53f3) // stp x19, x20, [sp, #-16]!
	b = emitU32(b, 0xa9bf5bf5) // stp x21, x22, [sp, #-16]!
	b = emitU32(b, 0x910003fd) // mov x29, sp
	return b
}

func calleeRestoreFromStack(b []byte) []byte {
	b = emitU32(b, 0xa8c15bf5) // ldp x21, x22, [sp], #16
	b = emitU32(b, 0xa8c153f3) // ldp x19, x20, [sp], #16
	b = emitU32(b, 0xa8c17bfd) // ldp x29, x30, [sp], #16
	return b
}

func emitWrapper(content []byte) []byte {
	var b []byte
	b = calleeSaveToStack(b)
	b = emitU32(b, 0xaa0003f3) // mov x19, x0 (tape pointer)
	b = emitU32(b, 0xaa0103f4) // mov x20, x1 (*Target)
	b = emitU32(b, 0xaa0203f5) // mov x21, x2 (vtable)

	b = append(b, content...)

	b = emitU32(b, 0xaa1303e0) // mov x0, x19 (return updated tape pointer)
	b = calleeRestoreFromStack(b)
	b = append(b, retBytes[:]...)
	return b
}

func emitIncr(n byte) []byte {
	var b []byte
	b = emitU32(b, 0x39400268)              // ldrb w8, [x19]
	b = emitU32(b, 0x11000108|(uint32(n)<<10)) // add w8, w8, #n
	b = emitU32(b, 0x39000268)              // strb w8, [x19]
	return b
}

func emitDecr(n byte) []byte {
	var b []byte
	b = emitU32(b, 0x39400268)              // ldrb w8, [x19]
	b = emitU32(b, 0x51000108|(uint32(n)<<10)) // sub w8, w8, #n
	b = emitU32(b, 0x39000268)              // strb w8, [x19]
	return b
}

func emitNext(n uint32) []byte {
	var b []byte
	if n <= 4095 {
		return emitU32(b, 0x91000273|(n<<10)) // add x19, x19, #n
	}
	b = loadImmediateN(b, uint64(n))
	b = emitU32(b, 0x8b080273) // add x19, x19, x8
	return b
}

func emitPrev(n uint32) []byte {
	var b []byte
	if n <= 4095 {
		return emitU32(b, 0xd1000273|(n<<10)) // sub x19, x19, #n
	}
	b = loadImmediateN(b, uint64(n))
	b = emitU32(b, 0xcb080273) // sub x19, x19, x8
	return b
}

// loadImmediateN materializes a large Next/Prev count into x8.
func loadImmediateN(b []byte, n uint64) []byte {
	b = emitU32(b, 0xd2800008|(uint32(n&0xFFFF)<<5))
	if n > 0xFFFF {
		b = emitU32(b, 0xf2a00008|(uint32((n>>16)&0xFFFF)<<5))
	}
	if n > 0xFFFFFFFF {
		b = emitU32(b, 0xf2c00008|(uint32((n>>32)&0xFFFF)<<5))
	}
	return b
}

func emitSet(v byte) []byte {
	var b []byte
	b = emitU32(b, 0x52800008|(uint32(v)<<5)) // mov w8, #v
	b = emitU32(b, 0x39000268)                // strb w8, [x19]
	return b
}

func fnCallPre() []byte {
	var b []byte
	b = emitU32(b, 0xa9bf53f3) // stp x19, x20, [sp, #-16]!
	b = emitU32(b, 0xf81f0ff5) // str x21, [sp, #-16]!
	return b
}

func fnCallPost() []byte {
	var b []byte
	b = emitU32(b, 0xf84107f5) // ldr x21, [sp], #16
	b = emitU32(b, 0xa8c153f3) // ldp x19, x20, [sp], #16
	return b
}

// vtable index: 0 jit_callback, 1 read, 2 print.
func callVTableEntry(index uint32) []byte {
	var b []byte
	offset := index * 8
	// ldr x8, [x21, #offset]
	b = emitU32(b, 0xf9400008|(21<<5)|((offset/8)<<10))
	// blr x8
	b = emitU32(b, 0xd63f0100)
	return b
}

func emitPrint() []byte {
	var b []byte
	b = append(b, fnCallPre()...)
	b = emitU32(b, 0xaa1403e0)               // mov x0, x20
	b = emitU32(b, 0x39400261)               // ldrb w1, [x19]
	b = append(b, callVTableEntry(vtablePrint)...)
	b = append(b, fnCallPost()...)
	return b
}

func emitRead() []byte {
	var b []byte
	b = append(b, fnCallPre()...)
	b = emitU32(b, 0xaa1403e0) // mov x0, x20
	b = append(b, callVTableEntry(vtableRead)...)
	b = append(b, fnCallPost()...)
	b = emitU32(b, 0x39000260) // strb w0, [x19]
	return b
}

// combineAtOffset shares the add/sub/multiply-add/copy-to shape:
// load the value at [x19+offset] (in-range via ldrb/ldurb or, for a
// large offset, via an x9-materialized register-indexed load), add w8 to
// it or subtract w8 from it, and store it back the same way. addOp
// selects the add (0x0b080129) or sub (0x4b080129) encoding.
func combineAtOffset(b []byte, offset int64, addOp bool) []byte {
	combine := uint32(0x0b080129) // add w9, w9, w8
	if !addOp {
		combine = 0x4b080129 // sub w9, w9, w8
	}

	if offset < -256 || offset > 255 {
		b = loadImmediateX9(b, offset)
		b = emitU32(b, 0x38696a6a) // ldrb w10, [x19, x9]
		combineReg := uint32(0x0b08014a)
		if !addOp {
			combineReg = 0x4b08014a
		}
		b = emitU32(b, combineReg) // {add,sub} w10, w10, w8
		b = emitU32(b, 0x38296a6a) // strb w10, [x19, x9]
		return b
	}

	var loadEncoded uint32
	if offset >= 0 {
		loadEncoded = 0x39400269 | (uint32(offset) << 10) // ldrb w9, [x19, #offset]
	} else {
		loadEncoded = 0x38400269 | encodeSignedImm9(offset) // ldurb w9, [x19, #offset]
	}
	b = emitU32(b, loadEncoded)
	b = emitU32(b, combine)

	var storeEncoded uint32
	if offset >= 0 && offset <= 4095 {
		storeEncoded = 0x39000269 | (uint32(offset) << 10) // strb w9, [x19, #offset]
	} else {
		storeEncoded = 0x38000269 | encodeSignedImm9(offset) // sturb w9, [x19, #offset]
	}
	b = emitU32(b, storeEncoded)
	return b
}

func emitAddTo(offset int64) []byte {
	var b []byte
	b = emitU32(b, 0x39400268) // ldrb w8, [x19]
	b = combineAtOffset(b, offset, true)
	b = emitU32(b, 0x3900027f) // strb wzr, [x19]
	return b
}

func emitSubFrom(offset int64) []byte {
	var b []byte
	b = emitU32(b, 0x39400268) // ldrb w8, [x19]
	b = combineAtOffset(b, offset, false)
	b = emitU32(b, 0x3900027f) // strb wzr, [x19]
	return b
}

func emitMulAddTo(offset int64, factor byte) []byte {
	var b []byte
	b = emitU32(b, 0x39400268)                  // ldrb w8, [x19]
	b = emitU32(b, 0x52800009|(uint32(factor)<<5)) // mov w9, #factor
	b = emitU32(b, 0x1b097d08)                  // mul w8, w8, w9
	b = combineAtOffset(b, offset, true)
	b = emitU32(b, 0x3900027f) // strb wzr, [x19]
	return b
}

func emitCopyTo(offsets []int64) []byte {
	var b []byte
	b = emitU32(b, 0x39400268) // ldrb w8, [x19]
	for _, offset := range offsets {
		b = combineAtOffset(b, offset, true)
	}
	b = emitU32(b, 0x3900027f) // strb wzr, [x19]
	return b
}

func emitAOTLoop(inner []byte) []byte {
	var b []byte
	b = emitU32(b, 0x39400268) // ldrb w8, [x19]

	skipOffset := uint32(len(inner)/4 + 2)
	b = emitU32(b, 0x34000008|(skipOffset<<5)) // cbz w8, end_label

	b = append(b, inner...)

	b = emitU32(b, 0x39400268) // ldrb w8, [x19]
	loopOffset := -(int32(len(b))/4 - 1)
	b = emitU32(b, 0x35000008|((uint32(loopOffset)&0x7FFFF)<<5)) // cbnz w8, loop_start
	return b
}

func emitJITLoop(id promiseID) []byte {
	var b []byte
	b = emitU32(b, 0xa9bf57f4) // stp x20, x21, [sp, #-16]!
	b = emitU32(b, 0xaa1403e0) // mov x0, x20

	v := uint64(id)
	b = emitU32(b, 0xd2800001|(uint32(v&0xFFFF)<<5)) // movz x1, #(id & 0xffff)
	if v > 0xFFFF {
		b = emitU32(b, 0xf2a00001|(uint32((v>>16)&0xFFFF)<<5)) // movk x1, lsl #16
	}

	b = emitU32(b, 0xaa1303e2) // mov x2, x19 (tape pointer)
	b = append(b, callVTableEntry(vtableJITCallback)...)
	b = emitU32(b, 0xaa0003f3) // mov x19, x0 (updated tape pointer)
	b = emitU32(b, 0xa8c157f4) // ldp x20, x21, [sp], #16
	return b
}
