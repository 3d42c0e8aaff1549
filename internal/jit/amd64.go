//go:build amd64

// Code generator for the x86-64 backend.
//
// Register assignment (fixed, never reallocated):
//
//	r10 - tape pointer (the data pointer register)
//	r11 - *Target (passed to vtable calls as the `self` argument)
//	r12 - vtable pointer
//	r13 - scratch, used by add/sub to hold a 64-bit cell offset
package jit

import "encoding/binary"

const retByte = 0xc3

func fillWithRet(addr uintptr, size int) {
	buf := regionBytes(addr, size)
	for i := range buf {
		buf[i] = retByte
	}
}

// flushInstructionCache is a no-op on x86-64: instruction and data
// caches are coherent automatically.
func flushInstructionCache(addr uintptr, size int) {}

func emitWrapper(content []byte) []byte {
	var b []byte
	b = calleeSaveToStack(b)

	// mov r10, rdi (tape pointer, 1st arg)
	b = append(b, 0x49, 0x89, 0xfa)
	// mov r11, rsi (*Target, 2nd arg)
	b = append(b, 0x49, 0x89, 0xf3)
	// mov r12, rdx (vtable, 3rd arg)
	b = append(b, 0x49, 0x89, 0xd4)

	b = append(b, content...)

	// mov rax, r10 (return the possibly-updated tape pointer)
	b = append(b, 0x4c, 0x89, 0xd0)

	b = calleeRestoreFromStack(b)
	b = append(b, retByte)
	return b
}

func calleeSaveToStack(b []byte) []byte {
	return append(b,
		0x53,       // push rbx
		0x55,       // push rbp
		0x57,       // push rdi
		0x56,       // push rsi
		0x54,       // push rsp
		0x41, 0x54, // push r12
		0x41, 0x55, // push r13
		0x41, 0x56, // push r14
		0x41, 0x57, // push r15
	)
}

func calleeRestoreFromStack(b []byte) []byte {
	return append(b,
		0x41, 0x5f, // pop r15
		0x41, 0x5e, // pop r14
		0x41, 0x5d, // pop r13
		0x41, 0x5c, // pop r12
		0x5c,       // pop rsp
		0x5e,       // pop rsi
		0x5f,       // pop rdi
		0x5d,       // pop rbp
		0x5b,       // pop rbx
	)
}

func emitIncr(n byte) []byte {
	// add BYTE PTR [r10], n
	return []byte{0x41, 0x80, 0x02, n}
}

func emitDecr(n byte) []byte {
	// sub BYTE PTR [r10], n
	return []byte{0x41, 0x80, 0x2a, n}
}

func emitNext(n uint32) []byte {
	b := []byte{0x49, 0x81, 0xc2} // add r10, n
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], n)
	return append(b, buf[:]...)
}

func emitPrev(n uint32) []byte {
	b := []byte{0x49, 0x81, 0xea} // sub r10, n
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], n)
	return append(b, buf[:]...)
}

func emitSet(v byte) []byte {
	// mov BYTE PTR [r10], v
	return []byte{0x41, 0xc6, 0x02, v}
}

func fnCallPre() []byte {
	return []byte{
		0x41, 0x52, // push r10
		0x41, 0x53, // push r11
		0x41, 0x54, // push r12
	}
}

func fnCallPost() []byte {
	return []byte{
		0x41, 0x5c, // pop r12
		0x41, 0x5b, // pop r11
		0x41, 0x5a, // pop r10
	}
}

// vtable index: 0 jit_callback, 1 read, 2 print.
func callVTableEntry(index byte) []byte {
	// call QWORD PTR [r12+index*8]
	return []byte{0x41, 0xff, 0x54, 0x24, index * 8}
}

func emitPrint() []byte {
	var b []byte
	b = append(b, fnCallPre()...)
	// mov rdi, r11
	b = append(b, 0x4c, 0x89, 0xdf)
	// movzx rsi, BYTE PTR [r10]
	b = append(b, 0x49, 0x0f, 0xb6, 0x32)
	b = append(b, callVTableEntry(vtablePrint)...)
	b = append(b, fnCallPost()...)
	return b
}

func emitRead() []byte {
	var b []byte
	b = append(b, fnCallPre()...)
	// mov rdi, r11
	b = append(b, 0x4c, 0x89, 0xdf)
	b = append(b, callVTableEntry(vtableRead)...)
	b = append(b, fnCallPost()...)
	// mov BYTE PTR [r10], al
	b = append(b, 0x41, 0x88, 0x02)
	return b
}

func emitAddTo(offset int64) []byte {
	return emitBulkOp(offset, 0x00) // add BYTE PTR [r10+r13], al
}

func emitSubFrom(offset int64) []byte {
	return emitBulkOp(offset, 0x28) // sub BYTE PTR [r10+r13], al
}

// emitBulkOp shares the add/sub shape: load the current cell into AL,
// load offset into r13, apply opByte (add=0x00, sub=0x28) against
// [r10+r13], then zero the source cell.
func emitBulkOp(offset int64, opByte byte) []byte {
	var b []byte
	// movzx eax, BYTE PTR [r10]
	b = append(b, 0x41, 0x0f, 0xb6, 0x02)
	// movabs r13, offset
	b = append(b, 0x49, 0xbd)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(offset))
	b = append(b, buf[:]...)
	// {add,sub} BYTE PTR [r10+r13], al
	b = append(b, 0x43, opByte, 0x04, 0x2a)
	// mov BYTE PTR [r10], 0
	b = append(b, 0x41, 0xc6, 0x02, 0x00)
	return b
}

func emitMulAddTo(offset int64, factor byte) []byte {
	var b []byte
	// movzx eax, BYTE PTR [r10]
	b = append(b, 0x41, 0x0f, 0xb6, 0x02)
	// imul eax, eax, factor
	b = append(b, 0x6b, 0xc0, factor)
	// movabs r13, offset
	b = append(b, 0x49, 0xbd)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(offset))
	b = append(b, buf[:]...)
	// add BYTE PTR [r10+r13], al
	b = append(b, 0x43, 0x00, 0x04, 0x2a)
	// mov BYTE PTR [r10], 0
	b = append(b, 0x41, 0xc6, 0x02, 0x00)
	return b
}

func emitCopyTo(offsets []int64) []byte {
	var b []byte
	// movzx eax, BYTE PTR [r10] -- loaded once, reused for every target
	b = append(b, 0x41, 0x0f, 0xb6, 0x02)
	for _, offset := range offsets {
		// movabs r13, offset
		b = append(b, 0x49, 0xbd)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(offset))
		b = append(b, buf[:]...)
		// add BYTE PTR [r10+r13], al
		b = append(b, 0x43, 0x00, 0x04, 0x2a)
	}
	// mov BYTE PTR [r10], 0
	b = append(b, 0x41, 0xc6, 0x02, 0x00)
	return b
}

func emitAOTLoop(inner []byte) []byte {
	var b []byte
	innerLen := int32(len(inner))
	const endLoopSize = 10 // bytes: cmp(4) + jne(6) below the inner body
	forward := innerLen + endLoopSize

	// cmp BYTE PTR [r10], 0x0
	b = append(b, 0x41, 0x80, 0x3a, 0x00)
	// je forward
	var fbuf [4]byte
	binary.LittleEndian.PutUint32(fbuf[:], uint32(forward))
	b = append(b, 0x0f, 0x84)
	b = append(b, fbuf[:]...)

	b = append(b, inner...)

	// cmp BYTE PTR [r10], 0x0
	b = append(b, 0x41, 0x80, 0x3a, 0x00)
	// jne -forward
	var bbuf [4]byte
	binary.LittleEndian.PutUint32(bbuf[:], uint32(-forward))
	b = append(b, 0x0f, 0x85)
	b = append(b, bbuf[:]...)
	return b
}

func emitJITLoop(id promiseID) []byte {
	var b []byte
	// push r11 ; push r12
	b = append(b, 0x41, 0x53, 0x41, 0x54)
	// mov rdi, r11 (*Target)
	b = append(b, 0x4c, 0x89, 0xdf)
	// movabs rsi, id (zero-extended)
	b = append(b, 0x48, 0xbe)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	b = append(b, buf[:]...)
	// mov rdx, r10 (tape pointer)
	b = append(b, 0x4c, 0x89, 0xd2)
	b = append(b, callVTableEntry(vtableJITCallback)...)
	// mov r10, rax (updated tape pointer)
	b = append(b, 0x49, 0x89, 0xc2)
	// pop r12 ; pop r11
	b = append(b, 0x41, 0x5c, 0x41, 0x5b)
	return b
}
