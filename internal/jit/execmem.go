package jit

import (
	"unsafe"

	"sentrabf/internal/bferrors"
)

// Region is a page-aligned buffer of host machine code produced by a
// code generator. Regions are append-only: once bytes are marked
// executable they are never rewritten.
type Region struct {
	ptr  uintptr
	size int // page-rounded allocation size
}

// NewRegion rounds source up to the host page size, allocates that many
// pages read-write, pre-fills the tail with the architecture's bare
// return instruction (so a stray jump past emitted code returns
// cleanly), copies source in, flips the region to read-execute, and
// flushes the instruction cache where the architecture requires it.
func NewRegion(source []byte) (*Region, error) {
	pageSize := osPageSize()
	size := roundUpToPage(len(source), pageSize)

	addr, err := osAllocRW(size)
	if err != nil {
		return nil, bferrors.Wrap(bferrors.IO, "failed to allocate executable memory", err)
	}

	fillWithRet(addr, size)
	copyInto(addr, source)

	if err := osProtectRX(addr, size); err != nil {
		_ = osFree(addr, size)
		return nil, bferrors.Wrap(bferrors.IO, "failed to make memory executable", err)
	}

	flushInstructionCache(addr, size)

	return &Region{ptr: addr, size: size}, nil
}

// Addr returns the entry address of the region's code, convertible to
// the JIT entry function-pointer signature by the caller.
func (r *Region) Addr() uintptr {
	return r.ptr
}

// Close unmaps the region. Failure to unmap is fatal.
func (r *Region) Close() error {
	if r.ptr == 0 {
		return nil
	}
	err := osFree(r.ptr, r.size)
	r.ptr = 0
	if err != nil {
		panic(bferrors.Wrap(bferrors.IO, "failed to unmap executable memory", err))
	}
	return nil
}

// memPtr returns the address of a byte slice's backing array, for
// handing the Brainfuck memory buffer to JIT-compiled code as a raw
// tape pointer.
func memPtr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

// regionBytes views a raw allocation as a byte slice, for the
// architecture-specific fillWithRet pre-fill pass.
func regionBytes(addr uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}

func roundUpToPage(n, pageSize int) int {
	if n == 0 {
		return pageSize
	}
	pages := (n + pageSize - 1) / pageSize
	return pages * pageSize
}

// copyInto writes source into the read-write mapping at addr. Must be
// called before the region is flipped to read-execute.
func copyInto(addr uintptr, source []byte) {
	dst := unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(source))
	copy(dst, source)
}
