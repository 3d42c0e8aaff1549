//go:build darwin || linux

package jit

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapFlags varies by platform: macOS enforces W^X strictly on Apple
// Silicon and requires the JIT-enabling allocation flag (MAP_JIT,
// 0x0800) on anonymous mappings that will later turn executable; Linux
// does not.
func mmapFlags() int {
	flags := unix.MAP_ANON | unix.MAP_PRIVATE
	if runtime.GOOS == "darwin" {
		flags |= mapJIT
	}
	return flags
}

// mapJIT is darwin's MAP_JIT (0x0800), not exposed by golang.org/x/sys/unix
// on all platforms, so it is named directly here.
const mapJIT = 0x0800

func osPageSize() int {
	return unix.Getpagesize()
}

func osAllocRW(size int) (uintptr, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, mmapFlags())
	if err != nil {
		return 0, err
	}
	return uintptr(unsafe.Pointer(&data[0])), nil
}

func osProtectRX(addr uintptr, size int) error {
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return unix.Mprotect(data, unix.PROT_READ|unix.PROT_EXEC)
}

func osFree(addr uintptr, size int) error {
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return unix.Munmap(data)
}
