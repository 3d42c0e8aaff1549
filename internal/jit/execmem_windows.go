//go:build windows

package jit

import (
	"golang.org/x/sys/windows"
)

func osPageSize() int {
	var info windows.SystemInfo
	windows.GetSystemInfo(&info)
	return int(info.PageSize)
}

func osAllocRW(size int) (uintptr, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return 0, err
	}
	return addr, nil
}

func osProtectRX(addr uintptr, size int) error {
	var old uint32
	return windows.VirtualProtect(addr, uintptr(size), windows.PAGE_EXECUTE_READ, &old)
}

func osFree(addr uintptr, size int) error {
	_ = size
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}
