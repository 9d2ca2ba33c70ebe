//go:build linux || darwin

package mmap

import (
	"golang.org/x/sys/unix"
)

// access pattern hints passed to madvise
const (
	adviseRandom     = unix.MADV_RANDOM
	adviseSequential = unix.MADV_SEQUENTIAL
	adviseWillNeed   = unix.MADV_WILLNEED
)

// mapFile maps length bytes of fd from offset 0 as MAP_SHARED, writable
// when requested
func mapFile(fd int, length int, writable bool) ([]byte, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	return unix.Mmap(fd, 0, length, prot, unix.MAP_SHARED)
}

func unmap(b []byte) error {
	return unix.Munmap(b)
}

// advise is a hint; callers ignore failures
func advise(b []byte, advice int) {
	_ = unix.Madvise(b, advice)
}

// flush writes dirty pages of b back to the file and waits for completion
func flush(b []byte) error {
	return unix.Msync(b, unix.MS_SYNC)
}
