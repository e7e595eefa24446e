//go:build unix

package rawio

import (
	"golang.org/x/sys/unix"
)

func mapFile(f *File, size int, writable bool) ([]byte, func([]byte) error, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.OS().Fd()), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, unix.Munmap, nil
}

func mapAnon(size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	hugePages(data)
	return data, unix.Munmap, nil
}

func madvise(data []byte, advice Advice) error {
	var a int
	switch advice {
	case AdviceSequential:
		a = unix.MADV_SEQUENTIAL
	case AdviceRandom:
		a = unix.MADV_RANDOM
	case AdviceWillNeed:
		a = unix.MADV_WILLNEED
	case AdviceDontNeed:
		a = unix.MADV_DONTNEED
	default:
		a = unix.MADV_NORMAL
	}
	err := unix.Madvise(data, a)
	if err == unix.EINVAL {
		// unaligned or unsupported range
		return nil
	}
	return err
}
