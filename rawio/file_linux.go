//go:build linux

package rawio

import (
	"os"

	"golang.org/x/sys/unix"
)

func fallocate(f *os.File, size int64) error {
	return unix.Fallocate(int(f.Fd()), 0, 0, size)
}

func fadvise(f *os.File, off, length int64, advice Advice) error {
	var a int
	switch advice {
	case AdviceSequential:
		a = unix.FADV_SEQUENTIAL
	case AdviceRandom:
		a = unix.FADV_RANDOM
	case AdviceWillNeed:
		a = unix.FADV_WILLNEED
	case AdviceDontNeed:
		a = unix.FADV_DONTNEED
	default:
		a = unix.FADV_NORMAL
	}
	return unix.Fadvise(int(f.Fd()), off, length, a)
}
