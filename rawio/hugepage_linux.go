//go:build linux

package rawio

import "golang.org/x/sys/unix"

func hugePages(data []byte) {
	// THP may be disabled system wide; the hint is best effort.
	_ = unix.Madvise(data, unix.MADV_HUGEPAGE)
}
