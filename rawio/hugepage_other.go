//go:build unix && !linux

package rawio

func hugePages([]byte) {}
