//go:build !linux

package rawio

import (
	"errors"
	"os"
)

var errNoFallocate = errors.New("fallocate not supported")

func fallocate(*os.File, int64) error {
	return errNoFallocate
}

func fadvise(*os.File, int64, int64, Advice) error {
	return nil
}
