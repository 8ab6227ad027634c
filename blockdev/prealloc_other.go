//go:build !unix

package blockdev

import "os"

// preallocate falls back to a plain truncate on non-unix platforms, where
// fallocate/flock have no portable equivalent.
func preallocate(f *os.File, size int64) error {
	return f.Truncate(size)
}
