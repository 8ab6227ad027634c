// Package clock provides the wall-clock source used for inode
// atime/mtime/ctime, honoring SOURCE_DATE_EPOCH so persister and inode
// tests can build reproducible fixtures.
package clock

import (
	"os"
	"strconv"
	"time"
)

// Now returns the current time in UTC, or the time fixed by SOURCE_DATE_EPOCH
// when that environment variable is set to a valid Unix timestamp.
func Now() time.Time {
	if epoch := os.Getenv("SOURCE_DATE_EPOCH"); epoch != "" {
		if ts, err := strconv.ParseInt(epoch, 10, 64); err == nil {
			return time.Unix(ts, 0).UTC()
		}
	}
	return time.Now().UTC()
}
