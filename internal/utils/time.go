package utils

import (
	"time"
)

// EpochMillis returns milliseconds since the Unix epoch.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
