// Package coordinator provides the serialization primitives shared by
// the scheduling and relationship flows: keyed critical sections, an
// external-call limiter, and a debouncer.
package coordinator

import (
	"fmt"
	"strings"
)

// PairKey returns the canonical lock key for a pair of users. The pair
// is sorted so both orderings contend on the same critical section.
func PairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("rel:%d:%d", a, b)
}

// UserKey returns the lock key for single-owner user operations.
func UserKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

// SyncKey returns the lock key guarding a user's calendar sync runs.
func SyncKey(id uint) string {
	return fmt.Sprintf("sync:%d", id)
}

// keyKind extracts the key prefix for metric labels.
func keyKind(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}
