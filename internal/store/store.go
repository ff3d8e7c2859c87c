// Package store provides the durable key-value store the session
// manager mirrors its state into, along with the fixed key layout.
// The production implementation is Redis; tests substitute an
// in-memory map.
package store

import (
	"context"
	"fmt"
	"time"
)

// KV is the minimal key-value contract the session manager needs.
// Get reports found=false for missing keys; implementations must not
// treat a missing key as an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// keyPrefix namespaces every session key in the shared store.
const keyPrefix = "socialai"

// UserRecordKey holds the serialized user of the one active session.
func UserRecordKey() string {
	return keyPrefix + ":user-record"
}

// ConversationKey holds the ordered message log for a user.
func ConversationKey(userID string) string {
	return fmt.Sprintf("%s:conversations:%s", keyPrefix, userID)
}

// UsageKey holds the generation count for a user on one calendar day.
// The date is the caller's local calendar date at the moment of read,
// which is what makes the counter roll over at midnight with no reset
// job.
func UsageKey(userID string, day time.Time) string {
	return fmt.Sprintf("%s:usage:%s:%s", keyPrefix, userID, day.Format("2006-01-02"))
}

// MemoryKey holds the bounded memory log for a user.
func MemoryKey(userID string) string {
	return fmt.Sprintf("%s:memory:%s", keyPrefix, userID)
}
