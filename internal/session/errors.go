// Package session implements the per-user session state machine:
// the identity store, the daily usage meter, the conversation log and
// the bounded memory log. All four share one key-value store and are
// mirrored to it on every mutation, so a reload observes the same
// state the previous process wrote.
package session

import "errors"

// ErrNotAuthenticated is returned by any operation invoked without a
// current user. It is a checked sentinel, never fatal; handlers
// translate it into a login prompt.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrQuotaExceeded is returned by RecordGeneration once the day's
// limit for the user's tier is spent. Callers are expected to gate on
// CanGenerate first; the error exists so a missed check miscounts
// loudly instead of silently.
var ErrQuotaExceeded = errors.New("daily quota exceeded")
