// Package repository persists the account registry: user records and
// refresh tokens in MySQL. Session state (conversation, usage, memory)
// is not stored here; that lives in the key-value store owned by the
// session package.
package repository

import "errors"

// ErrEmailExists is returned when registration collides with an
// existing account. Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a lookup matches no row. Handlers
// translate it into HTTP 404 or 401 depending on the operation.
var ErrNotFound = errors.New("not found")
