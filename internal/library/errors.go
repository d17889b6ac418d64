package library

import "errors"

// ErrNotFound is returned when an operation references an unknown item id.
var ErrNotFound = errors.New("item not found")

// ErrNotReady is returned when a completion flag is requested for an item
// that has no playable audio yet.
var ErrNotReady = errors.New("item not ready")
