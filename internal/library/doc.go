// Package library defines the item record (one article moving through the
// pipeline from source to audio) and its SQLite-backed store.
//
// The store is the single source of truth for item state. Stage transitions
// are decided by the pipeline package and persisted here; every mutation bumps
// updated_at, and partial updates are applied atomically per item so a
// concurrent reader never observes mixed old/new field values.
package library
