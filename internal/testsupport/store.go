package testsupport

import (
	"context"
	"testing"

	"outloud/internal/config"
	"outloud/internal/library"
)

// MustOpenStore opens a library.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewItem creates a queued text item for tests using the provided store.
func NewItem(t testing.TB, store *library.Store, title string) *library.Item {
	t.Helper()

	item, err := store.NewItem(context.Background(), library.NewItemParams{
		Title:      title,
		SourceType: library.SourceText,
		Voice:      "af_heart",
	})
	if err != nil {
		t.Fatalf("store.NewItem: %v", err)
	}
	return item
}
