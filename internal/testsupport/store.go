package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"setbreak/internal/config"
	"setbreak/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewTrack catalogs a track for tests and returns its id. The format is taken
// from the path extension.
func NewTrack(t testing.TB, st *store.Store, path, band, showDate string) int64 {
	t.Helper()

	ext := filepath.Ext(path)
	if ext != "" {
		ext = ext[1:]
	}
	res, err := st.UpsertTrack(context.Background(), store.Track{
		Path:        path,
		Format:      ext,
		Fingerprint: "fp-" + filepath.Base(path),
		Band:        band,
		ShowDate:    showDate,
	})
	if err != nil {
		t.Fatalf("store.UpsertTrack: %v", err)
	}
	return res.ID
}
