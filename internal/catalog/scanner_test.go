package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"setbreak/internal/catalog"
	"setbreak/internal/config"
	"setbreak/internal/logging"
	"setbreak/internal/services"
	"setbreak/internal/testsupport"
)

func TestScannerCatalogsLibrary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	lib := cfg.Paths.LibraryDir
	sig := testsupport.DefaultSignal()
	sig.Seconds = 0.5
	showDir := filepath.Join(lib, "Grateful Dead", "1977-05-08 Barton Hall")
	first := filepath.Join(showDir, "d1t01 - Scarlet Begonias.wav")
	testsupport.WriteSignal(t, first, sig)
	testsupport.WriteSignal(t, filepath.Join(showDir, "d1t02 - Fire on the Mountain.wav"), sig)
	compact := filepath.Join(lib, "ph1997-11-22t04.wav")
	testsupport.WriteSignal(t, compact, sig)
	testsupport.WriteSignal(t, filepath.Join(lib, ".trash", "old.wav"), sig)
	if err := os.WriteFile(filepath.Join(showDir, "info.txt"), []byte("lineage"), 0o644); err != nil {
		t.Fatalf("write info: %v", err)
	}

	scanner := catalog.NewScanner(cfg, st, logging.NewNop())
	res, err := scanner.Scan(ctx, []string{lib}, false)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if res.Scanned != 3 || res.New != 3 || res.Errors != 0 {
		t.Fatalf("unexpected first scan result: %+v", res)
	}

	track, err := st.TrackByPath(ctx, first)
	if err != nil {
		t.Fatalf("TrackByPath returned error: %v", err)
	}
	if track.Band != "Grateful Dead" || track.ShowDate != "1977-05-08" || track.Venue != "Barton Hall" {
		t.Fatalf("unexpected show metadata: %+v", track)
	}
	if track.DiscNumber != 1 || track.TrackNumber != 1 || track.Title != "Scarlet Begonias" {
		t.Fatalf("unexpected track metadata: %+v", track)
	}
	if track.Format != "wav" || track.Fingerprint == "" || track.SizeBytes == 0 {
		t.Fatalf("unexpected file metadata: %+v", track)
	}
	if track.ShowKey() != "Grateful Dead|1977-05-08" {
		t.Fatalf("ShowKey = %q", track.ShowKey())
	}

	phish, err := st.TrackByPath(ctx, compact)
	if err != nil {
		t.Fatalf("TrackByPath returned error: %v", err)
	}
	if phish.Band != "Phish" || phish.ShowDate != "1997-11-22" || phish.TrackNumber != 4 {
		t.Fatalf("unexpected compact metadata: %+v", phish)
	}

	pending, err := st.Pending(ctx, false, "")
	if err != nil {
		t.Fatalf("Pending returned error: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending tracks, got %d", len(pending))
	}

	res, err = scanner.Scan(ctx, []string{lib}, false)
	if err != nil {
		t.Fatalf("rescan returned error: %v", err)
	}
	if res.Skipped != 3 || res.New != 0 || res.Updated != 0 {
		t.Fatalf("unchanged files should be skipped: %+v", res)
	}

	sig.Seconds = 0.75
	testsupport.WriteSignal(t, first, sig)
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(first, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	res, err = scanner.Scan(ctx, []string{lib}, false)
	if err != nil {
		t.Fatalf("scan after edit returned error: %v", err)
	}
	if res.Updated != 1 || res.Changed != 1 || res.Skipped != 2 {
		t.Fatalf("edited file should be updated with a new fingerprint: %+v", res)
	}

	res, err = scanner.Scan(ctx, []string{lib}, true)
	if err != nil {
		t.Fatalf("forced scan returned error: %v", err)
	}
	if res.Updated != 3 || res.Changed != 0 || res.Skipped != 0 {
		t.Fatalf("forced scan should refresh every file: %+v", res)
	}
}

func TestScannerRejectsMissingRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	scanner := catalog.NewScanner(cfg, st, logging.NewNop())
	_, err := scanner.Scan(context.Background(), []string{filepath.Join(cfg.Paths.LibraryDir, "missing")}, false)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestScannerUsesConfiguredBands(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	cfg.Bands = append(cfg.Bands, config.Band{Name: "Goose", Aliases: []string{"gs"}})
	path := filepath.Join(cfg.Paths.LibraryDir, "gs2019-10-31t05.wav")
	sig := testsupport.DefaultSignal()
	sig.Seconds = 0.25
	testsupport.WriteSignal(t, path, sig)

	scanner := catalog.NewScanner(cfg, st, logging.NewNop())
	if _, err := scanner.Scan(ctx, []string{path}, false); err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	track, err := st.TrackByPath(ctx, path)
	if err != nil {
		t.Fatalf("TrackByPath returned error: %v", err)
	}
	if track.Band != "Goose" || track.ShowDate != "2019-10-31" || track.TrackNumber != 5 {
		t.Fatalf("unexpected metadata: %+v", track)
	}
}

func TestFingerprintTracksContentAndSize(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.flac")
	b := filepath.Join(dir, "b.flac")
	writeBytes(t, a, make([]byte, 4096))
	writeBytes(t, b, make([]byte, 4096))

	fa := mustFingerprint(t, a)
	if fb := mustFingerprint(t, b); fa != fb {
		t.Fatalf("identical content should match: %s vs %s", fa, fb)
	}

	edited := make([]byte, 4096)
	edited[100] = 1
	writeBytes(t, b, edited)
	if fb := mustFingerprint(t, b); fa == fb {
		t.Fatal("content change not detected")
	}

	// Bytes past the hashed prefix only count through the size.
	big := make([]byte, (1<<20)+10)
	writeBytes(t, a, big)
	bigger := make([]byte, (1<<20)+20)
	writeBytes(t, b, bigger)
	if mustFingerprint(t, a) == mustFingerprint(t, b) {
		t.Fatal("size change not detected")
	}
}

func writeBytes(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mustFingerprint(t *testing.T, path string) string {
	t.Helper()
	fp, err := catalog.Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint returned error: %v", err)
	}
	return fp
}
