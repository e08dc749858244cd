package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"setbreak/internal/config"
	"setbreak/internal/decode"
	"setbreak/internal/logging"
	"setbreak/internal/services"
	"setbreak/internal/store"
)

// TrackStore is the catalog's view of persistence.
type TrackStore interface {
	TrackByPath(ctx context.Context, path string) (*store.Track, error)
	UpsertTrack(ctx context.Context, track store.Track) (store.UpsertResult, error)
}

// Result summarizes a scan.
type Result struct {
	Scanned int
	New     int
	Updated int
	// Changed counts updated tracks whose content fingerprint differed.
	Changed int
	Skipped int
	Errors  int
	Elapsed time.Duration
}

// Scanner catalogs audio files into the store.
type Scanner struct {
	store  TrackStore
	bands  *Registry
	logger *slog.Logger
}

// NewScanner builds a scanner using the configured band registry.
func NewScanner(cfg *config.Config, st TrackStore, logger *slog.Logger) *Scanner {
	var bands []config.Band
	if cfg != nil {
		bands = cfg.Bands
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		store:  st,
		bands:  NewRegistry(bands),
		logger: logging.NewComponentLogger(logger, "catalog"),
	}
}

// Scan walks roots and upserts every supported audio file. Unreadable files
// are counted and skipped; storage errors stop the scan. With force set,
// unchanged files are re-read as well.
func (s *Scanner) Scan(ctx context.Context, roots []string, force bool) (Result, error) {
	start := time.Now()
	var result Result

	files, err := s.collect(ctx, roots, &result)
	if err != nil {
		return result, err
	}
	s.logger.Info("scan started",
		logging.Int("files", len(files)),
		logging.Bool("force", force),
		logging.String(logging.FieldEventType, "scan_started"),
	)

	sampler := logging.NewProgressSampler(10)
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			result.Elapsed = time.Since(start)
			return result, err
		}
		result.Scanned++
		action, err := s.scanFile(ctx, file, force)
		switch {
		case err != nil && errors.Is(err, services.ErrStorage):
			result.Elapsed = time.Since(start)
			return result, err
		case err != nil:
			result.Errors++
			logging.WarnWithContext(s.logger, "file skipped", "scan_file_failed",
				logging.String("path", file.path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file is not cataloged"),
				logging.String(logging.FieldErrorHint, "check the file is readable"),
			)
		default:
			switch action {
			case actionNew:
				result.New++
			case actionUpdated:
				result.Updated++
			case actionChanged:
				result.Updated++
				result.Changed++
			case actionSkipped:
				result.Skipped++
			}
		}
		if sampler.ShouldLog(i+1, len(files)) {
			s.logger.Info("scan progress",
				logging.Int("done", i+1),
				logging.Int("total", len(files)),
				logging.Float64(logging.FieldProgressPercent, logging.Percent(i+1, len(files))),
			)
		}
	}

	result.Elapsed = time.Since(start)
	s.logger.Info("scan completed",
		logging.Int("scanned", result.Scanned),
		logging.Int("new", result.New),
		logging.Int("updated", result.Updated),
		logging.Int("changed", result.Changed),
		logging.Int("skipped", result.Skipped),
		logging.Int("errors", result.Errors),
		logging.Duration("elapsed", result.Elapsed),
		logging.String(logging.FieldEventType, "scan_completed"),
	)
	return result, nil
}

type scanAction int

const (
	actionSkipped scanAction = iota
	actionNew
	actionUpdated
	actionChanged
)

type scanFile struct {
	path string
	// rel is the path below the root's parent, so the root's own name takes
	// part in band and date detection.
	rel string
}

func (s *Scanner) collect(ctx context.Context, roots []string, result *Result) ([]scanFile, error) {
	var files []scanFile
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "catalog", "resolve root", root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "catalog", "stat root", root, err)
		}
		if !info.IsDir() {
			if decode.IsSupported(abs) {
				files = append(files, scanFile{path: abs, rel: filepath.Base(abs)})
			}
			continue
		}
		parent := filepath.Dir(abs)
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				result.Errors++
				s.logger.Debug("walk error", logging.String("path", path), logging.Error(err))
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != abs && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !decode.IsSupported(path) {
				return nil
			}
			rel, relErr := filepath.Rel(parent, path)
			if relErr != nil {
				rel = filepath.Base(path)
			}
			files = append(files, scanFile{path: path, rel: rel})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (s *Scanner) scanFile(ctx context.Context, file scanFile, force bool) (scanAction, error) {
	info, err := os.Stat(file.path)
	if err != nil {
		return actionSkipped, fmt.Errorf("stat: %w", err)
	}

	existing, err := s.store.TrackByPath(ctx, file.path)
	switch {
	case errors.Is(err, services.ErrNotFound):
		existing = nil
	case err != nil:
		return actionSkipped, err
	}
	if existing != nil && !force &&
		existing.SizeBytes == info.Size() && existing.ModifiedAt.Equal(info.ModTime()) {
		return actionSkipped, nil
	}

	fingerprint, err := Fingerprint(file.path)
	if err != nil {
		return actionSkipped, err
	}
	tags, err := ReadTags(file.path)
	if err != nil && !errors.Is(err, errNoTags) {
		s.logger.Debug("tags unreadable", logging.String("path", file.path), logging.Error(err))
	}

	track := s.buildTrack(file, info, fingerprint, tags)
	res, err := s.store.UpsertTrack(ctx, track)
	if err != nil {
		return actionSkipped, err
	}
	switch {
	case res.Created:
		return actionNew, nil
	case res.Changed:
		s.logger.Info("track content changed",
			logging.Int64(logging.FieldTrackID, res.ID),
			logging.String("path", file.path),
			logging.String(logging.FieldEventType, "track_changed"),
		)
		return actionChanged, nil
	default:
		return actionUpdated, nil
	}
}

// buildTrack merges path conventions with tags. The path wins: taper folder
// names are more reliable than tags written by whatever tool transcoded the
// set.
func (s *Scanner) buildTrack(file scanFile, info os.FileInfo, fingerprint string, tags Tags) store.Track {
	parsed := ParsePath(file.rel, s.bands)
	track := store.Track{
		Path:        file.path,
		Format:      string(decode.FormatFromPath(file.path)),
		SizeBytes:   info.Size(),
		ModifiedAt:  info.ModTime(),
		Fingerprint: fingerprint,
		Band:        parsed.Band,
		ShowDate:    firstNonEmpty(parsed.Date, tags.Date),
		Venue:       firstNonEmpty(parsed.Venue, tags.Venue),
		DiscNumber:  firstNonZero(parsed.Disc, tags.Disc),
		TrackNumber: firstNonZero(parsed.Track, tags.Track),
		SetName:     parsed.Set,
		Title:       firstNonEmpty(parsed.Title, tags.Title),
		TagArtist:   tags.Artist,
		TagAlbum:    tags.Album,
	}
	if track.Band == "" && tags.Artist != "" {
		if name, ok := s.bands.Match(tags.Artist); ok {
			track.Band = name
		} else {
			track.Band = tags.Artist
		}
	}
	return track
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
