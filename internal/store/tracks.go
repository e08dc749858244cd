package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"setbreak/internal/services"
)

const trackColumns = `id, path, format, size_bytes, modified_at, fingerprint, band, show_date,
	venue, disc_number, track_number, set_name, title, tag_artist, tag_album, created_at, updated_at`

// detailTables lists the per-track event tables cleared with an analysis row.
var detailTables = []string{"track_chords", "track_segments", "track_tension_points", "track_transitions"}

// UpsertTrack inserts or refreshes a cataloged file keyed by path. When the
// fingerprint of an existing track changes, its analysis results are dropped
// so the file becomes pending again.
func (s *Store) UpsertTrack(ctx context.Context, track Track) (UpsertResult, error) {
	if strings.TrimSpace(track.Path) == "" {
		return UpsertResult{}, services.Wrap(services.ErrValidation, "store", "upsert track", "path is required", nil)
	}
	var result UpsertResult
	now := formatTime(time.Now())
	err := s.inTx(ctx, "upsert track", func(tx *sql.Tx) error {
		result = UpsertResult{}
		var (
			id          int64
			fingerprint sql.NullString
		)
		err := tx.QueryRowContext(ctx, "SELECT id, fingerprint FROM tracks WHERE path = ?", track.Path).Scan(&id, &fingerprint)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(ctx, `INSERT INTO tracks (
				path, format, size_bytes, modified_at, fingerprint, band, show_date, venue,
				disc_number, track_number, set_name, title, tag_artist, tag_album, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				track.Path, track.Format, track.SizeBytes, nullableTime(track.ModifiedAt),
				nullableString(track.Fingerprint), nullableString(track.Band), nullableString(track.ShowDate),
				nullableString(track.Venue), nullableInt(track.DiscNumber), nullableInt(track.TrackNumber),
				nullableString(track.SetName), nullableString(track.Title), nullableString(track.TagArtist),
				nullableString(track.TagAlbum), now, now,
			)
			if err != nil {
				return fmt.Errorf("insert track: %w", err)
			}
			if result.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("track id: %w", err)
			}
			result.Created = true
			return nil
		case err != nil:
			return fmt.Errorf("lookup track: %w", err)
		}

		result.ID = id
		result.Changed = fingerprint.Valid && track.Fingerprint != "" && fingerprint.String != track.Fingerprint
		if _, err := tx.ExecContext(ctx, `UPDATE tracks SET
				format = ?, size_bytes = ?, modified_at = ?, fingerprint = ?, band = ?, show_date = ?,
				venue = ?, disc_number = ?, track_number = ?, set_name = ?, title = ?, tag_artist = ?,
				tag_album = ?, updated_at = ?
			WHERE id = ?`,
			track.Format, track.SizeBytes, nullableTime(track.ModifiedAt), nullableString(track.Fingerprint),
			nullableString(track.Band), nullableString(track.ShowDate), nullableString(track.Venue),
			nullableInt(track.DiscNumber), nullableInt(track.TrackNumber), nullableString(track.SetName),
			nullableString(track.Title), nullableString(track.TagArtist), nullableString(track.TagAlbum),
			now, id,
		); err != nil {
			return fmt.Errorf("update track: %w", err)
		}
		if result.Changed {
			return deleteAnalysis(ctx, tx, id)
		}
		return nil
	})
	return result, err
}

func deleteAnalysis(ctx context.Context, tx *sql.Tx, trackID int64) error {
	for _, table := range detailTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE track_id = ?", trackID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM analysis_runs WHERE track_id = ?", trackID); err != nil {
		return fmt.Errorf("clear analysis run: %w", err)
	}
	return nil
}

// Pending returns the tracks that still need analysis, in id order: tracks
// without an analysis row, or every track when force is set. A non-empty
// filter keeps only paths containing it, ignoring case.
func (s *Store) Pending(ctx context.Context, force bool, filter string) ([]TrackRef, error) {
	var (
		where []string
		args  []any
	)
	if !force {
		where = append(where, "NOT EXISTS (SELECT 1 FROM analysis_runs a WHERE a.track_id = t.id)")
	}
	if filter = strings.TrimSpace(filter); filter != "" {
		where = append(where, "instr(lower(t.path), ?) > 0")
		args = append(args, strings.ToLower(filter))
	}
	query := "SELECT t.id, t.path, t.format FROM tracks t"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("pending", err)
	}
	defer rows.Close()

	var refs []TrackRef
	for rows.Next() {
		var ref TrackRef
		if err := rows.Scan(&ref.ID, &ref.Path, &ref.Format); err != nil {
			return nil, storageErr("pending", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("pending", err)
	}
	return refs, nil
}

// TrackByID fetches a track. A missing track yields services.ErrNotFound.
func (s *Store) TrackByID(ctx context.Context, id int64) (*Track, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+trackColumns+" FROM tracks WHERE id = ?", id)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "track", fmt.Sprintf("track %d", id), nil)
	}
	if err != nil {
		return nil, storageErr("track", err)
	}
	return track, nil
}

// TrackByPath fetches a track by its absolute path.
func (s *Store) TrackByPath(ctx context.Context, path string) (*Track, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+trackColumns+" FROM tracks WHERE path = ?", path)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "track", path, nil)
	}
	if err != nil {
		return nil, storageErr("track", err)
	}
	return track, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(scanner rowScanner) (*Track, error) {
	var (
		track                                   Track
		modifiedAt, fingerprint, band, showDate sql.NullString
		venue, setName, title, artist, album    sql.NullString
		discNumber, trackNumber                 sql.NullInt64
		createdAt, updatedAt                    string
	)
	if err := scanner.Scan(
		&track.ID, &track.Path, &track.Format, &track.SizeBytes, &modifiedAt, &fingerprint,
		&band, &showDate, &venue, &discNumber, &trackNumber, &setName, &title, &artist, &album,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	track.ModifiedAt = parseTimeString(modifiedAt.String)
	track.Fingerprint = fingerprint.String
	track.Band = band.String
	track.ShowDate = showDate.String
	track.Venue = venue.String
	track.DiscNumber = int(discNumber.Int64)
	track.TrackNumber = int(trackNumber.Int64)
	track.SetName = setName.String
	track.Title = title.String
	track.TagArtist = artist.String
	track.TagAlbum = album.String
	track.CreatedAt = parseTimeString(createdAt)
	track.UpdatedAt = parseTimeString(updatedAt)
	return &track, nil
}
