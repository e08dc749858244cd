package store

import (
	"time"

	"setbreak/internal/audio"
	"setbreak/internal/features"
	"setbreak/internal/scoring"
)

// Track is a cataloged audio file.
type Track struct {
	ID          int64
	Path        string
	Format      string
	SizeBytes   int64
	ModifiedAt  time.Time
	Fingerprint string
	Band        string
	ShowDate    string
	Venue       string
	DiscNumber  int
	TrackNumber int
	SetName     string
	Title       string
	TagArtist   string
	TagAlbum    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ShowKey groups tracks into a show: band and date when both are known,
// otherwise the date alone. Tracks without a date have no show.
func (t Track) ShowKey() string {
	return showKey(t.Band, t.ShowDate)
}

func showKey(band, date string) string {
	if date == "" {
		return ""
	}
	if band == "" {
		return date
	}
	return band + "|" + date
}

// TrackRef is the narrow track reference handed to the analysis pipeline.
type TrackRef struct {
	ID     int64
	Path   string
	Format string
}

// UpsertResult reports what UpsertTrack did.
type UpsertResult struct {
	ID      int64
	Created bool
	// Changed is set when an existing track's fingerprint differed; its
	// analysis results were discarded.
	Changed bool
}

// AnalysisRun is the persisted result of analyzing one track.
type AnalysisRun struct {
	TrackID    int64
	RunID      string
	Quality    audio.Quality
	AnalyzedAt time.Time
	Record     features.Record
	Details    features.Details
	// Raw holds the formula output; Scores holds the effective, possibly
	// calibrated, values.
	Raw    scoring.JamScores
	Scores scoring.JamScores

	// Band and ShowDate are joined from the track when reading.
	Band     string
	ShowDate string
}

// ShowKey returns the show grouping key for the run's track.
func (r AnalysisRun) ShowKey() string {
	return showKey(r.Band, r.ShowDate)
}

// ScoreDelta overwrites a track's effective scores.
type ScoreDelta struct {
	TrackID int64
	Scores  scoring.JamScores
}

// CalibrationRow is the calibration view of one non-garbage run.
type CalibrationRow struct {
	TrackID int64
	Show    string
	LUFS    *float64
	Raw     scoring.JamScores
}

// CalibrationRecord is one applied calibration.
type CalibrationRecord struct {
	ID            string
	CreatedAt     time.Time
	BaselineLUFS  *float64
	ShowCount     int
	TrackCount    int
	AdjustedCount int
	Slopes        map[string]float64
	Reset         bool
}

// Stats summarizes the database contents.
type Stats struct {
	Tracks      int
	Shows       int
	Bands       int
	TotalBytes  int64
	Analyzed    int
	Pending     int
	ByQuality   map[audio.Quality]int
	Averages    scoring.JamScores
	LastRunAt   *time.Time
	Calibration *CalibrationRecord
}

// TopTrack is one row of a score ranking.
type TopTrack struct {
	TrackID  int64
	Path     string
	Title    string
	Band     string
	ShowDate string
	Duration *float64
	Score    float64
	Scores   scoring.JamScores
}
