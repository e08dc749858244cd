package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"setbreak/internal/audio"
	"setbreak/internal/config"
	"setbreak/internal/scoring"
	"setbreak/internal/services"
	"setbreak/internal/store"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the catalog and analysis coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				stats, err := st.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, statsView(stats))
				}
				renderStats(cmd, stats)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

type statsJSON struct {
	Tracks     int               `json:"tracks"`
	Shows      int               `json:"shows"`
	Bands      int               `json:"bands"`
	TotalBytes int64             `json:"total_bytes"`
	Analyzed   int               `json:"analyzed"`
	Pending    int               `json:"pending"`
	ByQuality  map[string]int    `json:"by_quality"`
	Averages   scoring.JamScores `json:"averages"`
	Calibrated bool              `json:"calibrated"`
}

func statsView(s store.Stats) statsJSON {
	byQuality := make(map[string]int, len(s.ByQuality))
	for q, n := range s.ByQuality {
		byQuality[string(q)] = n
	}
	return statsJSON{
		Tracks:     s.Tracks,
		Shows:      s.Shows,
		Bands:      s.Bands,
		TotalBytes: s.TotalBytes,
		Analyzed:   s.Analyzed,
		Pending:    s.Pending,
		ByQuality:  byQuality,
		Averages:   s.Averages,
		Calibrated: s.Calibration != nil && !s.Calibration.Reset,
	}
}

func renderStats(cmd *cobra.Command, s store.Stats) {
	out := cmd.OutOrStdout()
	calibration := "never"
	if c := s.Calibration; c != nil {
		state := "applied"
		if c.Reset {
			state = "reset"
		}
		calibration = fmt.Sprintf("%s %s", state, formatWhen(&c.CreatedAt))
	}
	fmt.Fprintln(out, renderPairs("Library", [][2]string{
		{"Tracks", formatCount(s.Tracks)},
		{"Shows", formatCount(s.Shows)},
		{"Bands", formatCount(s.Bands)},
		{"Size", humanize.IBytes(uint64(max(s.TotalBytes, 0)))},
		{"Analyzed", formatCount(s.Analyzed)},
		{"Pending", formatCount(s.Pending)},
		{"Quality ok / suspect / garbage", fmt.Sprintf("%d / %d / %d",
			s.ByQuality[audio.QualityOK], s.ByQuality[audio.QualitySuspect], s.ByQuality[audio.QualityGarbage])},
		{"Last analysis", formatWhen(s.LastRunAt)},
		{"Calibration", calibration},
	}))
	if s.Analyzed == 0 {
		return
	}
	rows := make([][]string, 0, scoring.Count)
	for i, name := range scoring.Names {
		rows = append(rows, []string{name, formatScore(s.Averages.At(i))})
	}
	fmt.Fprintln(out, renderTable("Average scores", []string{"Score", "Mean"}, rows,
		[]columnAlignment{alignLeft, alignRight}))
}

func newTopCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		band   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "top [score]",
		Short: "Rank tracks by a jam score (default energy)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "energy"
			if len(args) == 1 {
				name = strings.ToLower(strings.TrimSpace(args[0]))
			}
			idx, ok := scoring.Index(name)
			if !ok {
				return fmt.Errorf("unknown score %q (choose from %s)", name, strings.Join(scoring.Names[:], ", "))
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				tracks, err := st.TopTracks(cmd.Context(), idx, limit, band)
				if err != nil {
					return err
				}
				if asJSON {
					views := make([]topJSON, 0, len(tracks))
					for _, t := range tracks {
						views = append(views, topJSON{
							TrackID: t.TrackID, Path: t.Path, Title: t.Title, Band: t.Band,
							ShowDate: t.ShowDate, Duration: t.Duration, Score: t.Score,
						})
					}
					return writeJSON(cmd, views)
				}
				if len(tracks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No analyzed tracks")
					return nil
				}
				rows := make([][]string, 0, len(tracks))
				for i, t := range tracks {
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						strconv.FormatInt(t.TrackID, 10),
						formatScore(t.Score),
						orDash(t.Band),
						orDash(t.ShowDate),
						trackLabel(t.Title, t.Path),
						formatDuration(t.Duration),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable("Top "+scoring.Names[idx],
					[]string{"#", "ID", "Score", "Band", "Date", "Title", "Length"}, rows,
					[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of tracks to list")
	cmd.Flags().StringVar(&band, "band", "", "Only rank tracks by this band")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

type topJSON struct {
	TrackID  int64    `json:"track_id"`
	Path     string   `json:"path"`
	Title    string   `json:"title,omitempty"`
	Band     string   `json:"band,omitempty"`
	ShowDate string   `json:"show_date,omitempty"`
	Duration *float64 `json:"duration_seconds,omitempty"`
	Score    float64  `json:"score"`
}

func trackLabel(title, path string) string {
	if title != "" {
		return title
	}
	return filepath.Base(path)
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <track-id>",
		Short: "Display a track's metadata, features and scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid track id %q", args[0])
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				track, err := st.TrackByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				run, err := st.AnalysisByTrack(cmd.Context(), id)
				if err != nil && !errors.Is(err, services.ErrNotFound) {
					return err
				}
				if asJSON {
					return writeJSON(cmd, showView(track, run))
				}
				renderShow(cmd, track, run)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

type showJSON struct {
	ID          int64              `json:"id"`
	Path        string             `json:"path"`
	Band        string             `json:"band,omitempty"`
	ShowDate    string             `json:"show_date,omitempty"`
	Venue       string             `json:"venue,omitempty"`
	Set         string             `json:"set,omitempty"`
	Disc        int                `json:"disc,omitempty"`
	Track       int                `json:"track,omitempty"`
	Title       string             `json:"title,omitempty"`
	Analyzed    bool               `json:"analyzed"`
	Quality     string             `json:"quality,omitempty"`
	RawScores   *scoring.JamScores `json:"raw_scores,omitempty"`
	Scores      *scoring.JamScores `json:"scores,omitempty"`
	LUFS        *float64           `json:"lufs_integrated,omitempty"`
	TempoBPM    *float64           `json:"tempo_bpm,omitempty"`
	Key         *string            `json:"estimated_key,omitempty"`
	Chords      int                `json:"chords"`
	Segments    int                `json:"segments"`
	Transitions int                `json:"transitions"`
}

func showView(t *store.Track, run *store.AnalysisRun) showJSON {
	v := showJSON{
		ID: t.ID, Path: t.Path, Band: t.Band, ShowDate: t.ShowDate, Venue: t.Venue,
		Set: t.SetName, Disc: t.DiscNumber, Track: t.TrackNumber, Title: t.Title,
	}
	if run == nil {
		return v
	}
	raw, scores := run.Raw, run.Scores
	v.Analyzed = true
	v.Quality = string(run.Quality)
	v.RawScores, v.Scores = &raw, &scores
	v.LUFS = run.Record.LUFSIntegrated
	v.TempoBPM = run.Record.TempoBPM
	v.Key = run.Record.EstimatedKey
	v.Chords = len(run.Details.Chords)
	v.Segments = len(run.Details.Segments)
	v.Transitions = len(run.Details.Transitions)
	return v
}

func renderShow(cmd *cobra.Command, t *store.Track, run *store.AnalysisRun) {
	out := cmd.OutOrStdout()
	pairs := [][2]string{
		{"Path", t.Path},
		{"Band", orDash(t.Band)},
		{"Date", orDash(t.ShowDate)},
		{"Venue", orDash(t.Venue)},
		{"Set", orDash(t.SetName)},
		{"Title", orDash(t.Title)},
		{"Size", humanize.IBytes(uint64(max(t.SizeBytes, 0)))},
	}
	if t.DiscNumber > 0 || t.TrackNumber > 0 {
		pairs = append(pairs, [2]string{"Disc / track", fmt.Sprintf("%d / %d", t.DiscNumber, t.TrackNumber)})
	}
	fmt.Fprintln(out, renderPairs(fmt.Sprintf("Track %d", t.ID), pairs))

	if run == nil {
		fmt.Fprintln(out, "Not analyzed yet")
		return
	}
	key := "-"
	if run.Record.EstimatedKey != nil {
		key = *run.Record.EstimatedKey
	}
	fmt.Fprintln(out, renderPairs("Analysis", [][2]string{
		{"Quality", string(run.Quality)},
		{"Analyzed", formatWhen(&run.AnalyzedAt)},
		{"Duration", formatDuration(run.Record.Duration)},
		{"Loudness", formatOptional(run.Record.LUFSIntegrated, "LUFS")},
		{"Tempo", formatOptional(run.Record.TempoBPM, "BPM")},
		{"Key", key},
		{"Features present", strconv.Itoa(run.Record.Present())},
		{"Chords / segments / transitions", fmt.Sprintf("%d / %d / %d",
			len(run.Details.Chords), len(run.Details.Segments), len(run.Details.Transitions))},
	}))

	rows := make([][]string, 0, scoring.Count)
	for i, name := range scoring.Names {
		rows = append(rows, []string{name, formatScore(run.Scores.At(i)), formatScore(run.Raw.At(i))})
	}
	fmt.Fprintln(out, renderTable("Scores", []string{"Score", "Effective", "Raw"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight}))
}
