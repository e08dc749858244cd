package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"setbreak/internal/audio"
	"setbreak/internal/config"
	"setbreak/internal/engine"
	"setbreak/internal/logging"
	"setbreak/internal/pipeline"
	"setbreak/internal/services"
	"setbreak/internal/store"
	"setbreak/internal/testsupport"
)

// fakeDecoder renders a short synthetic signal whose level depends on the
// file name, so every track gets distinct but reproducible features.
type fakeDecoder struct {
	mu      sync.Mutex
	fail    map[string]bool
	panics  map[string]bool
	garbage map[string]bool
	calls   atomic.Int64
}

func (d *fakeDecoder) Decode(_ context.Context, path string) (*audio.Buffer, audio.Quality, error) {
	d.calls.Add(1)
	d.mu.Lock()
	fail, panics, garbage := d.fail[path], d.panics[path], d.garbage[path]
	d.mu.Unlock()
	if panics {
		panic("decoder exploded")
	}
	if fail {
		return nil, "", services.Wrap(services.ErrDecode, "decode", "open", "corrupt header", nil)
	}
	sig := testsupport.DefaultSignal()
	sig.Seconds = 2
	sig.Gain = 0.05 + 0.01*float64(len(path)%10)
	quality := audio.QualityOK
	if garbage {
		quality = audio.QualityGarbage
	}
	return &audio.Buffer{SampleRate: sig.SampleRate, Channels: 1, Samples: sig.Render()}, quality, nil
}

// fakeEngine hands out analyzers computing a few cheap features.
type fakeEngine struct {
	sessions atomic.Int64
}

func (e *fakeEngine) NewSession() engine.Analyzer {
	e.sessions.Add(1)
	return fakeAnalyzer{}
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Analyze(_ context.Context, buf *audio.Buffer) (*engine.RawFeatures, error) {
	if err := buf.Validate(); err != nil {
		return nil, services.Wrap(services.ErrEngine, "analyze", "validate", "", err)
	}
	mono := buf.Mono()
	var sum float64
	for _, v := range mono {
		sum += v * v
	}
	rms := sum / float64(len(mono))
	return &engine.RawFeatures{
		SampleRate: buf.SampleRate,
		Channels:   buf.Channels,
		Duration:   buf.Duration(),
		Peak:       buf.Peak(),
		RMS:        rms,
		Loudness:   &engine.Loudness{Integrated: -30 + 100*rms},
	}, nil
}

// hookStore wraps a store to observe or sabotage chunk commits.
type hookStore struct {
	*store.Store
	commits  int
	onCommit func(n int) error
}

func (h *hookStore) CommitChunk(ctx context.Context, runs []store.AnalysisRun) error {
	h.commits++
	if h.onCommit != nil {
		if err := h.onCommit(h.commits); err != nil {
			return err
		}
	}
	return h.Store.CommitChunk(ctx, runs)
}

type countingProgress struct {
	total, done, finished int
}

func (p *countingProgress) Start(total int) { p.total = total }
func (p *countingProgress) Advance(n int)   { p.done += n }
func (p *countingProgress) Finish()         { p.finished++ }

func seedTracks(t *testing.T, st *store.Store, n int) []string {
	t.Helper()
	paths := make([]string, n)
	for i := range n {
		paths[i] = fmt.Sprintf("/music/show/track%02d.flac", i+1)
		testsupport.NewTrack(t, st, paths[i], "Phish", "1997-11-22")
	}
	return paths
}

func newOrchestrator(cfg *config.Config, st pipeline.Store, dec pipeline.Decoder, eng pipeline.SessionFactory, opts ...pipeline.Option) *pipeline.Orchestrator {
	return pipeline.New(cfg, st, dec, eng, logging.NewNop(), opts...)
}

func pendingCount(t *testing.T, st *store.Store) int {
	t.Helper()
	refs, err := st.Pending(context.Background(), false, "")
	if err != nil {
		t.Fatalf("Pending returned error: %v", err)
	}
	return len(refs)
}

func TestRunAnalyzesAllPendingTracks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2))
	st := testsupport.MustOpenStore(t, cfg)
	seedTracks(t, st, 10)

	eng := &fakeEngine{}
	progress := &countingProgress{}
	orch := newOrchestrator(cfg, st, &fakeDecoder{}, eng, pipeline.WithProgress(progress))

	summary, err := orch.Run(context.Background(), pipeline.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Analyzed != 10 || summary.Failed != 0 || summary.Skipped != 0 || summary.Aborted {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Chunks != 3 {
		t.Fatalf("expected 3 chunks of 4 tracks, got %d", summary.Chunks)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if got := eng.sessions.Load(); got != 2 {
		t.Fatalf("expected one session per worker, got %d", got)
	}
	if progress.total != 10 || progress.done != 10 || progress.finished != 1 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
	if n := pendingCount(t, st); n != 0 {
		t.Fatalf("expected nothing pending, got %d", n)
	}

	again, err := orch.Run(context.Background(), pipeline.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if again.Pending != 0 || again.Analyzed != 0 {
		t.Fatalf("expected incremental run to find nothing, got %+v", again)
	}

	forced, err := orch.Run(context.Background(), pipeline.Options{Force: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if forced.Analyzed != 10 {
		t.Fatalf("expected forced run to re-analyze everything, got %+v", forced)
	}
}

func TestRunIsolatesTrackFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2))
	st := testsupport.MustOpenStore(t, cfg)
	paths := seedTracks(t, st, 6)

	dec := &fakeDecoder{
		fail:    map[string]bool{paths[1]: true},
		panics:  map[string]bool{paths[4]: true},
		garbage: map[string]bool{paths[2]: true},
	}
	orch := newOrchestrator(cfg, st, dec, &fakeEngine{})

	summary, err := orch.Run(context.Background(), pipeline.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Analyzed != 4 || summary.Failed != 2 || summary.Garbage != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	kinds := map[string]string{}
	for _, f := range summary.Failures {
		kinds[f.Path] = f.Kind
		if f.Stage != "decode" {
			t.Fatalf("expected failure in decode stage, got %+v", f)
		}
		if services.IsFatal(f.Err) {
			t.Fatalf("track failure must not be fatal: %v", f.Err)
		}
	}
	if kinds[paths[1]] != "decode" || kinds[paths[4]] != "engine" {
		t.Fatalf("unexpected failure kinds: %v", kinds)
	}

	refs, err := st.Pending(context.Background(), false, "")
	if err != nil {
		t.Fatalf("Pending returned error: %v", err)
	}
	if len(refs) != 2 || refs[0].Path != paths[1] || refs[1].Path != paths[4] {
		t.Fatalf("expected failed tracks to stay pending, got %+v", refs)
	}
}

func TestRunStorageFailureIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2))
	st := testsupport.MustOpenStore(t, cfg)
	seedTracks(t, st, 10)

	diskFull := errors.New("disk full")
	hooked := &hookStore{Store: st, onCommit: func(n int) error {
		if n == 2 {
			return services.Wrap(services.ErrStorage, "store", "commit chunk", "", diskFull)
		}
		return nil
	}}
	orch := newOrchestrator(cfg, hooked, &fakeDecoder{}, &fakeEngine{})

	summary, err := orch.Run(context.Background(), pipeline.Options{})
	if err == nil {
		t.Fatal("expected storage failure to abort the run")
	}
	if !services.IsFatal(err) || !errors.Is(err, diskFull) {
		t.Fatalf("expected fatal storage error, got %v", err)
	}
	if !summary.Aborted || summary.Analyzed != 4 || summary.Skipped != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if hooked.commits != 2 {
		t.Fatalf("expected no commit after the failure, got %d", hooked.commits)
	}
	if n := pendingCount(t, st); n != 6 {
		t.Fatalf("expected 6 pending tracks, got %d", n)
	}
}

func TestRunFinishesInFlightChunkOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2))
	st := testsupport.MustOpenStore(t, cfg)
	seedTracks(t, st, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dec := &fakeDecoder{}
	hooked := &hookStore{Store: st}
	// Cancel while the first chunk is being decoded.
	var once sync.Once
	cancelling := &cancelDecoder{inner: dec, cancel: func() { once.Do(cancel) }}
	orch := newOrchestrator(cfg, hooked, cancelling, &fakeEngine{})

	summary, err := orch.Run(ctx, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !summary.Aborted || summary.Analyzed != 4 || summary.Skipped != 6 {
		t.Fatalf("expected only the in-flight chunk to complete, got %+v", summary)
	}
	if hooked.commits != 1 {
		t.Fatalf("expected the in-flight chunk to be committed, got %d commits", hooked.commits)
	}
	if got := dec.calls.Load(); got != 4 {
		t.Fatalf("expected 4 decodes, got %d", got)
	}
}

type cancelDecoder struct {
	inner  pipeline.Decoder
	cancel func()
}

func (c *cancelDecoder) Decode(ctx context.Context, path string) (*audio.Buffer, audio.Quality, error) {
	c.cancel()
	if ctx.Err() != nil {
		return nil, "", errors.New("task context must not be cancelled")
	}
	return c.inner.Decode(ctx, path)
}

func snapshot(t *testing.T, st *store.Store) map[string]store.AnalysisRun {
	t.Helper()
	out := map[string]store.AnalysisRun{}
	refs, err := st.Pending(context.Background(), true, "")
	if err != nil {
		t.Fatalf("Pending returned error: %v", err)
	}
	for _, ref := range refs {
		run, err := st.AnalysisByTrack(context.Background(), ref.ID)
		if err != nil {
			t.Fatalf("AnalysisByTrack returned error: %v", err)
		}
		out[ref.Path] = *run
	}
	return out
}

func TestRunResumesAfterInterruptAtAnyChunk(t *testing.T) {
	const tracks = 10
	reference := func() map[string]store.AnalysisRun {
		cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2))
		st := testsupport.MustOpenStore(t, cfg)
		seedTracks(t, st, tracks)
		if _, err := newOrchestrator(cfg, st, &fakeDecoder{}, &fakeEngine{}).Run(context.Background(), pipeline.Options{}); err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
		return snapshot(t, st)
	}()

	for k := 0; k <= 2; k++ {
		t.Run(fmt.Sprintf("after_%d_chunks", k), func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2))
			st := testsupport.MustOpenStore(t, cfg)
			seedTracks(t, st, tracks)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if k == 0 {
				cancel()
			}
			hooked := &hookStore{Store: st, onCommit: func(n int) error {
				if n == k {
					cancel()
				}
				return nil
			}}
			first, err := newOrchestrator(cfg, hooked, &fakeDecoder{}, &fakeEngine{}).Run(ctx, pipeline.Options{})
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			committed := min(4*k, tracks)
			if first.Analyzed != committed || !first.Aborted {
				t.Fatalf("expected %d committed tracks, got %+v", committed, first)
			}

			dec := &fakeDecoder{}
			second, err := newOrchestrator(cfg, st, dec, &fakeEngine{}).Run(context.Background(), pipeline.Options{})
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if second.Analyzed != tracks-committed || int(dec.calls.Load()) != tracks-committed {
				t.Fatalf("expected resume to process %d tracks, got %+v (%d decodes)", tracks-committed, second, dec.calls.Load())
			}

			got := snapshot(t, st)
			if len(got) != len(reference) {
				t.Fatalf("expected %d runs, got %d", len(reference), len(got))
			}
			for path, want := range reference {
				have := got[path]
				if have.Raw != want.Raw || have.Quality != want.Quality {
					t.Fatalf("%s: scores differ from uninterrupted run: %+v vs %+v", path, have.Raw, want.Raw)
				}
				if !reflect.DeepEqual(have.Record.Values(), want.Record.Values()) {
					t.Fatalf("%s: features differ from uninterrupted run", path)
				}
			}
		})
	}
}

func TestRunFilterRestrictsPendingTracks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1))
	st := testsupport.MustOpenStore(t, cfg)
	seedTracks(t, st, 3)
	testsupport.NewTrack(t, st, "/music/Other/gd1977-05-08t01.flac", "Grateful Dead", "1977-05-08")

	summary, err := newOrchestrator(cfg, st, &fakeDecoder{}, &fakeEngine{}).Run(context.Background(), pipeline.Options{Filter: "GD1977"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Pending != 1 || summary.Analyzed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	refs, err := st.Pending(context.Background(), false, "")
	if err != nil {
		t.Fatalf("Pending returned error: %v", err)
	}
	for _, ref := range refs {
		if strings.Contains(ref.Path, "gd1977") {
			t.Fatalf("filtered track still pending: %+v", ref)
		}
	}
}
