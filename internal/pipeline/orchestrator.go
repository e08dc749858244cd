package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"setbreak/internal/audio"
	"setbreak/internal/config"
	"setbreak/internal/engine"
	"setbreak/internal/features"
	"setbreak/internal/logging"
	"setbreak/internal/scoring"
	"setbreak/internal/services"
	"setbreak/internal/store"
)

const (
	stageDecode    = "decode"
	stageAnalyze   = "analyze"
	stageAggregate = "aggregate"
	stageScore     = "score"
)

// Decoder turns a file into a normalized buffer plus its quality flag.
type Decoder interface {
	Decode(ctx context.Context, path string) (*audio.Buffer, audio.Quality, error)
}

// SessionFactory hands out per-worker analyzers.
type SessionFactory interface {
	NewSession() engine.Analyzer
}

// Store is the persistence surface the orchestrator needs.
type Store interface {
	Pending(ctx context.Context, force bool, filter string) ([]store.TrackRef, error)
	CommitChunk(ctx context.Context, runs []store.AnalysisRun) error
}

// Options are the per-run parameters.
type Options struct {
	// Force re-analyzes every track, not just those without results.
	Force bool
	// Filter restricts the run to paths containing it, ignoring case.
	Filter string
	// Workers overrides the configured pool size when positive.
	Workers int
}

// Failure describes one track that could not be analyzed.
type Failure struct {
	TrackID int64
	Path    string
	Stage   string
	Kind    string
	Err     error
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID    string
	Pending  int
	Workers  int
	Chunks   int
	Analyzed int
	Garbage  int
	Failed   int
	// Skipped counts pending tracks never dispatched because the run stopped.
	Skipped  int
	Aborted  bool
	Elapsed  time.Duration
	Failures []Failure
}

// Orchestrator coordinates decode, feature extraction, scoring and chunked
// persistence.
type Orchestrator struct {
	cfg      *config.Config
	store    Store
	decoder  Decoder
	engine   SessionFactory
	scorer   *scoring.Scorer
	logger   *slog.Logger
	progress Progress
	now      func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithProgress sets the progress reporter. The default discards progress.
func WithProgress(p Progress) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.progress = p
		}
	}
}

// New constructs an orchestrator.
func New(cfg *config.Config, st Store, dec Decoder, eng SessionFactory, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		store:    st,
		decoder:  dec,
		engine:   eng,
		scorer:   scoring.New(cfg.Scoring),
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		progress: nopProgress{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type taskResult struct {
	ref   store.TrackRef
	run   *store.AnalysisRun
	stage string
	err   error
}

// Run analyzes the pending tracks. The returned error is non-nil only for
// failures that abort the run (listing pending tracks or committing a chunk);
// per-track failures are reported in the summary.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (Summary, error) {
	start := o.now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)

	workers := opts.Workers
	if workers <= 0 {
		workers = o.cfg.WorkerCount()
	}
	chunkSize := o.cfg.ChunkSize(workers)
	summary := Summary{RunID: runID, Workers: workers}

	// In-flight work must finish after an interrupt, so listing, tasks and
	// commits never observe cancellation.
	workCtx := context.WithoutCancel(ctx)
	pending, err := o.store.Pending(workCtx, opts.Force, opts.Filter)
	if err != nil {
		return summary, err
	}
	summary.Pending = len(pending)
	if len(pending) == 0 {
		logger.Info("no pending tracks", logging.String(logging.FieldEventType, "run_completed"))
		return summary, nil
	}

	chunks := partition(pending, chunkSize)
	logger.Info("analysis run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.Int("pending", len(pending)),
		logging.Int("workers", workers),
		logging.Int("chunk_size", chunkSize),
		logging.Int("chunks", len(chunks)),
		logging.Bool("force", opts.Force),
	)

	jobs := make(chan store.TrackRef, chunkSize)
	results := make(chan taskResult, chunkSize)
	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			session := o.engine.NewSession()
			for ref := range jobs {
				results <- o.process(workCtx, session, ref, runID)
			}
			return nil
		})
	}

	o.progress.Start(len(pending))
	var runErr error
	dispatched := 0
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			summary.Aborted = true
			logger.Info("analysis interrupted, not starting further chunks",
				logging.String(logging.FieldEventType, "run_aborted"),
				logging.Int("chunk", i),
				logging.Int("remaining", len(pending)-dispatched),
			)
			break
		}
		dispatched += len(chunk)
		runs := o.runChunk(ctx, chunk, jobs, results, &summary)
		if err := o.store.CommitChunk(workCtx, runs); err != nil {
			runErr = err
			summary.Aborted = true
			logging.ErrorWithContext(logger, "chunk commit failed", "chunk_commit_failed",
				logging.Int("chunk", i),
				logging.Int("runs", len(runs)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check disk space and database permissions, then re-run analyze"),
			)
			break
		}
		summary.Chunks++
		summary.Analyzed += len(runs)
		for _, run := range runs {
			if run.Quality == audio.QualityGarbage {
				summary.Garbage++
			}
		}
		logger.Debug("chunk committed",
			logging.String(logging.FieldEventType, "chunk_committed"),
			logging.Int("chunk", i),
			logging.Int("runs", len(runs)),
			logging.Int("tracks", len(chunk)),
		)
	}
	close(jobs)
	_ = g.Wait()
	o.progress.Finish()

	summary.Skipped = len(pending) - dispatched
	summary.Elapsed = o.now().Sub(start)
	logger.Info("analysis run finished",
		logging.String(logging.FieldEventType, "run_completed"),
		logging.Int("analyzed", summary.Analyzed),
		logging.Int("failed", summary.Failed),
		logging.Int("garbage", summary.Garbage),
		logging.Int("skipped", summary.Skipped),
		logging.Bool("aborted", summary.Aborted),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, runErr
}

// runChunk dispatches one chunk and waits for every track to report. The
// returned runs are ordered as the chunk.
func (o *Orchestrator) runChunk(ctx context.Context, chunk []store.TrackRef, jobs chan<- store.TrackRef, results <-chan taskResult, summary *Summary) []store.AnalysisRun {
	for _, ref := range chunk {
		jobs <- ref
	}
	byID := make(map[int64]*store.AnalysisRun, len(chunk))
	for range chunk {
		res := <-results
		o.progress.Advance(1)
		if res.err != nil {
			o.recordFailure(ctx, res, summary)
			continue
		}
		byID[res.ref.ID] = res.run
	}
	runs := make([]store.AnalysisRun, 0, len(byID))
	for _, ref := range chunk {
		if run, ok := byID[ref.ID]; ok {
			runs = append(runs, *run)
		}
	}
	return runs
}

func (o *Orchestrator) recordFailure(ctx context.Context, res taskResult, summary *Summary) {
	summary.Failed++
	kind := services.ErrorKind(res.err)
	summary.Failures = append(summary.Failures, Failure{
		TrackID: res.ref.ID,
		Path:    res.ref.Path,
		Stage:   res.stage,
		Kind:    kind,
		Err:     res.err,
	})
	logger := logging.WithContext(services.WithStage(services.WithTrackID(ctx, res.ref.ID), res.stage), o.logger)
	logging.WarnWithContext(logger, "track analysis failed", "track_failed",
		logging.String("path", res.ref.Path),
		logging.String("error_kind", kind),
		logging.Error(res.err),
		logging.String(logging.FieldErrorHint, "the track stays pending; fix or remove the file and re-run analyze"),
		logging.String(logging.FieldImpact, "track left unanalyzed"),
	)
}

// process runs one track through decode, analysis, aggregation and scoring.
// Panics are converted into engine errors for the stage that raised them.
func (o *Orchestrator) process(ctx context.Context, session engine.Analyzer, ref store.TrackRef, runID string) (res taskResult) {
	res.ref = ref
	res.stage = stageDecode
	ctx = services.WithTrackID(ctx, ref.ID)
	defer func() {
		if r := recover(); r != nil {
			res.run = nil
			res.err = services.Wrap(services.ErrEngine, res.stage, "panic", fmt.Sprint(r), nil)
		}
	}()

	buf, quality, err := o.decoder.Decode(services.WithStage(ctx, stageDecode), ref.Path)
	if err != nil {
		res.err = err
		return res
	}

	res.stage = stageAnalyze
	raw, err := session.Analyze(services.WithStage(ctx, stageAnalyze), buf)
	if err != nil {
		res.err = err
		return res
	}

	res.stage = stageAggregate
	rec, details := features.Aggregate(raw)

	res.stage = stageScore
	scores := o.scorer.Score(rec)

	res.run = &store.AnalysisRun{
		TrackID:    ref.ID,
		RunID:      runID,
		Quality:    quality,
		AnalyzedAt: o.now(),
		Record:     rec,
		Details:    details,
		Raw:        scores,
		Scores:     scores,
	}
	return res
}

func partition(refs []store.TrackRef, size int) [][]store.TrackRef {
	if size <= 0 {
		size = 1
	}
	chunks := make([][]store.TrackRef, 0, (len(refs)+size-1)/size)
	for start := 0; start < len(refs); start += size {
		end := min(start+size, len(refs))
		chunks = append(chunks, refs[start:end])
	}
	return chunks
}
