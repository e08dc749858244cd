package pipeline

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"setbreak/internal/logging"
)

// Progress receives per-track completion updates from a run. Calls come from
// a single goroutine.
type Progress interface {
	Start(total int)
	Advance(n int)
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(int)   {}
func (nopProgress) Advance(int) {}
func (nopProgress) Finish()     {}

// NewProgress returns a progress bar when out is a terminal and sampled log
// lines otherwise.
func NewProgress(out io.Writer, logger *slog.Logger) Progress {
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return &barProgress{out: out}
	}
	return &logProgress{logger: logging.NewComponentLogger(logger, "pipeline"), sampler: logging.NewProgressSampler(10)}
}

type barProgress struct {
	out io.Writer
	p   *mpb.Progress
	bar *mpb.Bar
}

func (b *barProgress) Start(total int) {
	b.p = mpb.New(mpb.WithOutput(b.out), mpb.WithWidth(64))
	b.bar = b.p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("Analyzing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.Name(" "),
			decor.AverageETA(decor.ET_STYLE_GO),
		),
	)
}

func (b *barProgress) Advance(n int) {
	if b.bar != nil {
		b.bar.IncrBy(n)
	}
}

func (b *barProgress) Finish() {
	if b.p == nil {
		return
	}
	if !b.bar.Completed() {
		b.bar.Abort(false)
	}
	b.p.Wait()
}

type logProgress struct {
	logger  *slog.Logger
	sampler *logging.ProgressSampler
	total   int
	done    int
}

func (l *logProgress) Start(total int) {
	l.total = total
	l.done = 0
	l.sampler.Reset()
}

func (l *logProgress) Advance(n int) {
	l.done += n
	if !l.sampler.ShouldLog(l.done, l.total) {
		return
	}
	l.logger.Info("analysis progress",
		logging.String(logging.FieldEventType, "run_progress"),
		logging.Int("done", l.done),
		logging.Int("total", l.total),
		logging.Float64(logging.FieldProgressPercent, logging.Percent(l.done, l.total)),
	)
}

func (l *logProgress) Finish() {}
