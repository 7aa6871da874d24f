// Package poster generates batches of collage posters.
//
// A [Batch] runs a number of independent attempts against one asset pool.
// Each attempt samples a foreground set, copies one member as the canvas,
// composites the set onto it and draws the text overlay. An attempt that
// fails is discarded and the batch moves on, so a run may deliver fewer
// posters than requested. Only a pool that cannot be sampled at all aborts
// the run.
//
// Every attempt draws from its own random stream derived from the batch seed
// and the attempt index, so a batch produces the same posters whether it runs
// sequentially or on several workers.
package poster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/postermill/pkg/asset"
	"github.com/matzehuels/postermill/pkg/composite"
	"github.com/matzehuels/postermill/pkg/observability"
	"github.com/matzehuels/postermill/pkg/random"
	"github.com/matzehuels/postermill/pkg/text"
	"github.com/matzehuels/postermill/pkg/transform"
)

// Poster is one finished collage.
type Poster struct {
	Index      int         // attempt index within the batch
	Seed       uint64      // batch seed
	Image      *image.RGBA // owned by the caller once returned
	Background string      // keyword of the background asset
	Pasted     []transform.Placement
	Skipped    []composite.Skip
	Fragments  []text.Result
}

// AttemptError records a discarded attempt.
type AttemptError struct {
	Index int
	Err   error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("attempt %d: %v", e.Index, e.Err)
}

func (e *AttemptError) Unwrap() error { return e.Err }

// Overlay draws text onto a finished composite. *text.Overlay implements it.
type Overlay interface {
	Apply(dst draw.Image, keywords []string, rng random.Source) text.Report
}

// Result is the outcome of a batch run.
type Result struct {
	Posters  []Poster       // in attempt order
	Failed   []AttemptError // in attempt order
	Duration time.Duration
}

// Batch configures poster generation.
type Batch struct {
	Pool       *asset.Pool
	Keywords   []string // text keywords; defaults to the pool's keywords
	Compositor *composite.Compositor
	Overlay    Overlay // nil disables text
	Seed       uint64
	Workers    int // attempts run in parallel; <= 1 runs sequentially
	Logger     *log.Logger
}

// Generate runs count attempts and returns the posters that succeeded.
func (b *Batch) Generate(ctx context.Context, count int) ([]Poster, error) {
	res, err := b.Run(ctx, count)
	if res == nil {
		return nil, err
	}
	return res.Posters, err
}

// Run is Generate with the discarded attempts and timing included. On
// cancellation it returns the attempts finished so far along with ctx.Err().
func (b *Batch) Run(ctx context.Context, count int) (*Result, error) {
	if err := b.Pool.Validate(); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("poster count must be non-negative, got %d", count)
	}

	logger := b.logger()
	workers := max(1, b.Workers)
	start := time.Now()
	observability.Batch().OnBatchStart(ctx, count, workers)

	type outcome struct {
		poster Poster
		err    error
		done   bool
	}
	slots := make([]outcome, count)
	runOne := func(i int) {
		attemptStart := time.Now()
		p, err := b.Attempt(i)
		slots[i] = outcome{poster: p, err: err, done: true}

		summary := observability.Attempt{Index: i, Err: err}
		if err == nil {
			summary.Pasted = len(p.Pasted)
			summary.Skipped = len(p.Skipped)
			summary.Fragments = drawn(p.Fragments)
		}
		observability.Batch().OnAttemptComplete(ctx, summary, time.Since(attemptStart))
	}

	var runErr error
	if workers == 1 {
		for i := range count {
			if runErr = ctx.Err(); runErr != nil {
				break
			}
			runOne(i)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := range count {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				runOne(i)
				return nil
			})
		}
		_ = g.Wait()
		runErr = ctx.Err()
	}

	res := &Result{}
	for i, o := range slots {
		switch {
		case !o.done:
		case o.err != nil:
			ae := AttemptError{Index: i, Err: o.err}
			var inner *AttemptError
			if errors.As(o.err, &inner) {
				ae = *inner
			}
			res.Failed = append(res.Failed, ae)
			logger.Warn("discarded poster attempt", "attempt", i, "err", o.err)
		default:
			res.Posters = append(res.Posters, o.poster)
		}
	}
	res.Duration = time.Since(start)

	observability.Batch().OnBatchComplete(ctx, count, len(res.Posters), res.Duration, runErr)
	logger.Info("generated posters",
		"requested", count,
		"produced", len(res.Posters),
		"discarded", len(res.Failed),
		"duration", res.Duration)

	return res, runErr
}

// Attempt builds the poster for attempt i. Panics raised by the pipeline
// are returned as errors.
func (b *Batch) Attempt(i int) (p Poster, err error) {
	defer func() {
		if r := recover(); r != nil {
			p = Poster{}
			err = &AttemptError{Index: i, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	rng := random.ForAttempt(b.Seed, i)
	logger := b.logger()

	set, err := b.Pool.SampleForeground(rng)
	if err != nil {
		return Poster{}, &AttemptError{Index: i, Err: err}
	}
	bg, err := asset.SampleBackground(set, rng)
	if err != nil {
		return Poster{}, &AttemptError{Index: i, Err: err}
	}
	canvas, err := asset.NewCanvas(bg)
	if err != nil {
		return Poster{}, &AttemptError{Index: i, Err: err}
	}

	comp := b.Compositor
	if comp == nil {
		comp = composite.New(nil)
	}
	report := comp.Compose(canvas, set, rng)
	for _, s := range report.Skipped {
		logger.Debug("skipped foreground", "attempt", i, "keyword", s.Keyword, "err", s.Err)
	}

	p = Poster{
		Index:      i,
		Seed:       b.Seed,
		Image:      canvas,
		Background: bg.Keyword,
		Pasted:     report.Pasted,
		Skipped:    report.Skipped,
	}

	if b.Overlay != nil {
		keywords := b.Keywords
		if len(keywords) == 0 {
			keywords = b.Pool.Keywords()
		}
		tr := b.Overlay.Apply(canvas, keywords, rng)
		if tr.MissingGlyphs() {
			logger.Warn("no text drawn: fonts have no glyphs for the keywords, use fonts that cover them",
				"attempt", i, "keywords", keywords)
		} else {
			for _, r := range tr.Results {
				if r.Outcome == text.Skipped {
					logger.Debug("skipped text fragment", "attempt", i, "text", r.Fragment.Text, "err", r.Err)
				}
			}
		}
		p.Fragments = tr.Results
	}
	return p, nil
}

func (b *Batch) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.New(io.Discard)
}

func drawn(results []text.Result) int {
	n := 0
	for _, r := range results {
		if r.Outcome != text.Skipped {
			n++
		}
	}
	return n
}
