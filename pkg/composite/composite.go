// Package composite pastes transformed foregrounds onto a poster canvas.
//
// Compositing is destructive: each paste overwrites canvas pixels in place
// and later pastes cover earlier ones, so a [Compositor] applies its
// foregrounds strictly in the order it is given.
package composite

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/matzehuels/postermill/pkg/asset"
	"github.com/matzehuels/postermill/pkg/random"
	"github.com/matzehuels/postermill/pkg/transform"
)

var (
	// ErrNilImage is returned when the canvas or foreground is missing.
	ErrNilImage = errors.New("nil image")

	// ErrOutOfBounds is returned when a foreground would extend past the canvas.
	ErrOutOfBounds = errors.New("foreground outside canvas")
)

// Paste composites src onto dst with its top-left corner at at.
//
// Each source pixel is blended by its own alpha (Porter-Duff over), which is
// pasting the source color through its alpha channel as the mask: fully
// transparent pixels, such as the corners exposed by rotation, leave the
// destination untouched.
func Paste(dst draw.Image, src image.Image, at image.Point) error {
	if dst == nil || src == nil {
		return ErrNilImage
	}
	sb := src.Bounds()
	r := image.Rectangle{Min: at, Max: at.Add(sb.Size())}
	if !r.In(dst.Bounds()) {
		return fmt.Errorf("%w: %v not within %v", ErrOutOfBounds, r, dst.Bounds())
	}
	draw.Draw(dst, r, src, sb.Min, draw.Over)
	return nil
}

// Placer decides how a foreground is transformed and where it goes.
// *transform.Engine is the standard implementation.
type Placer interface {
	Place(fg image.Image, bg image.Point, rng random.Source) (transform.Placed, error)
}

// Skip records a foreground that could not be composited.
type Skip struct {
	Index   int    // position in the foreground set
	Keyword string // keyword of the skipped asset
	Err     error
}

// Report summarizes one Compose call.
type Report struct {
	Pasted  []transform.Placement
	Skipped []Skip
}

// Compositor applies a foreground set to a canvas.
type Compositor struct {
	Placer Placer

	// OnSkip, if set, is called for every skipped foreground.
	OnSkip func(Skip)
}

// New returns a Compositor using p, or a default transform.Engine if p is nil.
func New(p Placer) *Compositor {
	if p == nil {
		p = transform.NewEngine()
	}
	return &Compositor{Placer: p}
}

// Compose places and pastes each foreground in order. A foreground whose
// placement or paste fails is skipped; the rest are still applied.
func (c *Compositor) Compose(canvas draw.Image, foregrounds []asset.Asset, rng random.Source) Report {
	var report Report
	if canvas == nil {
		for i, fg := range foregrounds {
			report.Skipped = append(report.Skipped, c.skip(i, fg, ErrNilImage))
		}
		return report
	}

	bounds := canvas.Bounds()
	for i, fg := range foregrounds {
		placed, err := c.Placer.Place(fg.Image, bounds.Size(), rng)
		if err == nil {
			err = Paste(canvas, placed.Image, bounds.Min.Add(placed.Placement.Offset))
		}
		if err != nil {
			report.Skipped = append(report.Skipped, c.skip(i, fg, err))
			continue
		}
		report.Pasted = append(report.Pasted, placed.Placement)
	}
	return report
}

func (c *Compositor) skip(i int, fg asset.Asset, err error) Skip {
	s := Skip{Index: i, Keyword: fg.Keyword, Err: err}
	if c.OnSkip != nil {
		c.OnSkip(s)
	}
	return s
}
