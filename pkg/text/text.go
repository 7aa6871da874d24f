// Package text draws randomized keyword fragments onto a poster.
//
// An [Overlay] plans a random number of [Fragment]s (font, size, position,
// text and fill all drawn from the caller's random source) and renders each
// one through a [Renderer]. Rendering is best effort per fragment: a failed
// styled draw is retried once with the renderer's default fill, and a
// fragment that still fails is recorded and skipped without affecting the
// fragments already drawn.
package text

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/matzehuels/postermill/pkg/fonts"
	"github.com/matzehuels/postermill/pkg/random"
)

var (
	// ErrTextRender is returned for a fragment that failed both the styled
	// and the default-fill draw.
	ErrTextRender = errors.New("text render failed")

	// ErrMissingGlyph is returned when the font cannot draw a rune of the text.
	ErrMissingGlyph = errors.New("font has no glyph")

	// ErrNoFont is returned when a fragment has no font to draw with.
	ErrNoFont = errors.New("no font")
)

// Fragment bounds used by New.
const (
	DefaultMinFragments = 2
	DefaultMaxFragments = 7
)

// DefaultFill is drawn for fragments without a fill color.
var DefaultFill = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Fragment is one piece of text to draw.
type Fragment struct {
	Text     string
	Position image.Point // top-left corner of the line box
	Font     fonts.Font
	Size     int          // em size in pixels
	Fill     *color.NRGBA // nil selects DefaultFill
}

// Renderer draws a single fragment.
type Renderer interface {
	Draw(dst draw.Image, f Fragment) error
}

// FaceRenderer rasterizes fragments with an opentype face at 72 DPI, so
// Size is in pixels.
type FaceRenderer struct{}

// Draw renders f onto dst. Panics raised while rasterizing are returned as
// errors.
func (FaceRenderer) Draw(dst draw.Image, f Fragment) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("draw %q: %v", f.Text, p)
		}
	}()

	if f.Font.Font == nil {
		return ErrNoFont
	}
	if f.Size <= 0 {
		return fmt.Errorf("invalid font size %d", f.Size)
	}

	var buf sfnt.Buffer
	for _, r := range f.Text {
		idx, err := f.Font.Font.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			return fmt.Errorf("%w: %q in %s", ErrMissingGlyph, r, f.Font.Name)
		}
	}

	face, err := opentype.NewFace(f.Font.Font, &opentype.FaceOptions{
		Size:    float64(f.Size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("create font face: %w", err)
	}
	defer face.Close()

	fill := DefaultFill
	if f.Fill != nil {
		fill = *f.Fill
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fill),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(f.Position.X),
			Y: fixed.I(f.Position.Y) + face.Metrics().Ascent,
		},
	}
	d.DrawString(f.Text)
	return nil
}

// Outcome describes how a fragment ended up on the canvas.
type Outcome int

const (
	Drawn        Outcome = iota // drawn with its own fill
	DrawnDefault                // drawn on retry with the default fill
	Skipped                     // both draws failed
)

func (o Outcome) String() string {
	switch o {
	case Drawn:
		return "drawn"
	case DrawnDefault:
		return "drawn-default"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of drawing one fragment.
type Result struct {
	Fragment Fragment
	Outcome  Outcome
	Err      error // first failure; wraps ErrTextRender when Skipped
}

// Report lists the result of every planned fragment in draw order.
type Report struct {
	Results []Result
}

// Drawn returns how many fragments made it onto the canvas.
func (r Report) Drawn() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome != Skipped {
			n++
		}
	}
	return n
}

// Skipped returns how many fragments failed.
func (r Report) Skipped() int {
	return len(r.Results) - r.Drawn()
}

// MissingGlyphs reports whether fragments were planned and every one was
// skipped because the fonts lack glyphs for the text, as happens with the
// embedded Latin fonts and CJK keywords.
func (r Report) MissingGlyphs() bool {
	if len(r.Results) == 0 {
		return false
	}
	for _, res := range r.Results {
		if res.Outcome != Skipped || !errors.Is(res.Err, ErrMissingGlyph) {
			return false
		}
	}
	return true
}

// Overlay plans and draws keyword fragments.
type Overlay struct {
	Fonts        []fonts.Font
	MinFragments int
	MaxFragments int
	Renderer     Renderer

	// OnResult, if set, is called after each fragment.
	OnResult func(Result)
}

// New returns an overlay drawing with fs and the default fragment bounds.
func New(fs []fonts.Font) *Overlay {
	return &Overlay{
		Fonts:        fs,
		MinFragments: DefaultMinFragments,
		MaxFragments: DefaultMaxFragments,
		Renderer:     FaceRenderer{},
	}
}

// Plan draws the fragments for a canvas of the given size. It returns nil
// when there are no keywords.
func (o *Overlay) Plan(size image.Point, keywords []string, rng random.Source) []Fragment {
	if len(keywords) == 0 || size.X <= 0 || size.Y <= 0 {
		return nil
	}

	count := random.Between(rng, o.MinFragments, o.MaxFragments)
	frags := make([]Fragment, 0, count)
	for range count {
		frags = append(frags, o.fragment(size, keywords, rng))
	}
	return frags
}

func (o *Overlay) fragment(size image.Point, keywords []string, rng random.Source) Fragment {
	var f Fragment
	if len(o.Fonts) > 0 {
		f.Font = o.Fonts[rng.IntN(len(o.Fonts))]
	}

	n := len(keywords)
	f.Size = max(1, random.Between(rng, size.X/(2*n), size.X/n))

	f.Position = image.Pt(
		random.Between(rng, int(float64(size.X)*0.1), int(float64(size.X)*0.7)),
		random.Between(rng, int(float64(size.Y)*0.1), int(float64(size.Y)*0.7)),
	)

	k := max(1, rng.IntN(n))
	var sb strings.Builder
	for _, i := range random.Sample(rng, n, k) {
		sb.WriteString(keywords[i])
	}
	f.Text = sb.String()

	f.Fill = &color.NRGBA{
		R: uint8(rng.IntN(256)),
		G: uint8(rng.IntN(256)),
		B: uint8(rng.IntN(256)),
		A: uint8(rng.IntN(256)),
	}
	return f
}

// Apply plans fragments for dst and draws them in order.
func (o *Overlay) Apply(dst draw.Image, keywords []string, rng random.Source) Report {
	var report Report
	if dst == nil {
		return report
	}
	for _, f := range o.Plan(dst.Bounds().Size(), keywords, rng) {
		f.Position = f.Position.Add(dst.Bounds().Min)
		res := o.draw(dst, f)
		report.Results = append(report.Results, res)
		if o.OnResult != nil {
			o.OnResult(res)
		}
	}
	return report
}

// draw tries the styled fragment, then the same fragment with the default
// fill.
func (o *Overlay) draw(dst draw.Image, f Fragment) Result {
	r := o.Renderer
	if r == nil {
		r = FaceRenderer{}
	}

	styledErr := r.Draw(dst, f)
	if styledErr == nil {
		return Result{Fragment: f, Outcome: Drawn}
	}

	plain := f
	plain.Fill = nil
	plainErr := r.Draw(dst, plain)
	if plainErr == nil {
		return Result{Fragment: plain, Outcome: DrawnDefault, Err: styledErr}
	}
	return Result{
		Fragment: f,
		Outcome:  Skipped,
		Err:      fmt.Errorf("%w: %w (default fill: %v)", ErrTextRender, styledErr, plainErr),
	}
}
