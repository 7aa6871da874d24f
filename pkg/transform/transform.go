// Package transform computes randomized placements for foreground images.
//
// A placement is decided in three steps, each drawing from the caller's
// random source in a fixed order:
//
//  1. [Engine.Plan] picks a size ratio and a rotation angle and derives the
//     zoom that makes the foreground's longer relative dimension cover
//     exactly that ratio of the background.
//  2. [Engine.Apply] resamples and rotates the foreground. Rotation expands
//     the bounding box and leaves transparent corners.
//  3. [Locate] picks an offset that keeps the whole rotated box inside the
//     background, or fails with [ErrOversizeForeground].
//
// [Engine.Place] runs all three.
package transform

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/postermill/pkg/random"
)

var (
	// ErrOversizeForeground is returned when a transformed foreground does
	// not fit inside the background. Callers skip that foreground.
	ErrOversizeForeground = errors.New("transformed foreground exceeds background")

	// ErrEmptyImage is returned for zero-sized foregrounds or backgrounds.
	ErrEmptyImage = errors.New("image has zero size")
)

// Defaults for NewEngine.
const (
	DefaultMinRatio = 0.4
	DefaultMaxRatio = 0.7
	DefaultMaxAngle = 45
)

// DefaultRatios is the discrete ratio set, in tenths from 0.4 to 0.7.
var DefaultRatios = []float64{0.4, 0.5, 0.6, 0.7}

// Engine holds the placement parameters. The zero value draws from
// DefaultRatios, never rotates and resamples with nearest neighbour; use
// NewEngine for the standard configuration.
type Engine struct {
	// Ratios is the discrete set the size ratio is drawn from.
	Ratios []float64

	// Continuous draws the ratio uniformly from [MinRatio, MaxRatio)
	// instead of from Ratios.
	Continuous bool
	MinRatio   float64
	MaxRatio   float64

	// MaxAngle bounds the rotation to [-MaxAngle, MaxAngle] whole degrees.
	MaxAngle int

	// Filter is the resampling filter used when scaling.
	Filter imaging.ResampleFilter
}

// NewEngine returns an engine with the default ratio set, ±45° rotation and
// Lanczos resampling.
func NewEngine() *Engine {
	return &Engine{
		Ratios:   append([]float64(nil), DefaultRatios...),
		MinRatio: DefaultMinRatio,
		MaxRatio: DefaultMaxRatio,
		MaxAngle: DefaultMaxAngle,
		Filter:   imaging.Lanczos,
	}
}

// Plan is the scale and rotation decided for one foreground.
type Plan struct {
	Ratio  float64     // share of the background the longer relative side covers
	Zoom   float64     // scale factor applied to the foreground
	Angle  int         // rotation in degrees, counter-clockwise
	Scaled image.Point // size after scaling, before rotation
}

// Placement is a Plan plus the final bounds and offset on the background.
type Placement struct {
	Plan
	Size   image.Point // bounds after rotation
	Offset image.Point // top-left corner on the background
}

// Rect returns the rectangle the foreground occupies on the background.
func (p Placement) Rect() image.Rectangle {
	return image.Rectangle{Min: p.Offset, Max: p.Offset.Add(p.Size)}
}

// Placed is a transformed foreground ready to be composited.
type Placed struct {
	Image     *image.NRGBA
	Placement Placement
}

func (e *Engine) ratio(rng random.Source) float64 {
	if e.Continuous {
		lo, hi := e.MinRatio, e.MaxRatio
		if lo <= 0 && hi <= 0 {
			lo, hi = DefaultMinRatio, DefaultMaxRatio
		}
		return random.Uniform(rng, lo, hi)
	}
	ratios := e.Ratios
	if len(ratios) == 0 {
		ratios = DefaultRatios
	}
	return ratios[rng.IntN(len(ratios))]
}

// Plan draws the ratio and angle for a foreground of size fg placed on a
// background of size bg.
func (e *Engine) Plan(fg, bg image.Point, rng random.Source) (Plan, error) {
	if fg.X <= 0 || fg.Y <= 0 || bg.X <= 0 || bg.Y <= 0 {
		return Plan{}, fmt.Errorf("%w: foreground %v, background %v", ErrEmptyImage, fg, bg)
	}

	ratio := e.ratio(rng)
	zoom := ratio / max(float64(fg.Y)/float64(bg.Y), float64(fg.X)/float64(bg.X))
	angle := random.Between(rng, -e.MaxAngle, e.MaxAngle)

	return Plan{
		Ratio: ratio,
		Zoom:  zoom,
		Angle: angle,
		Scaled: image.Pt(
			max(1, int(float64(fg.X)*zoom)),
			max(1, int(float64(fg.Y)*zoom)),
		),
	}, nil
}

// Apply scales fg to plan.Scaled and rotates it by plan.Angle around its
// center. The result has an expanded bounding box with transparent corners.
func (e *Engine) Apply(fg image.Image, plan Plan) *image.NRGBA {
	scaled := imaging.Resize(fg, plan.Scaled.X, plan.Scaled.Y, e.Filter)
	return imaging.Rotate(scaled, float64(plan.Angle), color.Transparent)
}

// Locate draws an offset that keeps a box of the given size inside bg.
func Locate(size, bg image.Point, rng random.Source) (image.Point, error) {
	if size.X > bg.X || size.Y > bg.Y {
		return image.Point{}, fmt.Errorf("%w: %dx%d on %dx%d",
			ErrOversizeForeground, size.X, size.Y, bg.X, bg.Y)
	}
	left := random.Between(rng, 0, bg.X-size.X)
	top := random.Between(rng, 0, bg.Y-size.Y)
	return image.Pt(left, top), nil
}

// Place plans, transforms and locates fg on a background of size bg.
func (e *Engine) Place(fg image.Image, bg image.Point, rng random.Source) (Placed, error) {
	if fg == nil {
		return Placed{}, fmt.Errorf("%w: nil foreground", ErrEmptyImage)
	}
	plan, err := e.Plan(fg.Bounds().Size(), bg, rng)
	if err != nil {
		return Placed{}, err
	}
	out := e.Apply(fg, plan)
	size := out.Bounds().Size()
	offset, err := Locate(size, bg, rng)
	if err != nil {
		return Placed{}, err
	}
	return Placed{
		Image:     out,
		Placement: Placement{Plan: plan, Size: size, Offset: offset},
	}, nil
}
