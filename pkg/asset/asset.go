// Package asset holds the keyword-grouped source images a poster batch draws
// from.
//
// A [Pool] maps each keyword to the images acquired for it, in acquisition
// order. It is filled once per run and read-only afterwards, so concurrent
// attempts may sample from it freely.
//
// Sampling happens in two steps. [Pool.SampleForeground] draws a random,
// non-empty subset from every keyword and concatenates them; [SampleBackground]
// then picks one member of that set to serve as the canvas:
//
//	set, err := pool.SampleForeground(rng)
//	bg, err := asset.SampleBackground(set, rng)
//	canvas := asset.NewCanvas(bg)
package asset

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/matzehuels/postermill/pkg/random"
)

var (
	// ErrEmptyPool is returned when the pool holds no keywords at all.
	ErrEmptyPool = errors.New("asset pool is empty")

	// ErrEmptyForegroundSet is returned when a keyword has no images or a
	// background is requested from an empty foreground set.
	ErrEmptyForegroundSet = errors.New("empty foreground set")
)

// Asset is a decoded image and the keyword it was acquired for.
// Assets are never modified after loading.
type Asset struct {
	Keyword string
	Image   image.Image
}

// Size returns the pixel dimensions of the asset's image.
func (a Asset) Size() image.Point {
	if a.Image == nil {
		return image.Point{}
	}
	return a.Image.Bounds().Size()
}

// Group is a keyword with its images, used to build a pool in one step.
type Group struct {
	Keyword string
	Images  []image.Image
}

// Pool maps keywords to assets. The zero value is not usable; call NewPool.
type Pool struct {
	keywords []string
	assets   map[string][]Asset
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{assets: make(map[string][]Asset)}
}

// FromGroups builds a pool from groups in order. Unlike Add, it keeps groups
// that carry no images so callers can represent partially failed
// acquisitions; sampling such a pool fails with ErrEmptyForegroundSet.
func FromGroups(groups ...Group) *Pool {
	p := NewPool()
	for _, g := range groups {
		p.declare(g.Keyword)
		for _, img := range g.Images {
			p.Add(g.Keyword, img)
		}
	}
	return p
}

func (p *Pool) declare(keyword string) {
	if _, ok := p.assets[keyword]; !ok {
		p.keywords = append(p.keywords, keyword)
		p.assets[keyword] = nil
	}
}

// Add appends img under keyword. Nil images are ignored.
func (p *Pool) Add(keyword string, img image.Image) {
	if img == nil {
		return
	}
	p.declare(keyword)
	p.assets[keyword] = append(p.assets[keyword], Asset{Keyword: keyword, Image: img})
}

// Keywords returns the keywords in insertion order.
func (p *Pool) Keywords() []string {
	return append([]string(nil), p.keywords...)
}

// Count returns the number of assets stored for keyword.
func (p *Pool) Count(keyword string) int {
	return len(p.assets[keyword])
}

// Assets returns the assets stored for keyword in acquisition order.
func (p *Pool) Assets(keyword string) []Asset {
	return append([]Asset(nil), p.assets[keyword]...)
}

// Len returns the total number of assets across all keywords.
func (p *Pool) Len() int {
	n := 0
	for _, kw := range p.keywords {
		n += len(p.assets[kw])
	}
	return n
}

// Validate reports whether the pool can be sampled at all.
func (p *Pool) Validate() error {
	if p == nil || len(p.keywords) == 0 {
		return ErrEmptyPool
	}
	for _, kw := range p.keywords {
		if len(p.assets[kw]) == 0 {
			return fmt.Errorf("%w: keyword %q has no images", ErrEmptyForegroundSet, kw)
		}
	}
	return nil
}

// SampleForeground draws the working set for one poster. For each keyword,
// in insertion order, it draws k uniformly from [1, count] and takes k
// distinct assets in random order.
func (p *Pool) SampleForeground(rng random.Source) ([]Asset, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var set []Asset
	for _, kw := range p.keywords {
		list := p.assets[kw]
		k := random.Between(rng, 1, len(list))
		for _, i := range random.Sample(rng, len(list), k) {
			set = append(set, list[i])
		}
	}
	return set, nil
}

// SampleBackground picks one asset uniformly from set. The same set and rng
// state always yield the same asset.
func SampleBackground(set []Asset, rng random.Source) (Asset, error) {
	if len(set) == 0 {
		return Asset{}, ErrEmptyForegroundSet
	}
	return set[rng.IntN(len(set))], nil
}

// NewCanvas copies a's image into a fresh RGBA canvas anchored at (0, 0).
// The asset itself is left untouched.
func NewCanvas(a Asset) (*image.RGBA, error) {
	if a.Image == nil {
		return nil, fmt.Errorf("%w: background has no image", ErrEmptyForegroundSet)
	}
	b := a.Image.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("background %q has empty bounds", a.Keyword)
	}
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), a.Image, b.Min, draw.Src)
	return canvas, nil
}
