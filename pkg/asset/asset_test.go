package asset

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/matzehuels/postermill/pkg/random"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func testPool(counts map[string]int, order ...string) *Pool {
	p := NewPool()
	for _, kw := range order {
		for i := 0; i < counts[kw]; i++ {
			p.Add(kw, solid(4+i, 4, color.NRGBA{R: uint8(i), A: 255}))
		}
	}
	return p
}

func TestPoolBasics(t *testing.T) {
	p := testPool(map[string]int{"cat": 2, "sea": 3}, "sea", "cat")

	if got := p.Keywords(); len(got) != 2 || got[0] != "sea" || got[1] != "cat" {
		t.Errorf("Keywords() = %v, want insertion order [sea cat]", got)
	}
	if p.Count("sea") != 3 || p.Count("cat") != 2 || p.Count("dog") != 0 {
		t.Error("Count() mismatch")
	}
	if p.Len() != 5 {
		t.Errorf("Len() = %d, want 5", p.Len())
	}

	p.Add("dog", nil)
	if len(p.Keywords()) != 2 {
		t.Error("Add(nil) should not register a keyword")
	}
}

func TestSampleForegroundBounds(t *testing.T) {
	p := testPool(map[string]int{"A": 3, "B": 5}, "A", "B")

	for seed := uint64(0); seed < 200; seed++ {
		set, err := p.SampleForeground(random.New(seed))
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if len(set) < 2 || len(set) > 8 {
			t.Fatalf("seed %d: got %d assets, want 2..8", seed, len(set))
		}

		seen := make(map[image.Image]bool)
		sawB := false
		for _, a := range set {
			switch a.Keyword {
			case "A":
				if sawB {
					t.Fatalf("seed %d: keyword order not preserved", seed)
				}
			case "B":
				sawB = true
			default:
				t.Fatalf("seed %d: unexpected keyword %q", seed, a.Keyword)
			}
			if seen[a.Image] {
				t.Fatalf("seed %d: asset sampled twice", seed)
			}
			seen[a.Image] = true
		}
	}
}

func TestSampleForegroundErrors(t *testing.T) {
	rng := random.New(1)

	if _, err := NewPool().SampleForeground(rng); !errors.Is(err, ErrEmptyPool) {
		t.Errorf("empty pool: err = %v, want ErrEmptyPool", err)
	}

	p := FromGroups(
		Group{Keyword: "ok", Images: []image.Image{solid(2, 2, color.NRGBA{A: 255})}},
		Group{Keyword: "failed"},
	)
	if _, err := p.SampleForeground(rng); !errors.Is(err, ErrEmptyForegroundSet) {
		t.Errorf("empty group: err = %v, want ErrEmptyForegroundSet", err)
	}
}

func TestSampleBackgroundIdempotent(t *testing.T) {
	p := testPool(map[string]int{"A": 3, "B": 5}, "A", "B")
	set, err := p.SampleForeground(random.New(9))
	if err != nil {
		t.Fatal(err)
	}

	first, err := SampleBackground(set, random.New(77))
	if err != nil {
		t.Fatal(err)
	}
	second, err := SampleBackground(set, random.New(77))
	if err != nil {
		t.Fatal(err)
	}
	if first.Image != second.Image {
		t.Error("same seed and set should select the same background")
	}

	if _, err := SampleBackground(nil, random.New(1)); !errors.Is(err, ErrEmptyForegroundSet) {
		t.Errorf("empty set: err = %v", err)
	}
}

func TestNewCanvasIsCopy(t *testing.T) {
	src := solid(6, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	before := bytes.Clone(src.Pix)
	a := Asset{Keyword: "k", Image: src}

	canvas, err := NewCanvas(a)
	if err != nil {
		t.Fatal(err)
	}
	if canvas.Bounds() != image.Rect(0, 0, 6, 4) {
		t.Errorf("canvas bounds = %v", canvas.Bounds())
	}
	if got := canvas.RGBAAt(2, 2); got != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("canvas pixel = %v", got)
	}

	canvas.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	if !bytes.Equal(src.Pix, before) {
		t.Error("mutating the canvas changed the source asset")
	}
}

func TestNewCanvasOffsetBounds(t *testing.T) {
	src := solid(10, 10, color.NRGBA{G: 200, A: 255})
	sub := src.SubImage(image.Rect(3, 3, 8, 7))

	canvas, err := NewCanvas(Asset{Image: sub})
	if err != nil {
		t.Fatal(err)
	}
	if canvas.Bounds() != image.Rect(0, 0, 5, 4) {
		t.Errorf("canvas bounds = %v, want origin-anchored 5x4", canvas.Bounds())
	}

	if _, err := NewCanvas(Asset{}); err == nil {
		t.Error("nil image should fail")
	}
}
