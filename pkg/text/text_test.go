package text

import (
	"bytes"
	"errors"
	"image"
	"strings"
	"testing"

	"golang.org/x/image/draw"

	"github.com/matzehuels/postermill/pkg/fonts"
	"github.com/matzehuels/postermill/pkg/random"
)

func black(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func defaultFonts(t *testing.T) []fonts.Font {
	t.Helper()
	fs, err := fonts.Default()
	if err != nil {
		t.Fatalf("fonts.Default() error: %v", err)
	}
	return fs
}

func TestPlanBounds(t *testing.T) {
	keywords := []string{"cat", "dog", "owl"}
	size := image.Pt(300, 200)
	o := New(defaultFonts(t))

	for seed := uint64(0); seed < 100; seed++ {
		frags := o.Plan(size, keywords, random.New(seed))
		if len(frags) < DefaultMinFragments || len(frags) > DefaultMaxFragments {
			t.Fatalf("seed %d: %d fragments", seed, len(frags))
		}
		for _, f := range frags {
			if f.Size < 300/6 || f.Size > 300/3 {
				t.Errorf("seed %d: size %d outside [50, 100]", seed, f.Size)
			}
			if f.Position.X < 30 || f.Position.X > 210 || f.Position.Y < 20 || f.Position.Y > 140 {
				t.Errorf("seed %d: position %v outside range", seed, f.Position)
			}
			if f.Fill == nil {
				t.Errorf("seed %d: planned fragment without fill", seed)
			}
			if f.Font.Font == nil {
				t.Errorf("seed %d: planned fragment without font", seed)
			}
			if !composedOf(f.Text, keywords) {
				t.Errorf("seed %d: text %q is not a concatenation of distinct keywords", seed, f.Text)
			}
		}
	}
}

// composedOf reports whether s is a concatenation of distinct words.
func composedOf(s string, words []string) bool {
	if s == "" {
		return false
	}
	var walk func(rest string, used map[string]bool) bool
	walk = func(rest string, used map[string]bool) bool {
		if rest == "" {
			return true
		}
		for _, w := range words {
			if !used[w] && strings.HasPrefix(rest, w) {
				used[w] = true
				if walk(rest[len(w):], used) {
					return true
				}
				used[w] = false
			}
		}
		return false
	}
	return walk(s, map[string]bool{})
}

func TestPlanSingleKeyword(t *testing.T) {
	o := New(defaultFonts(t))
	for _, f := range o.Plan(image.Pt(100, 100), []string{"sun"}, random.New(4)) {
		if f.Text != "sun" {
			t.Errorf("text = %q, want sun", f.Text)
		}
		if f.Size < 50 || f.Size > 100 {
			t.Errorf("size = %d", f.Size)
		}
	}
}

func TestPlanEmpty(t *testing.T) {
	o := New(defaultFonts(t))
	if frags := o.Plan(image.Pt(100, 100), nil, random.New(1)); frags != nil {
		t.Errorf("Plan(no keywords) = %v", frags)
	}
	if frags := o.Plan(image.Point{}, []string{"a"}, random.New(1)); frags != nil {
		t.Errorf("Plan(empty canvas) = %v", frags)
	}

	dst := black(50, 50)
	before := bytes.Clone(dst.Pix)
	report := o.Apply(dst, nil, random.New(1))
	if len(report.Results) != 0 || !bytes.Equal(dst.Pix, before) {
		t.Error("Apply(no keywords) should draw nothing")
	}
}

func TestPlanDeterministic(t *testing.T) {
	o := New(defaultFonts(t))
	a := o.Plan(image.Pt(200, 200), []string{"x", "y"}, random.New(9))
	b := o.Plan(image.Pt(200, 200), []string{"x", "y"}, random.New(9))
	if len(a) != len(b) {
		t.Fatalf("len %d != %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Text != b[i].Text || a[i].Position != b[i].Position || a[i].Size != b[i].Size || *a[i].Fill != *b[i].Fill {
			t.Errorf("fragment %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestApplyDrawsText(t *testing.T) {
	dst := black(200, 200)
	before := bytes.Clone(dst.Pix)

	report := New(defaultFonts(t)).Apply(dst, []string{"cat", "dog"}, random.New(2))
	if len(report.Results) < DefaultMinFragments {
		t.Fatalf("got %d results", len(report.Results))
	}
	if report.Skipped() != 0 {
		t.Errorf("skipped %d fragments: %+v", report.Skipped(), report.Results)
	}
	if bytes.Equal(dst.Pix, before) {
		t.Error("Apply() left the canvas unchanged")
	}
}

func TestFaceRenderer(t *testing.T) {
	fs := defaultFonts(t)
	base := Fragment{Text: "Hi", Position: image.Pt(5, 5), Font: fs[0], Size: 40}

	t.Run("default fill is white", func(t *testing.T) {
		dst := black(100, 60)
		if err := (FaceRenderer{}).Draw(dst, base); err != nil {
			t.Fatal(err)
		}
		found := false
		for i := 0; i < len(dst.Pix); i += 4 {
			if dst.Pix[i] == 255 && dst.Pix[i+1] == 255 && dst.Pix[i+2] == 255 {
				found = true
				break
			}
		}
		if !found {
			t.Error("no white pixel drawn")
		}
	})

	tests := []struct {
		name string
		dst  draw.Image
		mod  func(*Fragment)
		want error
	}{
		{"missing glyph", black(10, 10), func(f *Fragment) { f.Text = "猫" }, ErrMissingGlyph},
		{"no font", black(10, 10), func(f *Fragment) { f.Font = fonts.Font{} }, ErrNoFont},
		{"zero size", black(10, 10), func(f *Fragment) { f.Size = 0 }, nil},
		{"nil canvas panics", nil, func(*Fragment) {}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base
			tt.mod(&f)
			err := (FaceRenderer{}).Draw(tt.dst, f)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

// styledFails rejects every fragment that carries its own fill.
type styledFails struct{ calls int }

func (r *styledFails) Draw(_ draw.Image, f Fragment) error {
	r.calls++
	if f.Fill != nil {
		return errors.New("bad fill")
	}
	return nil
}

// failText rejects fragments containing a word.
type failText struct{ word string }

func (r failText) Draw(_ draw.Image, f Fragment) error {
	if strings.Contains(f.Text, r.word) {
		return errors.New("cannot draw " + r.word)
	}
	return nil
}

func TestApplyMissingGlyphs(t *testing.T) {
	dst := black(300, 300)
	before := bytes.Clone(dst.Pix)

	report := New(defaultFonts(t)).Apply(dst, []string{"猫", "海滩"}, random.New(4))
	if len(report.Results) == 0 {
		t.Fatal("no fragments planned")
	}
	if report.Drawn() != 0 {
		t.Errorf("drew %d fragments without glyphs", report.Drawn())
	}
	if !report.MissingGlyphs() {
		t.Errorf("MissingGlyphs() = false for %+v", report.Results)
	}
	if !bytes.Equal(dst.Pix, before) {
		t.Error("skipped fragments changed the canvas")
	}

	latin := New(defaultFonts(t)).Apply(black(300, 300), []string{"cat"}, random.New(4))
	if latin.MissingGlyphs() {
		t.Error("MissingGlyphs() = true for drawable keywords")
	}
	if (Report{}).MissingGlyphs() {
		t.Error("MissingGlyphs() = true for an empty report")
	}
}

func TestApplyFallsBackToDefaultFill(t *testing.T) {
	r := &styledFails{}
	o := New(defaultFonts(t))
	o.Renderer = r

	report := o.Apply(black(100, 100), []string{"a", "b"}, random.New(5))
	if len(report.Results) == 0 {
		t.Fatal("no fragments planned")
	}
	if r.calls != 2*len(report.Results) {
		t.Errorf("renderer called %d times for %d fragments", r.calls, len(report.Results))
	}
	for _, res := range report.Results {
		if res.Outcome != DrawnDefault || res.Fragment.Fill != nil || res.Err == nil {
			t.Errorf("result = %+v, want default-fill draw", res)
		}
	}
	if report.Drawn() != len(report.Results) {
		t.Errorf("Drawn() = %d", report.Drawn())
	}
}

func TestApplySkipsOnlyFailingFragments(t *testing.T) {
	o := New(defaultFonts(t))
	o.Renderer = failText{word: "bad"}
	var seen []Result
	o.OnResult = func(r Result) { seen = append(seen, r) }

	// With a single keyword every fragment is "bad"; with two, only some are.
	report := o.Apply(black(100, 100), []string{"bad"}, random.New(1))
	for _, res := range report.Results {
		if res.Outcome != Skipped || !errors.Is(res.Err, ErrTextRender) {
			t.Errorf("result = %+v, want skipped", res)
		}
	}
	if report.Drawn() != 0 || len(seen) != len(report.Results) {
		t.Errorf("drawn = %d, callbacks = %d", report.Drawn(), len(seen))
	}

	mixed := o.Apply(black(100, 100), []string{"good", "bad"}, random.New(3))
	for _, res := range mixed.Results {
		want := Drawn
		if strings.Contains(res.Fragment.Text, "bad") {
			want = Skipped
		}
		if res.Outcome != want {
			t.Errorf("%q: outcome %v, want %v", res.Fragment.Text, res.Outcome, want)
		}
	}
}

func TestApplyOffsetsSubImage(t *testing.T) {
	var got []Fragment
	o := New(defaultFonts(t))
	o.Renderer = recorder{&got}

	full := black(200, 200)
	sub := full.SubImage(image.Rect(100, 100, 200, 200)).(*image.RGBA)
	o.Apply(sub, []string{"a"}, random.New(8))
	for _, f := range got {
		if !f.Position.In(sub.Bounds()) {
			t.Errorf("position %v outside sub-image %v", f.Position, sub.Bounds())
		}
	}
}

type recorder struct{ out *[]Fragment }

func (r recorder) Draw(_ draw.Image, f Fragment) error {
	*r.out = append(*r.out, f)
	return nil
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{Drawn: "drawn", DrawnDefault: "drawn-default", Skipped: "skipped", Outcome(9): "outcome(9)"} {
		if got := o.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(o), got, want)
		}
	}
}
