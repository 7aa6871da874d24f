package source

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/postermill/pkg/httputil"
)

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	img := imaging.New(w, h, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatal(err)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(w, h, color.NRGBA{A: 255}), imaging.PNG); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDirSource(t *testing.T) {
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "cat", "b.png"), 20, 10)
	writeImage(t, filepath.Join(root, "cat", "a.jpg"), 30, 15)
	writeImage(t, filepath.Join(root, "cat", ".hidden.png"), 5, 5)
	if err := os.WriteFile(filepath.Join(root, "cat", "notes.txt"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := &DirSource{Root: root}
	imgs, err := src.Fetch(context.Background(), "cat")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(imgs) != 2 {
		t.Fatalf("got %d images, want 2", len(imgs))
	}
	// Sorted by name: a.jpg first.
	if got := imgs[0].Bounds().Size(); got != image.Pt(30, 15) {
		t.Errorf("first image size = %v, want a.jpg's 30x15", got)
	}

	src.Limit = 1
	imgs, _ = src.Fetch(context.Background(), "cat")
	if len(imgs) != 1 {
		t.Errorf("Limit=1 returned %d images", len(imgs))
	}

	imgs, err = src.Fetch(context.Background(), "dog")
	if err != nil || len(imgs) != 0 {
		t.Errorf("missing keyword dir = %d images, %v", len(imgs), err)
	}

	if _, err := src.Fetch(context.Background(), "../etc"); err == nil {
		t.Error("Fetch() should reject path-like keywords")
	}
}

func TestURLSource(t *testing.T) {
	good := pngBytes(t, 8, 6)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Write(good)
		case "/junk.png":
			w.Write([]byte("junk"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := httputil.NewClient(nil, "test", time.Hour, nil).WithHTTPClient(srv.Client())
	client.Delay = time.Millisecond
	src := &URLSource{
		URLs: map[string][]string{
			"cat": {srv.URL + "/missing.png", srv.URL + "/junk.png", srv.URL + "/ok.png", srv.URL + "/ok.png"},
		},
		Client: client,
	}

	imgs, err := src.Fetch(context.Background(), "cat")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(imgs) != 2 {
		t.Fatalf("got %d images, want 2", len(imgs))
	}
	if imgs[0].Bounds().Size() != image.Pt(8, 6) {
		t.Errorf("size = %v", imgs[0].Bounds().Size())
	}

	src.Limit = 1
	if imgs, _ := src.Fetch(context.Background(), "cat"); len(imgs) != 1 {
		t.Errorf("Limit=1 returned %d images", len(imgs))
	}

	if imgs, err := src.Fetch(context.Background(), "dog"); err != nil || len(imgs) != 0 {
		t.Errorf("unknown keyword = %d images, %v", len(imgs), err)
	}
}

// staticSource serves fixed images or a fixed error.
type staticSource struct {
	imgs map[string][]image.Image
	err  error
}

func (s staticSource) Fetch(_ context.Context, kw string) ([]image.Image, error) {
	return s.imgs[kw], s.err
}

func TestMulti(t *testing.T) {
	a := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	b := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	m := Multi{
		staticSource{imgs: map[string][]image.Image{"x": {a}}},
		staticSource{err: errors.New("offline")},
		staticSource{imgs: map[string][]image.Image{"x": {b}}},
	}

	imgs, err := m.Fetch(context.Background(), "x")
	if err != nil || len(imgs) != 2 || imgs[0] != image.Image(a) || imgs[1] != image.Image(b) {
		t.Errorf("Fetch() = %v, %v", imgs, err)
	}

	if _, err := (Multi{staticSource{err: errors.New("offline")}}).Fetch(context.Background(), "x"); err == nil {
		t.Error("Multi should report errors when nothing was found")
	}
}

// countingSource records how many images each call asked for.
type countingSource struct {
	imgs  []image.Image
	asked []int
}

func (s *countingSource) Fetch(ctx context.Context, kw string) ([]image.Image, error) {
	return s.FetchN(ctx, kw, len(s.imgs))
}

func (s *countingSource) FetchN(_ context.Context, _ string, n int) ([]image.Image, error) {
	s.asked = append(s.asked, n)
	return s.imgs[:min(n, len(s.imgs))], nil
}

func TestCappedAcrossSources(t *testing.T) {
	root1, root2 := t.TempDir(), t.TempDir()
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		writeImage(t, filepath.Join(root1, "cat", name), 10, 10)
		writeImage(t, filepath.Join(root2, "cat", name), 20, 20)
	}

	tests := []struct {
		name  string
		limit int
		want  int
		first image.Point
	}{
		{"within first source", 2, 2, image.Pt(10, 10)},
		{"spills into second", 4, 4, image.Pt(10, 10)},
		{"more than available", 10, 6, image.Pt(10, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := Capped{
				Source: Multi{&DirSource{Root: root1}, &DirSource{Root: root2}},
				Limit:  tt.limit,
			}
			imgs, err := src.Fetch(context.Background(), "cat")
			if err != nil {
				t.Fatal(err)
			}
			if len(imgs) != tt.want {
				t.Fatalf("got %d images, want %d", len(imgs), tt.want)
			}
			if got := imgs[0].Bounds().Size(); got != tt.first {
				t.Errorf("first image size = %v, want %v", got, tt.first)
			}
		})
	}
}

func TestCappedStopsEarly(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	first := &countingSource{imgs: []image.Image{img, img}}
	second := &countingSource{imgs: []image.Image{img, img, img}}
	third := &countingSource{imgs: []image.Image{img}}

	imgs, err := Capped{Source: Multi{first, second, third}, Limit: 3}.Fetch(context.Background(), "x")
	if err != nil || len(imgs) != 3 {
		t.Fatalf("Fetch() = %d images, %v", len(imgs), err)
	}
	if len(first.asked) != 1 || first.asked[0] != 3 {
		t.Errorf("first asked for %v, want [3]", first.asked)
	}
	if len(second.asked) != 1 || second.asked[0] != 1 {
		t.Errorf("second asked for %v, want [1]", second.asked)
	}
	if len(third.asked) != 0 {
		t.Errorf("third should not be queried once the cap is reached, asked %v", third.asked)
	}
}

func TestFetchNTruncatesPlainSources(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src := staticSource{imgs: map[string][]image.Image{"x": {img, img, img}}}
	if imgs, _ := FetchN(context.Background(), src, "x", 2); len(imgs) != 2 {
		t.Errorf("FetchN(2) = %d images", len(imgs))
	}
	if imgs, _ := FetchN(context.Background(), src, "x", 0); len(imgs) != 0 {
		t.Errorf("FetchN(0) = %d images", len(imgs))
	}
}

func TestLoadPool(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	src := staticSource{imgs: map[string][]image.Image{
		"cat": {img, img},
		"owl": {img},
	}}

	pool, err := LoadPool(context.Background(), src, []string{" cat ", "dog", "owl", "cat", ""}, nil)
	if err != nil {
		t.Fatalf("LoadPool() error: %v", err)
	}
	kws := pool.Keywords()
	if len(kws) != 2 || kws[0] != "cat" || kws[1] != "owl" {
		t.Errorf("keywords = %v, want [cat owl]", kws)
	}
	if pool.Count("cat") != 2 {
		t.Errorf("cat count = %d", pool.Count("cat"))
	}
	if err := pool.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadPoolCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := LoadPool(ctx, staticSource{}, []string{"a"}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNormalizeKeywords(t *testing.T) {
	got := NormalizeKeywords([]string{"b", " a", "b", "", "  ", "c"})
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}
