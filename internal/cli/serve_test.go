package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/matzehuels/postermill/pkg/cache"
	"github.com/matzehuels/postermill/pkg/observability"
	"github.com/matzehuels/postermill/pkg/pipeline"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	root := t.TempDir()
	for kw, n := range map[string]int{"cat": 2, "dog": 1} {
		dir := filepath.Join(root, kw)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for i := range n {
			img := imaging.New(90+i*10, 70, color.NRGBA{R: 200, G: uint8(60 * i), A: 255})
			if err := imaging.Save(img, filepath.Join(dir, string(rune('a'+i))+".png")); err != nil {
				t.Fatal(err)
			}
		}
	}

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(c, nil, logger)
	loaded, err := runner.Load(context.Background(), pipeline.Options{
		Keywords: []string{"cat", "dog"},
		Sources:  pipeline.SourceOptions{Dirs: []string{root}},
	})
	if err != nil {
		t.Fatal(err)
	}

	stats := &observability.CacheCounters{}
	observability.SetCacheHooks(stats)
	t.Cleanup(observability.Reset)

	srv := httptest.NewServer(newServer(runner, loaded, stats, logger).routes())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServeHealth(t *testing.T) {
	srv := testServer(t)
	resp := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestServeKeywords(t *testing.T) {
	srv := testServer(t)
	resp := get(t, srv.URL+"/api/keywords")
	var body struct {
		Keywords []keywordInfo `json:"keywords"`
		Pool     string        `json:"pool"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Keywords) != 2 || body.Keywords[0] != (keywordInfo{"cat", 2}) || body.Keywords[1] != (keywordInfo{"dog", 1}) {
		t.Errorf("keywords = %+v", body.Keywords)
	}
	if body.Pool == "" {
		t.Error("missing pool hash")
	}
}

func TestServePoster(t *testing.T) {
	srv := testServer(t)

	first := get(t, srv.URL+"/api/posters/42.png")
	if first.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", first.StatusCode)
	}
	if ct := first.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if first.Header.Get("X-Cache") != "MISS" {
		t.Errorf("first X-Cache = %q", first.Header.Get("X-Cache"))
	}
	data, err := io.ReadAll(first.Body)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}

	second := get(t, srv.URL+"/api/posters/42.png")
	again, _ := io.ReadAll(second.Body)
	if second.Header.Get("X-Cache") != "HIT" || !bytes.Equal(data, again) {
		t.Error("second request should be a cache hit with identical bytes")
	}

	jpg := get(t, srv.URL+"/api/posters/42.jpg")
	if jpg.StatusCode != http.StatusOK || jpg.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("jpg: status %d, type %q", jpg.StatusCode, jpg.Header.Get("Content-Type"))
	}
}

func TestServePosterErrors(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		path   string
		status int
	}{
		{"/api/posters/42.svg", http.StatusBadRequest},
		{"/api/posters/99999999999999999999999.png", http.StatusBadRequest},
		{"/api/posters/abc.png", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp := get(t, srv.URL+tt.path)
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.path, resp.StatusCode, tt.status)
		}
	}
}

func TestServeRandomPoster(t *testing.T) {
	srv := testServer(t)
	resp := get(t, srv.URL+"/api/posters/random")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "/api/posters/") || !strings.HasSuffix(loc, ".png") {
		t.Errorf("Location = %q", loc)
	}
}

func TestServeStats(t *testing.T) {
	srv := testServer(t)
	get(t, srv.URL+"/api/posters/7.png")
	get(t, srv.URL+"/api/posters/7.png")

	resp := get(t, srv.URL+"/api/stats")
	var body map[string]observability.CacheStats
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	got := body["poster"]
	if got.Hits != 1 || got.Misses != 1 || got.Writes != 1 {
		t.Errorf("poster stats = %+v", got)
	}
}
