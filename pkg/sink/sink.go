// Package sink writes finished posters to disk.
//
// [FileSink] numbers posters sequentially (0.png, 1.png, ...) in the order
// the batch delivered them and records the run in a manifest.json next to
// the images. A poster that fails to encode is recorded and skipped; the
// remaining posters are still written.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/matzehuels/postermill/pkg/observability"
	"github.com/matzehuels/postermill/pkg/poster"
	"github.com/matzehuels/postermill/pkg/text"
)

// ManifestName is the manifest file written into every run directory.
const ManifestName = "manifest.json"

// DefaultFormat is used when FileSink.Format is empty.
const DefaultFormat = "png"

// DefaultJPEGQuality is used for jpg output when none is set.
const DefaultJPEGQuality = 90

// ErrInvalidFormat is returned for an output format imaging cannot encode.
var ErrInvalidFormat = errors.New("unsupported image format")

// Sink receives a finished batch.
type Sink interface {
	Export(ctx context.Context, posters []poster.Poster, dest string) (*Report, error)
}

// RunInfo describes the run a batch came from. It is copied into the
// manifest.
type RunInfo struct {
	ID        string   `json:"id"`
	Keywords  []string `json:"keywords"`
	Seed      uint64   `json:"seed"`
	Requested int      `json:"requested"`
}

// Failure is a poster that could not be written.
type Failure struct {
	Index int // attempt index of the poster
	Err   error
}

// Report lists what Export wrote.
type Report struct {
	Dir      string
	Files    []string // written image paths in order
	Failed   []Failure
	Manifest string // manifest path
}

// FileSink writes posters as image files.
type FileSink struct {
	Format      string // png (default), jpg, gif, tif or bmp
	JPEGQuality int
	Run         RunInfo
	Logger      *log.Logger
}

// Manifest is the JSON document written alongside the images.
type Manifest struct {
	Run       RunInfo         `json:"run"`
	CreatedAt time.Time       `json:"created_at"`
	Format    string          `json:"format"`
	Posters   []ManifestEntry `json:"posters"`
	Failed    []ManifestError `json:"failed,omitempty"`
}

// ManifestEntry describes one written poster.
type ManifestEntry struct {
	File       string `json:"file"`
	Attempt    int    `json:"attempt"`
	Background string `json:"background"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Pasted     int    `json:"pasted"`
	Skipped    int    `json:"skipped"`
	Fragments  int    `json:"fragments"`
}

// ManifestError describes a poster that failed to export.
type ManifestError struct {
	Attempt int    `json:"attempt"`
	Error   string `json:"error"`
}

// ParseFormat validates an output format name such as "png" or ".JPG".
func ParseFormat(name string) (imaging.Format, string, error) {
	ext := strings.ToLower(strings.TrimPrefix(name, "."))
	if ext == "" {
		ext = DefaultFormat
	}
	f, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidFormat, name)
	}
	return f, ext, nil
}

// Encode writes img to w in the named format.
func Encode(w io.Writer, img image.Image, format string, jpegQuality int) error {
	f, _, err := ParseFormat(format)
	if err != nil {
		return err
	}
	if jpegQuality <= 0 {
		jpegQuality = DefaultJPEGQuality
	}
	return imaging.Encode(w, img, f, imaging.JPEGQuality(jpegQuality))
}

// Export writes posters into dest, creating it if needed. The returned
// error is reserved for problems with dest itself or the manifest.
func (s *FileSink) Export(ctx context.Context, posters []poster.Poster, dest string) (*Report, error) {
	_, ext, err := ParseFormat(s.Format)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	logger := s.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	quality := s.JPEGQuality
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}

	report := &Report{Dir: dest}
	manifest := Manifest{Run: s.Run, CreatedAt: time.Now().UTC(), Format: ext}

	for i, p := range posters {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		path := filepath.Join(dest, fmt.Sprintf("%d.%s", i, ext))
		err := save(p, path, quality)
		observability.Batch().OnExport(ctx, path, err)
		if err != nil {
			logger.Warn("failed to write poster", "attempt", p.Index, "path", path, "err", err)
			report.Failed = append(report.Failed, Failure{Index: p.Index, Err: err})
			manifest.Failed = append(manifest.Failed, ManifestError{Attempt: p.Index, Error: err.Error()})
			continue
		}
		report.Files = append(report.Files, path)
		manifest.Posters = append(manifest.Posters, entry(p, filepath.Base(path)))
	}

	report.Manifest = filepath.Join(dest, ManifestName)
	if err := writeManifest(report.Manifest, manifest); err != nil {
		return report, err
	}
	return report, nil
}

func save(p poster.Poster, path string, quality int) error {
	if p.Image == nil {
		return fmt.Errorf("poster %d has no image", p.Index)
	}
	return imaging.Save(p.Image, path, imaging.JPEGQuality(quality))
}

func entry(p poster.Poster, file string) ManifestEntry {
	b := p.Image.Bounds()
	drawn := 0
	for _, f := range p.Fragments {
		if f.Outcome != text.Skipped {
			drawn++
		}
	}
	return ManifestEntry{
		File:       file,
		Attempt:    p.Index,
		Background: p.Background,
		Width:      b.Dx(),
		Height:     b.Dy(),
		Pasted:     len(p.Pasted),
		Skipped:    len(p.Skipped),
		Fragments:  drawn,
	}
}

func writeManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// RunDir returns <root>/<keywords joined by "_">-<first 8 chars of runID>.
// Keywords are reduced to letters, digits and dashes.
func RunDir(root string, keywords []string, runID string) string {
	parts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if s := slug(kw); s != "" {
			parts = append(parts, s)
		}
	}
	name := strings.Join(parts, "_")
	if name == "" {
		name = "posters"
	}
	id := strings.ReplaceAll(runID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	if id != "" {
		name += "-" + id
	}
	return filepath.Join(root, name)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
