package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
)

// DirSource reads images from <Root>/<keyword>/, in file name order.
type DirSource struct {
	Root   string
	Limit  int // per keyword; 0 means DefaultLimit
	Logger *log.Logger
}

// Fetch implements Source. A missing keyword directory yields no images.
func (s *DirSource) Fetch(ctx context.Context, keyword string) ([]image.Image, error) {
	return s.FetchN(ctx, keyword, limitOr(s.Limit))
}

// FetchN implements Bounded. It reads at most min(n, Limit) images.
func (s *DirSource) FetchN(ctx context.Context, keyword string, n int) ([]image.Image, error) {
	if strings.ContainsAny(keyword, `/\`) || keyword == "." || keyword == ".." {
		return nil, fmt.Errorf("invalid keyword %q", keyword)
	}
	dir := filepath.Join(s.Root, keyword)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	logger := discard(s.Logger)
	limit := min(n, limitOr(s.Limit))
	var out []image.Image
	for _, e := range entries {
		if len(out) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			logger.Debug("skipping unreadable image", "path", path, "err", err)
			continue
		}
		out = append(out, img)
	}
	return out, nil
}
