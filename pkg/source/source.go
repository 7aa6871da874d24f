// Package source acquires the images a poster pool is built from.
//
// A [Source] turns a keyword into decoded images. Images that cannot be read
// or decoded are dropped and logged at debug level; only failures that make
// the whole keyword unreachable (a canceled context, an unreadable root) are
// returned as errors.
package source

import (
	"context"
	"errors"
	"image"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	_ "golang.org/x/image/webp" // register webp with image.Decode

	"github.com/matzehuels/postermill/pkg/asset"
)

// DefaultLimit caps the images taken per keyword.
const DefaultLimit = 20

// Source fetches the images for one keyword.
type Source interface {
	Fetch(ctx context.Context, keyword string) ([]image.Image, error)
}

// Bounded is a Source that can stop after n images. DirSource and
// URLSource implement it so a capped Multi never reads past the cap.
type Bounded interface {
	Source
	FetchN(ctx context.Context, keyword string, n int) ([]image.Image, error)
}

// FetchN fetches at most n images for keyword from src.
func FetchN(ctx context.Context, src Source, keyword string, n int) ([]image.Image, error) {
	if n <= 0 {
		return nil, nil
	}
	if b, ok := src.(Bounded); ok {
		return b.FetchN(ctx, keyword, n)
	}
	imgs, err := src.Fetch(ctx, keyword)
	if len(imgs) > n {
		imgs = imgs[:n]
	}
	return imgs, err
}

// Multi queries several sources in order and concatenates their images.
type Multi []Source

// Fetch implements Source. A failing member is skipped unless the context
// has ended.
func (m Multi) Fetch(ctx context.Context, keyword string) ([]image.Image, error) {
	return m.fetch(ctx, keyword, -1)
}

// FetchN implements Bounded. Later members are only asked for what the
// earlier ones left of n.
func (m Multi) FetchN(ctx context.Context, keyword string, n int) ([]image.Image, error) {
	return m.fetch(ctx, keyword, max(n, 0))
}

// fetch concatenates member results; n < 0 means unbounded.
func (m Multi) fetch(ctx context.Context, keyword string, n int) ([]image.Image, error) {
	var out []image.Image
	var errs []error
	for _, s := range m {
		var (
			imgs []image.Image
			err  error
		)
		if n >= 0 {
			if len(out) >= n {
				break
			}
			imgs, err = FetchN(ctx, s, keyword, n-len(out))
		} else {
			imgs, err = s.Fetch(ctx, keyword)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, imgs...)
	}
	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Capped limits a source to Limit images per keyword in total, however
// many members it combines.
type Capped struct {
	Source Source
	Limit  int // 0 means DefaultLimit
}

// Fetch implements Source.
func (c Capped) Fetch(ctx context.Context, keyword string) ([]image.Image, error) {
	return FetchN(ctx, c.Source, keyword, limitOr(c.Limit))
}

// NormalizeKeywords trims keywords, drops empty ones and removes duplicates
// while keeping first-seen order.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	var out []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}

// LoadPool fetches every keyword from src into a new pool. Keywords that
// yield no images are left out of the pool; the caller decides whether the
// result is usable (see asset.Pool.Validate).
func LoadPool(ctx context.Context, src Source, keywords []string, logger *log.Logger) (*asset.Pool, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	pool := asset.NewPool()
	for _, kw := range NormalizeKeywords(keywords) {
		imgs, err := src.Fetch(ctx, kw)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			logger.Warn("keyword unavailable", "keyword", kw, "err", err)
			continue
		}
		if len(imgs) == 0 {
			logger.Warn("no images for keyword", "keyword", kw)
			continue
		}
		for _, img := range imgs {
			pool.Add(kw, img)
		}
		logger.Info("loaded images", "keyword", kw, "count", pool.Count(kw))
	}
	return pool, nil
}

func limitOr(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

func discard(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return log.New(io.Discard)
}
