package source

import (
	"bytes"
	"context"
	"image"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/matzehuels/postermill/pkg/cache"
	"github.com/matzehuels/postermill/pkg/httputil"
)

// URLSource downloads explicit image URLs per keyword, one at a time.
type URLSource struct {
	URLs   map[string][]string
	Client *httputil.Client
	Limit  int // decoded images per keyword; 0 means DefaultLimit
	Logger *log.Logger
}

// Fetch implements Source. Downloads stop once Limit images decoded.
func (s *URLSource) Fetch(ctx context.Context, keyword string) ([]image.Image, error) {
	return s.FetchN(ctx, keyword, limitOr(s.Limit))
}

// FetchN implements Bounded. Downloads stop once min(n, Limit) images decoded.
func (s *URLSource) FetchN(ctx context.Context, keyword string, n int) ([]image.Image, error) {
	client := s.Client
	if client == nil {
		client = httputil.NewClient(nil, "download", cache.TTLDownload, nil)
	}
	logger := discard(s.Logger)
	limit := min(n, limitOr(s.Limit))

	var out []image.Image
	for _, u := range s.URLs[keyword] {
		if len(out) >= limit {
			break
		}
		data, err := client.GetBytes(ctx, u)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			logger.Debug("download failed", "url", u, "err", err)
			continue
		}
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			logger.Debug("undecodable image", "url", u, "err", err)
			continue
		}
		out = append(out, img)
	}
	return out, nil
}
