package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"image"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/matzehuels/postermill/pkg/asset"
	"github.com/matzehuels/postermill/pkg/cache"
	"github.com/matzehuels/postermill/pkg/composite"
	"github.com/matzehuels/postermill/pkg/errors"
	"github.com/matzehuels/postermill/pkg/fonts"
	"github.com/matzehuels/postermill/pkg/httputil"
	"github.com/matzehuels/postermill/pkg/observability"
	"github.com/matzehuels/postermill/pkg/poster"
	"github.com/matzehuels/postermill/pkg/sink"
	"github.com/matzehuels/postermill/pkg/source"
	"github.com/matzehuels/postermill/pkg/text"
)

// posterKeyType labels poster cache events for observability hooks.
const posterKeyType = "poster"

// Runner encapsulates pipeline execution with caching.
// Both the CLI and the server use it.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store run results. Multiple goroutines can safely use the same Runner
// with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Close releases the cache.
func (r *Runner) Close() error {
	return r.Cache.Close()
}

// Loaded is a validated configuration with its pool, ready to generate.
type Loaded struct {
	Options  Options
	Pool     *asset.Pool
	PoolHash string
	Batch    *poster.Batch
	LoadTime time.Duration
}

// Execute runs the complete load → generate → export pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	l, err := r.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	opts = l.Options

	result := &Result{
		RunID:    sink.NewRunID(),
		Seed:     opts.Seed,
		PoolHash: l.PoolHash,
		Keywords: l.Pool.Keywords(),
	}
	result.Stats.Images = l.Pool.Len()
	result.Stats.LoadTime = l.LoadTime

	// Stage 2: Generate
	batch, err := l.Batch.Run(ctx, opts.Count)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	result.Produced = len(batch.Posters)
	result.Discarded = len(batch.Failed)
	result.Stats.GenerateTime = batch.Duration

	if len(batch.Posters) == 0 {
		r.Logger.Warn("no posters generated", "requested", opts.Count)
		return result, nil
	}

	// Stage 3: Export
	exportStart := time.Now()
	s := &sink.FileSink{
		Format:      opts.Format,
		JPEGQuality: opts.JPEGQuality,
		Run: sink.RunInfo{
			ID:        result.RunID,
			Keywords:  opts.Keywords,
			Seed:      opts.Seed,
			Requested: opts.Count,
		},
		Logger: r.Logger,
	}
	dest := sink.RunDir(opts.Output, opts.Keywords, result.RunID)
	report, err := s.Export(ctx, batch.Posters, dest)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(errors.ErrCodeExportFailed, err, "export to %s", dest)
	}
	result.Export = report
	result.Stats.ExportTime = time.Since(exportStart)

	r.Logger.Info("exported posters",
		"dir", report.Dir,
		"files", len(report.Files),
		"failed", len(report.Failed),
		"duration", result.Stats.ExportTime)

	return result, nil
}

// Load validates opts, fetches the pool and prepares the batch.
func (r *Runner) Load(ctx context.Context, opts Options) (*Loaded, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	// Stage 1: Load
	start := time.Now()
	pool, err := source.LoadPool(ctx, r.Source(opts), opts.Keywords, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if err := pool.Validate(); err != nil {
		return nil, poolError(err)
	}
	loadTime := time.Since(start)

	r.Logger.Info("loaded pool",
		"keywords", len(pool.Keywords()),
		"images", pool.Len(),
		"duration", loadTime)

	batch, err := NewBatch(opts, pool, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &Loaded{
		Options:  opts,
		Pool:     pool,
		PoolHash: PoolHash(pool),
		Batch:    batch,
		LoadTime: loadTime,
	}, nil
}

// Source builds the image source described by opts: every directory in
// order, then the URL lists, capped at Sources.Limit images per keyword
// across all of them.
func (r *Runner) Source(opts Options) source.Source {
	var multi source.Multi
	for _, dir := range opts.Sources.Dirs {
		multi = append(multi, &source.DirSource{
			Root:   dir,
			Limit:  opts.Sources.Limit,
			Logger: r.Logger,
		})
	}
	if len(opts.Sources.URLs) > 0 {
		client := httputil.NewClient(r.Cache, "download", cache.TTLDownload, opts.HTTP.Headers).WithKeyer(r.Keyer)
		client.SetTimeout(opts.HTTP.Timeout)
		client.Refresh = opts.Refresh
		if opts.HTTP.Attempts > 0 {
			client.Attempts = opts.HTTP.Attempts
		}
		multi = append(multi, &source.URLSource{
			URLs:   opts.Sources.URLs,
			Client: client,
			Limit:  opts.Sources.Limit,
			Logger: r.Logger,
		})
	}
	return source.Capped{Source: multi, Limit: opts.Sources.Limit}
}

// NewBatch builds the poster batch for a validated configuration.
func NewBatch(opts Options, pool *asset.Pool, logger *log.Logger) (*poster.Batch, error) {
	b := &poster.Batch{
		Pool:       pool,
		Keywords:   opts.Keywords,
		Compositor: composite.New(opts.Engine()),
		Seed:       opts.Seed,
		Workers:    opts.Workers,
		Logger:     logger,
	}
	if opts.Text.Disable {
		return b, nil
	}
	fs, err := fonts.Load(opts.Text.Fonts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load fonts")
	}
	overlay := text.New(fs)
	overlay.MinFragments = opts.Text.MinFragments
	overlay.MaxFragments = opts.Text.MaxFragments
	b.Overlay = overlay
	return b, nil
}

// RenderPoster renders the single poster for seed and encodes it in format.
// Encoded posters are cached; the second return value reports a cache hit.
func (r *Runner) RenderPoster(ctx context.Context, l *Loaded, seed uint64, format string) ([]byte, bool, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, false, err
	}
	key := r.Keyer.PosterKey(cache.PosterKeyOpts{
		PoolHash: l.PoolHash,
		Keywords: l.Options.Keywords,
		Seed:     seed,
		Format:   format,
		Settings: l.Options.settingsHash(),
	})
	hooks := observability.Cache()
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		hooks.OnCacheHit(ctx, posterKeyType)
		return data, true, nil
	}
	hooks.OnCacheMiss(ctx, posterKeyType)

	b := *l.Batch
	b.Seed = seed
	p, err := b.Attempt(0)
	if err != nil {
		return nil, false, poolError(err)
	}

	var buf bytes.Buffer
	if err := sink.Encode(&buf, p.Image, format, l.Options.JPEGQuality); err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "encode poster")
	}
	data := buf.Bytes()
	if err := r.Cache.Set(ctx, key, data, cache.TTLPoster); err != nil {
		r.Logger.Debug("poster cache write failed", "seed", seed, "err", err)
	} else {
		hooks.OnCacheSet(ctx, posterKeyType, len(data))
	}
	return data, false, nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// poolError maps pool sampling failures to coded errors.
func poolError(err error) error {
	switch {
	case stderrors.Is(err, asset.ErrEmptyPool):
		return errors.Wrap(errors.ErrCodeEmptyPool, err, "no images could be loaded for any keyword")
	case stderrors.Is(err, asset.ErrEmptyForegroundSet):
		return errors.Wrap(errors.ErrCodeEmptyForegroundSet, err, "a keyword has no usable images")
	default:
		return errors.Wrap(errors.ErrCodeInternal, err, "render poster")
	}
}

// PoolHash fingerprints the pool's keywords and pixels.
func PoolHash(pool *asset.Pool) string {
	h := sha256.New()
	var dims [8]byte
	for _, kw := range pool.Keywords() {
		h.Write([]byte(kw))
		h.Write([]byte{0})
		for _, a := range pool.Assets(kw) {
			size := a.Size()
			binary.BigEndian.PutUint32(dims[:4], uint32(size.X))
			binary.BigEndian.PutUint32(dims[4:], uint32(size.Y))
			h.Write(dims[:])
			h.Write(pixels(a.Image))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func pixels(img image.Image) []byte {
	if n, ok := img.(*image.NRGBA); ok && n.Stride == 4*n.Rect.Dx() {
		return n.Pix
	}
	return imaging.Clone(img).Pix
}

// settingsHash covers every option besides the pool and seed that changes
// a poster's pixels.
func (o *Options) settingsHash() string {
	data, _ := json.Marshal(struct {
		Transform TransformOptions `json:"transform"`
		Text      TextOptions      `json:"text"`
		Quality   int              `json:"quality"`
	}{o.Transform, o.Text, o.JPEGQuality})
	return cache.Hash(data)
}
