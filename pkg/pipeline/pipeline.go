// Package pipeline runs the poster pipeline for the CLI and the HTTP server.
//
// A run has three stages:
//
//  1. Load: fetch images per keyword from the configured sources into an
//     asset pool
//  2. Generate: run the poster batch against the pool
//  3. Export: write the posters and a manifest to a per-run directory
//
// [Options] is the single place defaults are decided. It decodes from a TOML
// file (see [LoadConfig]) and is overridden by CLI flags.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	opts := pipeline.Options{
//	    Keywords: []string{"sunset", "beach"},
//	    Count:    10,
//	    Sources:  pipeline.SourceOptions{Dirs: []string{"./images"}},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Export.Dir)
package pipeline

import (
	"io"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/postermill/pkg/cache"
	"github.com/matzehuels/postermill/pkg/errors"
	"github.com/matzehuels/postermill/pkg/httputil"
	"github.com/matzehuels/postermill/pkg/sink"
	"github.com/matzehuels/postermill/pkg/source"
	"github.com/matzehuels/postermill/pkg/text"
	"github.com/matzehuels/postermill/pkg/transform"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultCount is the number of poster attempts per run.
	DefaultCount = 10

	// DefaultWorkers runs attempts sequentially.
	DefaultWorkers = 1

	// DefaultOutput is the root under which run directories are created.
	DefaultOutput = "."

	// DefaultFormat is the output image format.
	DefaultFormat = sink.DefaultFormat

	// DefaultLimit is the number of images loaded per keyword.
	DefaultLimit = source.DefaultLimit

	// DefaultTimeout is the per-request download timeout.
	DefaultTimeout = httputil.DefaultTimeout

	// MaxWorkers caps attempt parallelism.
	MaxWorkers = 64
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a poster run.
// It decodes from TOML; see LoadConfig.
type Options struct {
	Keywords    []string `toml:"keywords" json:"keywords"`
	Count       int      `toml:"count" json:"count,omitempty"`
	Seed        uint64   `toml:"seed" json:"seed,omitempty"` // 0 picks a random seed
	Workers     int      `toml:"workers" json:"workers,omitempty"`
	Output      string   `toml:"output" json:"output,omitempty"`
	Format      string   `toml:"format" json:"format,omitempty"`
	JPEGQuality int      `toml:"jpeg_quality" json:"jpeg_quality,omitempty"`
	Refresh     bool     `toml:"refresh" json:"refresh,omitempty"` // bypass the download cache

	Sources   SourceOptions    `toml:"sources" json:"sources"`
	HTTP      HTTPOptions      `toml:"http" json:"http"`
	Cache     CacheOptions     `toml:"cache" json:"cache"`
	Transform TransformOptions `toml:"transform" json:"transform"`
	Text      TextOptions      `toml:"text" json:"text"`

	// Runtime options (not serialized)
	Logger *log.Logger `toml:"-" json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// SourceOptions selects where images come from. Directories are read before
// URL lists.
type SourceOptions struct {
	Dirs  []string            `toml:"dirs" json:"dirs,omitempty"` // roots holding one subdirectory per keyword
	URLs  map[string][]string `toml:"urls" json:"urls,omitempty"` // keyword -> image URLs
	Limit int                 `toml:"limit" json:"limit,omitempty"`
}

// HTTPOptions configures image downloads.
type HTTPOptions struct {
	Timeout  time.Duration     `toml:"timeout" json:"timeout,omitempty"`
	Attempts int               `toml:"attempts" json:"attempts,omitempty"`
	Headers  map[string]string `toml:"headers" json:"headers,omitempty"`
}

// CacheOptions selects the download cache backend.
type CacheOptions struct {
	Backend  string `toml:"backend" json:"backend,omitempty"` // file, redis or none
	Dir      string `toml:"dir" json:"dir,omitempty"`
	RedisURL string `toml:"redis_url" json:"-"`
	Prefix   string `toml:"prefix" json:"prefix,omitempty"` // namespaces keys in a shared backend
}

// TransformOptions configures foreground placement.
type TransformOptions struct {
	Continuous bool      `toml:"continuous" json:"continuous,omitempty"`
	Ratios     []float64 `toml:"ratios" json:"ratios,omitempty"`
	MinRatio   float64   `toml:"min_ratio" json:"min_ratio,omitempty"`
	MaxRatio   float64   `toml:"max_ratio" json:"max_ratio,omitempty"`
	MaxAngle   int       `toml:"max_angle" json:"max_angle,omitempty"` // negative disables rotation
}

// TextOptions configures the text overlay.
type TextOptions struct {
	Disable      bool     `toml:"disable" json:"disable,omitempty"`
	Fonts        []string `toml:"fonts" json:"fonts,omitempty"` // font files; empty uses the embedded Go fonts
	MinFragments int      `toml:"min_fragments" json:"min_fragments,omitempty"`
	MaxFragments int      `toml:"max_fragments" json:"max_fragments,omitempty"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the run; the output directory name ends with its prefix.
	RunID string

	// Seed is the batch seed actually used.
	Seed uint64

	// PoolHash identifies the loaded pool contents.
	PoolHash string

	// Keywords holds the keywords that produced at least one image.
	Keywords []string

	// Produced is the number of posters generated.
	Produced int

	// Discarded is the number of attempts that failed.
	Discarded int

	// Export is the sink report. Nil when nothing was exported.
	Export *sink.Report

	// Stats contains timing information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Images       int
	LoadTime     time.Duration
	GenerateTime time.Duration
	ExportTime   time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format can be encoded.
func ValidateFormat(format string) error {
	if _, _, err := sink.ParseFormat(format); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid format %q (must be one of: png, jpg, gif, tif, bmp)", format)
	}
	return nil
}

// ValidateCacheBackend checks that a cache backend name is known.
func ValidateCacheBackend(backend string) error {
	switch backend {
	case "", cache.BackendFile, cache.BackendRedis, cache.BackendNone:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidConfig, "invalid cache backend %q (must be one of: file, redis, none)", backend)
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	o.Keywords = source.NormalizeKeywords(o.Keywords)
	if err := errors.ValidateKeywords(o.Keywords); err != nil {
		return err
	}

	if o.Count < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "count must be non-negative, got %d", o.Count)
	}
	if o.Count == 0 {
		o.Count = DefaultCount
	}
	if o.Workers < 0 || o.Workers > MaxWorkers {
		return errors.New(errors.ErrCodeInvalidInput, "workers must be between 0 and %d, got %d", MaxWorkers, o.Workers)
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.Seed == 0 {
		o.Seed = NewSeed()
	}

	if err := o.setOutputDefaults(); err != nil {
		return err
	}
	if err := o.validateSources(); err != nil {
		return err
	}
	if err := o.validateTransform(); err != nil {
		return err
	}
	if err := o.validateText(); err != nil {
		return err
	}
	if err := ValidateCacheBackend(o.Cache.Backend); err != nil {
		return err
	}
	if o.Cache.Backend == cache.BackendRedis && o.Cache.RedisURL == "" {
		return errors.Wrap(errors.ErrCodeInvalidConfig, cache.ErrMissingURL, "redis cache needs a URL")
	}

	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	o.validated = true
	return nil
}

func (o *Options) setOutputDefaults() error {
	if o.Output == "" {
		o.Output = DefaultOutput
	}
	if err := errors.ValidatePath(o.Output); err != nil {
		return err
	}
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if err := ValidateFormat(o.Format); err != nil {
		return err
	}
	if o.JPEGQuality < 0 || o.JPEGQuality > 100 {
		return errors.New(errors.ErrCodeInvalidConfig, "jpeg_quality must be between 1 and 100, got %d", o.JPEGQuality)
	}
	if o.JPEGQuality == 0 {
		o.JPEGQuality = sink.DefaultJPEGQuality
	}
	return nil
}

func (o *Options) validateSources() error {
	s := &o.Sources
	if len(s.Dirs) == 0 && len(s.URLs) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "no image sources configured (set sources.dirs or sources.urls)")
	}
	for _, dir := range s.Dirs {
		if err := errors.ValidatePath(dir); err != nil {
			return err
		}
	}
	for kw, urls := range s.URLs {
		for _, u := range urls {
			if err := errors.ValidateURL(u); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidConfig, err, "sources.urls[%q]", kw)
			}
		}
	}
	if s.Limit < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "sources.limit must be non-negative, got %d", s.Limit)
	}
	if s.Limit == 0 {
		s.Limit = DefaultLimit
	}

	if o.HTTP.Timeout < 0 || o.HTTP.Attempts < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "http timeout and attempts must be non-negative")
	}
	if o.HTTP.Timeout == 0 {
		o.HTTP.Timeout = DefaultTimeout
	}
	if o.HTTP.Attempts == 0 {
		o.HTTP.Attempts = httputil.DefaultAttempts
	}
	return nil
}

func (o *Options) validateTransform() error {
	t := &o.Transform
	for _, r := range t.Ratios {
		if r <= 0 || r > 1 {
			return errors.New(errors.ErrCodeInvalidConfig, "transform ratio %v outside (0, 1]", r)
		}
	}
	if t.MinRatio == 0 && t.MaxRatio == 0 {
		t.MinRatio, t.MaxRatio = transform.DefaultMinRatio, transform.DefaultMaxRatio
	}
	if t.MinRatio <= 0 || t.MaxRatio > 1 || t.MinRatio > t.MaxRatio {
		return errors.New(errors.ErrCodeInvalidConfig, "transform ratio range [%v, %v] is invalid", t.MinRatio, t.MaxRatio)
	}
	if t.MaxAngle > 180 {
		return errors.New(errors.ErrCodeInvalidConfig, "transform max_angle must be at most 180, got %d", t.MaxAngle)
	}
	if t.MaxAngle == 0 {
		t.MaxAngle = transform.DefaultMaxAngle
	}
	return nil
}

func (o *Options) validateText() error {
	t := &o.Text
	for _, f := range t.Fonts {
		if err := errors.ValidatePath(f); err != nil {
			return err
		}
	}
	if t.MinFragments == 0 {
		t.MinFragments = text.DefaultMinFragments
	}
	if t.MaxFragments == 0 {
		t.MaxFragments = text.DefaultMaxFragments
	}
	if t.MinFragments < 1 || t.MaxFragments < t.MinFragments {
		return errors.New(errors.ErrCodeInvalidConfig, "text fragment range [%d, %d] is invalid", t.MinFragments, t.MaxFragments)
	}
	return nil
}

// CacheConfig returns the cache backend configuration.
func (o *Options) CacheConfig() cache.Config {
	return cache.Config{
		Backend:  o.Cache.Backend,
		Dir:      o.Cache.Dir,
		RedisURL: o.Cache.RedisURL,
	}
}

// Keyer returns the cache keyer, scoped by Cache.Prefix when one is set.
func (o *Options) Keyer() cache.Keyer {
	if o.Cache.Prefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), o.Cache.Prefix)
}

// Engine returns the transform engine described by the options.
func (o *Options) Engine() *transform.Engine {
	e := transform.NewEngine()
	if len(o.Transform.Ratios) > 0 {
		e.Ratios = append([]float64(nil), o.Transform.Ratios...)
	}
	e.Continuous = o.Transform.Continuous
	if o.Transform.MinRatio > 0 {
		e.MinRatio = o.Transform.MinRatio
	}
	if o.Transform.MaxRatio > 0 {
		e.MaxRatio = o.Transform.MaxRatio
	}
	switch {
	case o.Transform.MaxAngle < 0:
		e.MaxAngle = 0
	case o.Transform.MaxAngle > 0:
		e.MaxAngle = o.Transform.MaxAngle
	}
	return e
}

// NewSeed returns a random non-zero seed.
func NewSeed() uint64 {
	for {
		if s := rand.Uint64(); s != 0 {
			return s
		}
	}
}
