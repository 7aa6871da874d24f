package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/postermill/pkg/buildinfo"
	"github.com/matzehuels/postermill/pkg/errors"
	"github.com/matzehuels/postermill/pkg/observability"
	"github.com/matzehuels/postermill/pkg/pipeline"
)

const (
	defaultAddr     = "127.0.0.1:8080"
	shutdownTimeout = 10 * time.Second
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		f    generateFlags
		addr string
	)

	cmd := &cobra.Command{
		Use:   "serve [keywords...]",
		Short: "Serve posters over HTTP",
		Long: `Load the image pool once and render posters on request.

Routes:
  GET /healthz                     liveness and version
  GET /api/keywords                keywords and image counts in the pool
  GET /api/stats                   cache hits and misses since startup
  GET /api/posters/random          redirect to a poster with a fresh seed
  GET /api/posters/{seed}.{format} the poster for a seed (png or jpg)

A seed always renders the same poster for the same pool and settings, so
rendered posters are cached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.loadOptions()
			if err != nil {
				return err
			}
			if err := f.apply(cmd, args, &opts); err != nil {
				return err
			}
			return c.runServe(cmd.Context(), addr, opts, f.noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringSliceVarP(&f.dirs, "dir", "d", nil, "image directory holding one folder per keyword (repeatable)")
	cmd.Flags().IntVar(&f.limit, "limit", pipeline.DefaultLimit, "images loaded per keyword")
	cmd.Flags().StringSliceVar(&f.fonts, "font", nil, "TTF/OTF font for poster text; needed for keywords outside Latin scripts (repeatable)")
	cmd.Flags().BoolVar(&f.continuous, "continuous", false, "draw size ratios from a continuous range")
	cmd.Flags().IntVar(&f.maxAngle, "max-angle", 0, "maximum rotation in degrees (negative disables rotation)")
	cmd.Flags().BoolVar(&f.noText, "no-text", false, "skip the text overlay")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the download and poster cache")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "re-download cached images")
	registerPosterCompletions(cmd)

	return cmd
}

// runServe loads the pool and serves until ctx is cancelled.
func (c *CLI) runServe(ctx context.Context, addr string, opts pipeline.Options, noCache bool) error {
	runner, err := c.newRunner(ctx, opts, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	stats := &observability.CacheCounters{}
	observability.SetBatchHooks(newLogHooks(c.Logger))
	observability.SetCacheHooks(stats)
	defer observability.Reset()

	spinner := newSpinnerWithContext(ctx, os.Stderr, "Loading images...")
	spinner.Start()
	loaded, err := runner.Load(ctx, opts)
	if err != nil {
		spinner.StopWithError("Could not load the image pool")
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Loaded %d images for %d keywords", loaded.Pool.Len(), len(loaded.Pool.Keywords())))

	srv := &http.Server{
		Addr:              addr,
		Handler:           newServer(runner, loaded, stats, c.Logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	printInfo("Listening on %s", StyleLink.Render("http://"+addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// server renders posters from a preloaded pool.
type server struct {
	runner *pipeline.Runner
	loaded *pipeline.Loaded
	stats  *observability.CacheCounters
	logger *log.Logger
}

func newServer(runner *pipeline.Runner, loaded *pipeline.Loaded, stats *observability.CacheCounters, logger *log.Logger) *server {
	if stats == nil {
		stats = &observability.CacheCounters{}
	}
	return &server{runner: runner, loaded: loaded, stats: stats, logger: logger}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.logRequests, middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/keywords", s.keywords)
		r.Get("/stats", s.cacheStats)
		r.Get("/posters/random", s.randomPoster)
		r.Get("/posters/{seed:[0-9]+}.{format}", s.poster)
	})
	return r
}

type keywordInfo struct {
	Keyword string `json:"keyword"`
	Images  int    `json:"images"`
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *server) keywords(w http.ResponseWriter, r *http.Request) {
	pool := s.loaded.Pool
	out := make([]keywordInfo, 0, len(pool.Keywords()))
	for _, kw := range pool.Keywords() {
		out = append(out, keywordInfo{Keyword: kw, Images: pool.Count(kw)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"keywords": out,
		"pool":     s.loaded.PoolHash,
	})
}

func (s *server) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func (s *server) randomPoster(w http.ResponseWriter, r *http.Request) {
	target := fmt.Sprintf("/api/posters/%d.png", pipeline.NewSeed())
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *server) poster(w http.ResponseWriter, r *http.Request) {
	seed, err := strconv.ParseUint(chi.URLParam(r, "seed"), 10, 64)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid seed"))
		return
	}
	format := chi.URLParam(r, "format")

	data, hit, err := s.runner.RenderPoster(r.Context(), s.loaded, seed, format)
	if err != nil {
		s.logger.Warn("render failed", "seed", seed, "err", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// logRequests logs each request with the charm logger.
func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
			"id", middleware.GetReqID(r.Context()))
	})
}

func contentType(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tif", "tiff":
		return "image/tiff"
	default:
		return "image/png"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, errors.HTTPStatus(err), map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(code),
	})
}
