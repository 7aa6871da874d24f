package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/postermill/pkg/errors"
	"github.com/matzehuels/postermill/pkg/observability"
	"github.com/matzehuels/postermill/pkg/pipeline"
)

// generateFlags holds the command-line flags for the generate command.
// A flag only overrides the config file when it was set explicitly.
type generateFlags struct {
	count       int      // poster attempts
	seed        uint64   // batch seed; 0 picks one
	workers     int      // parallel attempts
	output      string   // root for run directories
	format      string   // image format
	jpegQuality int      // jpeg quality 1-100
	dirs        []string // image source roots
	limit       int      // images per keyword
	fonts       []string // font files
	continuous  bool     // continuous size ratios
	maxAngle    int      // rotation bound in degrees
	noText      bool     // skip the text overlay
	noCache     bool     // disable the download cache
	refresh     bool     // re-download cached images
}

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	var f generateFlags

	cmd := &cobra.Command{
		Use:   "generate [keywords...]",
		Short: "Generate a batch of posters",
		Long: `Generate a batch of posters from keyword image sets.

Images for each keyword are read from <dir>/<keyword>/ for every --dir and
from the URL lists in the config file. Posters are written as 0.png, 1.png,
... together with a manifest.json into a new directory under --output.

Keywords given as arguments replace the keywords from the config file.
Attempts that fail are discarded, so a run can produce fewer posters than
requested.

Poster text uses the embedded Go fonts, which cover Latin scripts only.
For other scripts, such as Chinese keywords, pass fonts that contain the
glyphs with --font; otherwise the text overlay is skipped with a warning.`,
		Example: `  postermill generate sunset beach --dir ./images -n 20
  postermill generate --config campaign.toml --seed 42 --workers 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.loadOptions()
			if err != nil {
				return err
			}
			if err := f.apply(cmd, args, &opts); err != nil {
				return err
			}
			return c.runGenerate(cmd.Context(), opts, f.noCache)
		},
	}

	cmd.Flags().IntVarP(&f.count, "count", "n", pipeline.DefaultCount, "number of poster attempts (at least 1)")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "random seed (0 picks one; printed after the run)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", pipeline.DefaultWorkers, "attempts generated in parallel")
	cmd.Flags().StringVarP(&f.output, "output", "o", pipeline.DefaultOutput, "directory run folders are created in")
	cmd.Flags().StringVarP(&f.format, "format", "f", pipeline.DefaultFormat, "image format: png, jpg, gif, tif, bmp")
	cmd.Flags().IntVar(&f.jpegQuality, "jpeg-quality", 0, "jpeg quality 1-100")
	cmd.Flags().StringSliceVarP(&f.dirs, "dir", "d", nil, "image directory holding one folder per keyword (repeatable)")
	cmd.Flags().IntVar(&f.limit, "limit", pipeline.DefaultLimit, "images loaded per keyword")
	cmd.Flags().StringSliceVar(&f.fonts, "font", nil, "TTF/OTF font for poster text; needed for keywords outside Latin scripts (repeatable)")
	cmd.Flags().BoolVar(&f.continuous, "continuous", false, "draw size ratios from a continuous range")
	cmd.Flags().IntVar(&f.maxAngle, "max-angle", 0, "maximum rotation in degrees (negative disables rotation)")
	cmd.Flags().BoolVar(&f.noText, "no-text", false, "skip the text overlay")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the download cache")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "re-download cached images")
	registerPosterCompletions(cmd)

	return cmd
}

// apply copies explicitly set flags and positional keywords onto opts. An
// explicit --count must be positive; only an absent count falls back to
// the config file or the default.
func (f *generateFlags) apply(cmd *cobra.Command, args []string, opts *pipeline.Options) error {
	changed := cmd.Flags().Changed
	if len(args) > 0 {
		opts.Keywords = args
	}
	if changed("count") {
		if f.count <= 0 {
			return errors.New(errors.ErrCodeInvalidInput, "--count must be at least 1, got %d", f.count)
		}
		opts.Count = f.count
	}
	if changed("seed") {
		opts.Seed = f.seed
	}
	if changed("workers") {
		opts.Workers = f.workers
	}
	if changed("output") {
		opts.Output = f.output
	}
	if changed("format") {
		opts.Format = f.format
	}
	if changed("jpeg-quality") {
		opts.JPEGQuality = f.jpegQuality
	}
	if changed("dir") {
		opts.Sources.Dirs = f.dirs
	}
	if changed("limit") {
		opts.Sources.Limit = f.limit
	}
	if changed("font") {
		opts.Text.Fonts = f.fonts
	}
	if changed("continuous") {
		opts.Transform.Continuous = f.continuous
	}
	if changed("max-angle") {
		opts.Transform.MaxAngle = f.maxAngle
	}
	if changed("no-text") {
		opts.Text.Disable = f.noText
	}
	if changed("refresh") {
		opts.Refresh = f.refresh
	}
	return nil
}

// runGenerate executes the pipeline and prints a summary.
func (c *CLI) runGenerate(ctx context.Context, opts pipeline.Options, noCache bool) error {
	runner, err := c.newRunner(ctx, opts, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	observability.SetBatchHooks(newLogHooks(c.Logger))
	defer observability.Reset()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, os.Stderr, "Generating posters...")
	spinner.Start()
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Generation failed")
		return err
	}
	spinner.Stop()
	prog.done("Run finished")

	printBatchStats(result)
	if result.Export == nil {
		printWarning("No posters were generated")
		return nil
	}

	printSuccess("Wrote %d posters", len(result.Export.Files))
	printFile(result.Export.Dir)
	printFile(result.Export.Manifest)
	for _, fail := range result.Export.Failed {
		printWarning("Poster %d could not be written: %v", fail.Index, fail.Err)
	}
	printNewline()
	printKeyValue("Keywords", strings.Join(result.Keywords, ", "))
	printKeyValue("Seed", fmt.Sprint(result.Seed))
	printKeyValue("Run", result.RunID)
	printNewline()
	printNextStep("Reproduce this run", reproduceCommand(opts.Keywords, result.Seed))
	return nil
}

// reproduceCommand returns the generate invocation that repeats a run's seed.
func reproduceCommand(keywords []string, seed uint64) string {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		if strings.ContainsAny(kw, " \t'\"") {
			kw = strconv.Quote(kw)
		}
		quoted[i] = kw
	}
	return fmt.Sprintf("%s generate %s --seed %d", appName, strings.Join(quoted, " "), seed)
}
