package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/postermill/pkg/observability"
)

// logHooks reports batch events to the CLI logger at debug level.
type logHooks struct {
	logger *log.Logger
}

func newLogHooks(l *log.Logger) observability.BatchHooks {
	return &logHooks{logger: l}
}

func (h *logHooks) OnBatchStart(_ context.Context, count, workers int) {
	h.logger.Debug("batch started", "count", count, "workers", workers)
}

func (h *logHooks) OnBatchComplete(_ context.Context, requested, produced int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("batch stopped", "requested", requested, "produced", produced, "duration", d, "err", err)
		return
	}
	h.logger.Debug("batch complete", "requested", requested, "produced", produced, "duration", d)
}

func (h *logHooks) OnAttemptComplete(_ context.Context, a observability.Attempt, d time.Duration) {
	if a.Err != nil {
		h.logger.Debug("attempt discarded", "attempt", a.Index, "duration", d, "err", a.Err)
		return
	}
	h.logger.Debug("attempt complete",
		"attempt", a.Index,
		"pasted", a.Pasted,
		"skipped", a.Skipped,
		"fragments", a.Fragments,
		"duration", d.Round(time.Millisecond))
}

func (h *logHooks) OnExport(_ context.Context, path string, err error) {
	if err != nil {
		return // the sink already warns
	}
	h.logger.Debug("wrote poster", "path", path)
}
