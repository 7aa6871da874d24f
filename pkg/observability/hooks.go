// Package observability lets callers watch poster batches, cache traffic and
// image downloads without the core packages depending on a metrics or
// tracing backend.
//
// Core packages report events through [Batch], [Cache] and [HTTP]. The
// defaults discard everything; the CLI registers its own hooks before a
// run and calls [Reset] afterwards:
//
//	observability.SetBatchHooks(myHooks)
//	defer observability.Reset()
//
// [CacheCounters] is a ready-made [CacheHooks] that tallies hits and misses
// per key type.
package observability

import (
	"context"
	"sync"
	"time"
)

// Attempt summarizes one poster attempt.
type Attempt struct {
	Index     int
	Pasted    int   // foregrounds composited
	Skipped   int   // foregrounds skipped
	Fragments int   // text fragments drawn
	Err       error // non-nil when the attempt was discarded
}

// BatchHooks receives events from poster generation.
// OnAttemptComplete fires once per attempt, in completion order when
// attempts run in parallel.
type BatchHooks interface {
	OnBatchStart(ctx context.Context, count, workers int)
	OnAttemptComplete(ctx context.Context, a Attempt, duration time.Duration)
	OnBatchComplete(ctx context.Context, requested, produced int, duration time.Duration, err error)
	OnExport(ctx context.Context, path string, err error)
}

// CacheHooks receives cache lookups and writes. The key type names the
// cache user, "download" or "poster".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives image download events. OnError covers transport
// failures only; error statuses arrive through OnResponse.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopBatchHooks ignores all events. Embed it to implement a subset.
type NoopBatchHooks struct{}

func (NoopBatchHooks) OnBatchStart(context.Context, int, int)                          {}
func (NoopBatchHooks) OnBatchComplete(context.Context, int, int, time.Duration, error) {}
func (NoopBatchHooks) OnAttemptComplete(context.Context, Attempt, time.Duration)       {}
func (NoopBatchHooks) OnExport(context.Context, string, error)                         {}

// NoopCacheHooks ignores all events.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores all events.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// registry holds the active hooks. Core packages read it on every event,
// so lookups take only a read lock.
type registry struct {
	mu    sync.RWMutex
	batch BatchHooks
	cache CacheHooks
	http  HTTPHooks
}

func (r *registry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batch, r.cache, r.http = NoopBatchHooks{}, NoopCacheHooks{}, NoopHTTPHooks{}
}

var active = func() *registry {
	r := &registry{}
	r.reset()
	return r
}()

// SetBatchHooks registers batch hooks. A nil value is ignored.
func SetBatchHooks(h BatchHooks) {
	if h == nil {
		return
	}
	active.mu.Lock()
	active.batch = h
	active.mu.Unlock()
}

// SetCacheHooks registers cache hooks. A nil value is ignored.
func SetCacheHooks(h CacheHooks) {
	if h == nil {
		return
	}
	active.mu.Lock()
	active.cache = h
	active.mu.Unlock()
}

// SetHTTPHooks registers download hooks. A nil value is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h == nil {
		return
	}
	active.mu.Lock()
	active.http = h
	active.mu.Unlock()
}

// Batch returns the registered batch hooks.
func Batch() BatchHooks {
	active.mu.RLock()
	defer active.mu.RUnlock()
	return active.batch
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	active.mu.RLock()
	defer active.mu.RUnlock()
	return active.cache
}

// HTTP returns the registered download hooks.
func HTTP() HTTPHooks {
	active.mu.RLock()
	defer active.mu.RUnlock()
	return active.http
}

// Reset restores the no-op hooks.
func Reset() { active.reset() }
