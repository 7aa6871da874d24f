// Package httputil downloads images over HTTP.
//
// [Client] fetches raw response bodies through a [cache.Cache], applies
// default headers, and retries transient failures (network errors, 5xx and
// 429 responses) with exponential backoff via [Retry]. Downloads are
// sequential; a Client is safe to share but never fans out on its own.
//
//	c := httputil.NewClient(cache.NewNullCache(), "download", cache.TTLDownload, nil)
//	data, err := c.GetBytes(ctx, "https://example.com/cat.jpg")
//
// Every request reports to the HTTP hooks in
// [github.com/matzehuels/postermill/pkg/observability], and cache lookups to
// the cache hooks.
package httputil
