package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Batch hooks
	b := NoopBatchHooks{}
	b.OnBatchStart(ctx, 5, 1)
	b.OnAttemptComplete(ctx, Attempt{Index: 0, Pasted: 3, Fragments: 4}, time.Second)
	b.OnAttemptComplete(ctx, Attempt{Index: 1, Err: errors.New("boom")}, time.Second)
	b.OnBatchComplete(ctx, 5, 4, time.Second, nil)
	b.OnExport(ctx, "out/0.png", nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "download")
	c.OnCacheMiss(ctx, "download")
	c.OnCacheSet(ctx, "download", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "example.com", "/cat.jpg")
	h.OnResponse(ctx, "GET", "example.com", "/cat.jpg", 200, time.Second)
	h.OnError(ctx, "GET", "example.com", "/cat.jpg", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Batch().(NoopBatchHooks); !ok {
		t.Error("Batch() should return NoopBatchHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customBatch := &testBatchHooks{}
	SetBatchHooks(customBatch)
	if Batch() != customBatch {
		t.Error("SetBatchHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Batch().(NoopBatchHooks); !ok {
		t.Error("Reset() should restore NoopBatchHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testBatchHooks{}
	SetBatchHooks(custom)

	// Setting nil should be ignored
	SetBatchHooks(nil)

	if Batch() != custom {
		t.Error("SetBatchHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testBatchHooks struct{ NoopBatchHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
