// Package pkg provides the core libraries for postermill collage posters.
//
// # Overview
//
// Postermill builds randomized collage posters from keyword image sets. Each
// poster samples one image per keyword and copies one of them as the
// background. The whole sampled set, including the background's source
// image, is then scaled, rotated and pasted on top, and fragments of the
// keywords are drawn over the result. The pkg directory is organized as:
//
//  1. [asset], [source] - Keyword image pools and where they come from
//  2. [transform], [composite], [text] - Building a single poster
//  3. [poster], [sink] - Batches of posters and writing them out
//  4. [pipeline] - Orchestration used by the CLI and the HTTP server
//  5. [cache], [httputil] - Download and render caching
//
// # Architecture
//
// The typical data flow:
//
//	Keyword directories / URL lists
//	         ↓
//	    [source] package (load images per keyword)
//	         ↓
//	    [asset] package (pool, background and foreground sampling)
//	         ↓
//	    [poster] package (transform, composite, text per attempt)
//	         ↓
//	    [sink] package (numbered images + manifest.json)
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/postermill/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(context.Background(), pipeline.Options{
//	    Keywords: []string{"sunset", "beach"},
//	    Count:    10,
//	    Sources:  pipeline.SourceOptions{Dirs: []string{"./images"}},
//	})
//
// Every run is reproducible: the same pool, settings and [pipeline.Options]
// Seed produce the same posters regardless of the worker count.
//
// # Supporting Packages
//
// [random] - Seeded random sources. Each attempt derives its own stream from
// the batch seed.
//
// [fonts] - Typefaces for the text overlay, either embedded or loaded from
// font files.
//
// [errors] - Coded errors with user messages and HTTP status mapping.
//
// [observability] - Hooks for batch, cache and HTTP events.
//
// [buildinfo] - Version data stamped in at link time.
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/poster/...             # Specific package
//	go test -run Example                 # Examples only
//
// [asset]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/asset
// [source]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/source
// [transform]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/transform
// [composite]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/composite
// [text]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/text
// [poster]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/poster
// [sink]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/sink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/httputil
// [random]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/random
// [fonts]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/fonts
// [errors]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/postermill/pkg/buildinfo
package pkg
