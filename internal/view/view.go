// Package view renders the application markup for a route as a chunked byte
// stream. The render pipeline treats it as a black box: it hands over a
// request and receives a stream plus an abort handle.
package view

import (
	"context"
	"net/url"
	"sync"

	"storefront/internal/querycache"
	"storefront/internal/session"
)

// Sentinel is emitted as the final element of a completed stream. The render
// pipeline watches for it to know every streaming boundary has resolved.
const Sentinel = "<streaming-end></streaming-end>"

// Request carries everything a render needs. The cache is read-only by the
// time it arrives here; prefetch has already completed.
type Request struct {
	Path    string
	Query   url.Values
	Verdict session.Verdict
	Cache   *querycache.Cache
}

// Chunk is one piece of rendered markup. A non-nil Err reports a recoverable
// render fault; the stream may keep producing after it.
type Chunk struct {
	Data []byte
	Err  error
}

// Stream is a running render. C is closed when the tree has fully resolved
// or the render was aborted.
type Stream struct {
	C <-chan Chunk

	cancel    context.CancelFunc
	abortOnce sync.Once
}

// NewStream wraps a chunk channel and a cancellation hook. The producer must
// close the channel when it stops, aborted or not.
func NewStream(c <-chan Chunk, cancel context.CancelFunc) *Stream {
	return &Stream{C: c, cancel: cancel}
}

// Abort stops the renderer from producing further chunks. Aborting a
// finished stream is a no-op; calling it twice is safe.
func (s *Stream) Abort() {
	s.abortOnce.Do(s.cancel)
}

// Renderer produces the markup stream for a request.
//
// A non-nil error means the renderer could not produce even the initial
// markup; no chunk has been emitted and the caller still owns the response.
type Renderer interface {
	Render(ctx context.Context, req Request) (*Stream, error)
}
