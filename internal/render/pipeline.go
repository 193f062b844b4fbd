// Package render drives the streaming SSR pipeline: shell loading, prefetch,
// markup streaming with sentinel substitution, and the render session state
// machine that bounds and terminates every response.
package render

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/prefetch"
	"storefront/internal/querycache"
	"storefront/internal/session"
	"storefront/internal/view"
)

// errorPage is the fixed response for a shell-level render failure.
const errorPage = "<h1>Something went wrong</h1>"

// Pipeline is the catch-all HTML handler. One render session per request;
// the only shared state is the shell source and the renderer, both of which
// are read-only after construction.
type Pipeline struct {
	shell        Source
	renderer     view.Renderer
	orchestrator *prefetch.Orchestrator
	timeout      time.Duration
	metrics      *metrics.Metrics
}

// New assembles the pipeline. metrics may be nil.
func New(shell Source, renderer view.Renderer, orchestrator *prefetch.Orchestrator, timeout time.Duration, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		shell:        shell,
		renderer:     renderer,
		orchestrator: orchestrator,
		timeout:      timeout,
		metrics:      m,
	}
}

// ServeHTTP runs one render session:
//
//	START       load shell, substitute auth verdict, split head/tail
//	SHELL_SENT  head written, renderer started
//	STREAMING   chunks forwarded, sentinel watched for
//	ALL_READY   sentinel replaced by tail with the dehydrated snapshot
//	DONE        response ended
//
// A timer aborts the render after the configured timeout regardless of
// state; aborting after ALL_READY is a no-op. Writes go straight to the
// response; only the shell and the snapshot are ever held in memory.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	verdict := session.VerdictFromContext(r.Context())
	log := slog.With("path", r.URL.Path)

	sess := newRenderSession()
	log = log.With("render_id", sess.id)

	// Prefetch runs to completion before any rendering: the cache is
	// immutable input to the render, one instance per request.
	cache := querycache.New()
	if err := p.orchestrator.Populate(r.Context(), cache, r.URL.RawQuery); err != nil {
		// The page still renders; the client refetches after hydration.
		log.Warn("Prefetch failed", "error", err)
		p.metrics.RecordPrefetchFailure()
	}

	template, err := p.shell.Shell()
	if err != nil {
		log.Error("Shell template unavailable", "error", err)
		p.fail(w, sess, start)
		return
	}
	shell, err := SplitShell(template, verdict)
	if err != nil {
		log.Error("Shell template malformed", "error", err)
		p.fail(w, sess, start)
		return
	}

	stream, err := p.renderer.Render(r.Context(), view.Request{
		Path:    r.URL.Path,
		Query:   r.URL.Query(),
		Verdict: verdict,
		Cache:   cache,
	})
	if err != nil {
		// SHELL_ERROR: nothing was flushed, the response is still ours.
		log.Error("Renderer failed before first byte", "error", err)
		p.fail(w, sess, start)
		return
	}
	sess.setAbort(stream.Abort)

	timer := time.AfterFunc(p.timeout, func() {
		if sess.abort() {
			log.Warn("Render aborted by timeout", "timeout", p.timeout)
		}
	})
	defer timer.Stop()

	// Past this point the status line is fixed; later render faults are
	// logged and counted but cannot change it.
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	p.write(w, shell.Head())
	sess.to(StateShellSent)
	sess.to(StateStreaming)

	scanner := newSentinelScanner([]byte(view.Sentinel))
	for chunk := range stream.C {
		if chunk.Err != nil {
			sess.noteError()
			p.metrics.RecordStreamError()
			log.Error("Render error mid-stream", "error", chunk.Err)
		}
		if len(chunk.Data) == 0 {
			continue
		}

		before, after, found := scanner.Feed(chunk.Data)
		p.write(w, before)
		if found {
			// All streaming boundaries resolved: splice in the tail with
			// the snapshot, exactly once.
			p.write(w, shell.Tail(p.snapshot(cache, log)))
			p.write(w, after)
		}
	}

	outcome := p.finish(w, sess, scanner, shell)
	p.metrics.RecordRender(outcome, time.Since(start))
	log.Info("Render session finished", "outcome", outcome, "duration", time.Since(start))
}

// finish closes out the session once the stream has ended and returns the
// terminal outcome label.
func (p *Pipeline) finish(w http.ResponseWriter, sess *renderSession, scanner *sentinelScanner, shell *Shell) string {
	if scanner.Found() {
		sess.to(StateAllReady)
	} else {
		// Aborted or the renderer quit early: flush withheld bytes and
		// terminate the document. The query-state marker stays unresolved;
		// the snapshot is injected after the sentinel or not at all.
		sess.abort()
		p.write(w, scanner.Flush())
		p.write(w, shell.RawTail())
	}

	state := sess.current()
	sess.to(StateDone)
	if state == StateAllReady && sess.errored() {
		return "all_ready_with_errors"
	}
	return state.String()
}

// fail serves the fixed error page for a failure before any bytes went out.
func (p *Pipeline) fail(w http.ResponseWriter, sess *renderSession, start time.Time) {
	sess.to(StateShellError)
	sess.to(StateDone)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	p.write(w, []byte(errorPage))
	p.metrics.RecordRender(StateShellError.String(), time.Since(start))
}

func (p *Pipeline) snapshot(cache *querycache.Cache, log *slog.Logger) []byte {
	buf, err := json.Marshal(cache.Dehydrate())
	if err != nil {
		log.Error("Snapshot serialization failed", "error", err)
		return []byte(`{"mutations":[],"queries":[]}`)
	}
	return buf
}

// write forwards bytes to the live response and flushes. A write error means
// the client went away; the stream's context cancellation handles the rest.
func (p *Pipeline) write(w http.ResponseWriter, data []byte) {
	if len(data) == 0 {
		return
	}
	if _, err := w.Write(data); err != nil {
		return
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
