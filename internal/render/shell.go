package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"storefront/internal/session"
)

// Shell markers. These are part of the wire contract with the HTML template
// and the client entrypoint; the pipeline matches them byte for byte.
const (
	MarkerAuth       = "<!--app-preloaded-auth-data-->"
	MarkerApp        = "<!--app-html-->"
	MarkerQueryState = "<!--preloaded-query-state-->"
)

// Source supplies the HTML shell template for a render.
type Source interface {
	Shell() ([]byte, error)
}

type staticSource struct {
	data []byte
}

// Static returns a Source serving fixed shell bytes, loaded once at process
// start. This is the production source.
func Static(data []byte) Source {
	return staticSource{data: data}
}

func (s staticSource) Shell() ([]byte, error) {
	return s.data, nil
}

// WatchSource serves the shell from a file on disk and invalidates its cache
// when the file changes, so edits show up on the next request. This is the
// development source.
type WatchSource struct {
	path    string
	watcher *fsnotify.Watcher

	mu     sync.RWMutex
	cached []byte
}

// Watch opens the shell file and starts watching its directory for changes.
// Watching the directory rather than the file survives editors that replace
// the file on save.
func Watch(path string) (*WatchSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shell template: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create shell watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch shell directory: %w", err)
	}

	s := &WatchSource{path: path, watcher: watcher, cached: data}
	go s.watch()
	return s, nil
}

func (s *WatchSource) watch() {
	name := filepath.Base(s.path)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				s.mu.Lock()
				s.cached = nil
				s.mu.Unlock()
				slog.Debug("Shell template invalidated", "event", event.Op.String())
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Shell watcher error", "error", err)
		}
	}
}

// Shell returns the cached template, re-reading the file after an
// invalidation.
func (s *WatchSource) Shell() ([]byte, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reload shell template: %w", err)
	}

	s.mu.Lock()
	s.cached = data
	s.mu.Unlock()
	return data, nil
}

// Close stops the watcher.
func (s *WatchSource) Close() error {
	return s.watcher.Close()
}

// Shell is one request's template split around the application markup
// marker, with the auth verdict already substituted into the head.
type Shell struct {
	head []byte
	tail []byte
}

// SplitShell substitutes the serialized verdict for the auth marker and
// splits the template at the app marker. The tail still carries the
// query-state marker; it is resolved only when streaming completes.
func SplitShell(template []byte, verdict session.Verdict) (*Shell, error) {
	verdictJSON, err := json.Marshal(verdict)
	if err != nil {
		return nil, fmt.Errorf("encode auth verdict: %w", err)
	}
	template = bytes.Replace(template, []byte(MarkerAuth), verdictJSON, 1)

	head, tail, found := bytes.Cut(template, []byte(MarkerApp))
	if !found {
		return nil, fmt.Errorf("shell template missing %s marker", MarkerApp)
	}
	return &Shell{head: head, tail: tail}, nil
}

// Head is everything before the application markup.
func (s *Shell) Head() []byte {
	return s.head
}

// Tail returns the closing shell with the dehydrated snapshot embedded in
// place of the query-state marker. json.Marshal escapes <, > and & inside
// strings, so the embed cannot break out of the script element.
func (s *Shell) Tail(snapshot []byte) []byte {
	embed := append([]byte("<script>window.__PRELOADED_QUERY_STATE__ = "), snapshot...)
	embed = append(embed, []byte("</script>")...)
	return bytes.Replace(s.tail, []byte(MarkerQueryState), embed, 1)
}

// RawTail returns the closing shell with the query-state marker left in
// place. Used when the stream ends without the sentinel (abort, timeout):
// the document still terminates well-formed, and the client refetches.
func (s *Shell) RawTail() []byte {
	return s.tail
}
