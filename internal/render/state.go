package render

import (
	"sync"

	"github.com/google/uuid"
)

// State is a stage of one render session.
type State int

const (
	StateStart State = iota
	StateShellSent
	StateStreaming
	StateAllReady
	StateShellError
	StateAborted
	StateDone
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateShellSent:
		return "shell_sent"
	case StateStreaming:
		return "streaming"
	case StateAllReady:
		return "all_ready"
	case StateShellError:
		return "shell_error"
	case StateAborted:
		return "aborted"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// transitions lists the legal next states. Anything else is refused, which
// is what makes a late abort a harmless no-op instead of a corrupted
// response.
var transitions = map[State][]State{
	StateStart:      {StateShellSent, StateShellError, StateAborted},
	StateShellSent:  {StateStreaming, StateAborted},
	StateStreaming:  {StateAllReady, StateAborted},
	StateAllReady:   {StateDone},
	StateShellError: {StateDone},
	StateAborted:    {StateDone},
	StateDone:       nil,
}

// renderSession is the ephemeral state for one streamed response: current
// stage, the did-an-error-occur flag, and the abort hook. It lives exactly
// as long as the response.
type renderSession struct {
	id string

	mu       sync.Mutex
	state    State
	didError bool
	abortFn  func()
}

func newRenderSession() *renderSession {
	return &renderSession{id: uuid.NewString()}
}

// to attempts the named transition and reports whether it was taken.
func (s *renderSession) to(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, allowed := range transitions[s.state] {
		if allowed == next {
			s.state = next
			return true
		}
	}
	return false
}

func (s *renderSession) current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// noteError records a chunk-level render fault.
func (s *renderSession) noteError() {
	s.mu.Lock()
	s.didError = true
	s.mu.Unlock()
}

func (s *renderSession) errored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.didError
}

// setAbort installs the renderer's cancellation hook.
func (s *renderSession) setAbort(fn func()) {
	s.mu.Lock()
	s.abortFn = fn
	s.mu.Unlock()
}

// abort cancels the render unless the session already completed or failed.
// Called from the timeout timer goroutine; racing a normal completion is
// expected and resolved by the transition guard.
func (s *renderSession) abort() bool {
	if !s.to(StateAborted) {
		return false
	}
	s.mu.Lock()
	fn := s.abortFn
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true
}
