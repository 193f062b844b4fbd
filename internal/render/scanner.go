package render

import "bytes"

// sentinelScanner finds the stream-completion sentinel in a chunked byte
// stream. A generic producer may split the sentinel across chunk boundaries,
// so any chunk suffix that could begin the sentinel is withheld until the
// next chunk instead of assuming single-chunk containment.
type sentinelScanner struct {
	sentinel []byte
	carry    []byte
	found    bool
}

func newSentinelScanner(sentinel []byte) *sentinelScanner {
	return &sentinelScanner{sentinel: sentinel}
}

// Feed consumes the next chunk. It returns the bytes safe to forward now
// and, when the sentinel was completed by this chunk, the bytes that
// followed it. Once found, callers should forward later chunks verbatim.
func (s *sentinelScanner) Feed(chunk []byte) (before, after []byte, found bool) {
	if s.found {
		return chunk, nil, false
	}

	buf := chunk
	if len(s.carry) > 0 {
		buf = append(s.carry, chunk...)
		s.carry = nil
	}

	if idx := bytes.Index(buf, s.sentinel); idx >= 0 {
		s.found = true
		return buf[:idx], buf[idx+len(s.sentinel):], true
	}

	keep := s.overlap(buf)
	boundary := len(buf) - keep
	if keep > 0 {
		s.carry = append([]byte(nil), buf[boundary:]...)
	}
	return buf[:boundary], nil, false
}

// overlap returns the length of the longest buffer suffix that is a proper
// sentinel prefix. Only those bytes need withholding until the next chunk.
func (s *sentinelScanner) overlap(buf []byte) int {
	max := len(s.sentinel) - 1
	if max > len(buf) {
		max = len(buf)
	}
	for k := max; k > 0; k-- {
		if bytes.HasSuffix(buf, s.sentinel[:k]) {
			return k
		}
	}
	return 0
}

// Flush returns any withheld bytes. Call it when the stream ends without the
// sentinel so no markup is silently dropped.
func (s *sentinelScanner) Flush() []byte {
	out := s.carry
	s.carry = nil
	return out
}

// Found reports whether the sentinel has been seen.
func (s *sentinelScanner) Found() bool {
	return s.found
}
