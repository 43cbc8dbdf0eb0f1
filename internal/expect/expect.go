// Package expect matches expected markers in the output stream of an
// interactive shell. A Stream accumulates output from a byte source and
// scans the unconsumed portion for one of several ordered patterns,
// bounded by a hard per-call deadline.
package expect

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrTimeout is returned when no pattern matched before the deadline.
var ErrTimeout = errors.New("expect: timed out")

// pollInterval bounds each read from the source so the deadline is
// checked regularly even when the shell stays silent.
const pollInterval = 200 * time.Millisecond

// Source provides deadline-bounded reads of shell output. Satisfied by
// transport.Handle.
type Source interface {
	ReadAvailable(d time.Duration) ([]byte, error)
}

// Pattern is one expected marker, identified by its label.
type Pattern struct {
	Label string
	lit   []byte
	re    *regexp.Regexp
}

// Literal matches an exact substring.
func Literal(label, substr string) Pattern {
	return Pattern{Label: label, lit: []byte(substr)}
}

// Regex matches a regular expression. The expression must compile;
// patterns are fixed at build time.
func Regex(label, expr string) Pattern {
	return Pattern{Label: label, re: regexp.MustCompile(expr)}
}

// match reports the end offset of the first occurrence in window.
func (p Pattern) match(window []byte) (int, bool) {
	if p.re != nil {
		loc := p.re.FindIndex(window)
		if loc == nil {
			return 0, false
		}
		return loc[1], true
	}
	i := bytes.Index(window, p.lit)
	if i < 0 {
		return 0, false
	}
	return i + len(p.lit), true
}

// Stream scans a shell's output for expected markers. Output is consumed
// exactly once: each match advances the stream position past the matched
// text, and consumed output is never rescanned.
type Stream struct {
	src Source
	buf []byte
	pos int
}

// NewStream creates a Stream reading from src.
func NewStream(src Source) *Stream {
	return &Stream{src: src}
}

// Expect waits until one of patterns matches the unconsumed output, or
// the timeout passes. Patterns are checked in list order on every scan,
// so an earlier pattern wins when several would match the same
// accumulated text. On success the matched label is returned and the
// stream position advances past the match. ErrTimeout (wrapped) is
// returned on deadline expiry; source read failures are returned as-is.
func (s *Stream) Expect(patterns []Pattern, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		window := s.buf[s.pos:]
		for _, p := range patterns {
			if end, ok := p.match(window); ok {
				s.pos += end
				return p.Label, nil
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", fmt.Errorf("%w after %v waiting for %s", ErrTimeout, timeout, labels(patterns))
		}
		poll := pollInterval
		if remaining < poll {
			poll = remaining
		}
		chunk, err := s.src.ReadAvailable(poll)
		if err != nil {
			return "", err
		}
		s.buf = append(s.buf, chunk...)
	}
}

// Tail returns the unconsumed output accumulated so far. Used for
// failure reasons and debugging; it does not advance the position.
func (s *Stream) Tail() string {
	return string(s.buf[s.pos:])
}

func labels(patterns []Pattern) string {
	var b bytes.Buffer
	for i, p := range patterns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Label)
	}
	return b.String()
}
