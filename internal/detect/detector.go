package detect

import (
	"bytes"
	"fmt"
	"regexp"
)

// DefaultPattern matches a 32-byte hex value with a 0x prefix, the usual
// textual form of an Ethereum-style private key.
const DefaultPattern = `0x([A-Fa-f0-9]{64})`

// Detector decides whether content contains something that looks like a key.
// Implementations must be safe for concurrent use.
type Detector interface {
	// FirstIndex returns the byte offset of the first match, or -1.
	FirstIndex(content []byte) int
	// AllIndexes returns the [start, end) offsets of every non-overlapping match.
	AllIndexes(content []byte) [][]int
}

// PatternDetector is a Detector backed by a compiled regular expression.
type PatternDetector struct {
	re *regexp.Regexp
}

// NewPatternDetector compiles pattern into a detector.
// An empty pattern selects DefaultPattern.
func NewPatternDetector(pattern string) (*PatternDetector, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile key pattern %q: %w", pattern, err)
	}
	return &PatternDetector{re: re}, nil
}

// MustPatternDetector is like NewPatternDetector but panics on a bad pattern.
func MustPatternDetector(pattern string) *PatternDetector {
	d, err := NewPatternDetector(pattern)
	if err != nil {
		panic(err)
	}
	return d
}

// Pattern returns the source of the underlying expression.
func (d *PatternDetector) Pattern() string {
	return d.re.String()
}

// FirstIndex returns the byte offset of the first match, or -1.
func (d *PatternDetector) FirstIndex(content []byte) int {
	loc := d.re.FindIndex(content)
	if loc == nil {
		return -1
	}
	return loc[0]
}

// AllIndexes returns the offsets of every match.
func (d *PatternDetector) AllIndexes(content []byte) [][]int {
	return d.re.FindAllIndex(content, -1)
}

// FirstMatchLine returns the 1-based line of the first match in content.
// The second result is false when nothing matches.
func FirstMatchLine(d Detector, content []byte) (int, bool) {
	idx := d.FirstIndex(content)
	if idx < 0 {
		return 0, false
	}
	return LineAt(content, idx), true
}

// AllMatchLines returns the 1-based line of every match, in order.
// A line holding two matches appears twice.
func AllMatchLines(d Detector, content []byte) []int {
	locs := d.AllIndexes(content)
	if len(locs) == 0 {
		return nil
	}
	lines := make([]int, 0, len(locs))
	for _, loc := range locs {
		lines = append(lines, LineAt(content, loc[0]))
	}
	return lines
}

// Redact removes every match from content.
func Redact(d Detector, content []byte) []byte {
	locs := d.AllIndexes(content)
	if len(locs) == 0 {
		return content
	}
	out := make([]byte, 0, len(content))
	prev := 0
	for _, loc := range locs {
		out = append(out, content[prev:loc[0]]...)
		prev = loc[1]
	}
	return append(out, content[prev:]...)
}

// LineAt converts a byte offset into a 1-based line number: one plus the
// number of newlines before offset.
func LineAt(content []byte, offset int) int {
	if offset > len(content) {
		offset = len(content)
	}
	return bytes.Count(content[:offset], []byte{'\n'}) + 1
}

// Compile-time interface conformance check.
var _ Detector = (*PatternDetector)(nil)
