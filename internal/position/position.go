// Package position is the single authority for translating between the two
// coordinate systems this server has to speak. LSP space is zero-based,
// UTF-16-code-unit columns, as sent over the wire by protocol.Position.
// Source-AST space is one-based, byte columns, as produced by gparse.
// Every conversion between the two goes through this package, so there is
// exactly one place that can get an off-by-one wrong.
package position

import (
	"net/url"
	"strings"
)

// URI identifies a document the way the LSP protocol does: a string in
// "file://" (or, for library sources, "jar:file://...!/...") form. It is
// kept as a distinct type rather than a bare string so that a URI can never
// be passed where a plain path was expected, and vice versa.
type URI string

// Canonical normalizes a URI to a form safe to use as a map key: the scheme
// is lower-cased and, for file URIs, trailing slashes are trimmed from the
// path; the result is re-serialized through url.URL. The path is not
// otherwise cleaned, and a percent-encoding url.URL accepts is kept as
// written.
func (u URI) Canonical() URI {
	raw := string(u)
	parsed, err := url.Parse(raw)
	if err != nil {
		return URI(raw)
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	if parsed.Scheme == "file" {
		parsed.Path = strings.TrimRight(parsed.Path, "/")
	}
	return URI(parsed.String())
}

// Path returns the filesystem path of a "file://" URI, or "" if u does not
// use that scheme (e.g. a jar: URI addressing a classpath entry).
func (u URI) Path() string {
	parsed, err := url.Parse(string(u))
	if err != nil || parsed.Scheme != "file" {
		return ""
	}
	return parsed.Path
}

// FromPath builds a file:// URI from a filesystem path.
func FromPath(path string) URI {
	return URI((&url.URL{Scheme: "file", Path: path}).String())
}

// Space tags which coordinate system a Position or Span was produced in.
// A value is never implicitly reinterpreted across spaces: callers must
// go through LSPToSource/SourceToLSP, which is the only code allowed to
// change a Position's Space.
type Space int

const (
	// LSPSpace positions are zero-based; Column counts UTF-16 code units.
	LSPSpace Space = iota
	// SourceSpace positions are one-based; Column counts bytes, matching
	// gparse.Position exactly.
	SourceSpace
)

// Position is a single point in a document, tagged with the coordinate
// space it was produced in.
type Position struct {
	Space  Space
	Line   int
	Column int
}

// Span is a range from Start to End, tagged with a single coordinate
// space shared by both endpoints. Spans taken from gparse end just past
// their last byte; Contains counts End itself as inside.
type Span struct {
	Start Position
	End   Position
}

// LineIndex supports UTF-16 column conversion for a single document's text,
// since gparse counts byte columns but LSP counts UTF-16 code units per
// line (surrogate pairs for astral-plane runes count as two units).
type LineIndex struct {
	lineStarts []int
	text       []byte
}

// NewLineIndex scans text once and records the byte offset of the start of
// every line, so later conversions index a line's start directly instead
// of rescanning the text.
func NewLineIndex(text []byte) *LineIndex {
	idx := &LineIndex{lineStarts: []int{0}, text: text}
	for i, b := range text {
		if b == '\n' {
			idx.lineStarts = append(idx.lineStarts, i+1)
		}
	}
	return idx
}

func (idx *LineIndex) lineBytes(line int) []byte {
	if line < 1 || line > len(idx.lineStarts) {
		return nil
	}
	start := idx.lineStarts[line-1]
	end := len(idx.text)
	if line < len(idx.lineStarts) {
		end = idx.lineStarts[line] - 1
		if end < start {
			end = start
		}
	}
	return idx.text[start:end]
}

// SourceToLSP converts a one-based, byte-column Position into the
// zero-based, UTF-16-column space the LSP wire protocol requires.
func SourceToLSP(idx *LineIndex, p Position) Position {
	if p.Space != SourceSpace {
		p.Space = SourceSpace
	}
	line := idx.lineBytes(p.Line)
	byteCol := p.Column - 1
	if byteCol < 0 {
		byteCol = 0
	}
	if byteCol > len(line) {
		byteCol = len(line)
	}
	units := utf16Units(line[:byteCol])
	return Position{Space: LSPSpace, Line: p.Line - 1, Column: units}
}

// LSPToSource converts a zero-based, UTF-16-column Position from the wire
// protocol into the one-based, byte-column space gparse and the AST use.
func LSPToSource(idx *LineIndex, p Position) Position {
	line := p.Line + 1
	lineText := idx.lineBytes(line)
	byteCol := byteOffsetForUTF16Units(lineText, p.Column)
	return Position{Space: SourceSpace, Line: line, Column: byteCol + 1}
}

// utf16Units counts the number of UTF-16 code units needed to encode b.
func utf16Units(b []byte) int {
	units := 0
	for _, r := range string(b) {
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	return units
}

// byteOffsetForUTF16Units returns the byte offset into line corresponding
// to units UTF-16 code units from its start, clamping to the line length
// if units overruns it (a client sending a stale position).
func byteOffsetForUTF16Units(line []byte, units int) int {
	seen := 0
	offset := 0
	for _, r := range string(line) {
		if seen >= units {
			return offset
		}
		w := 1
		if r > 0xFFFF {
			w = 2
		}
		seen += w
		offset += len(string(r))
	}
	return offset
}

// Contains reports whether pos falls within span, inclusive of both
// endpoints (so the position just past a gparse node's last byte still
// counts as inside), in the same coordinate
// space as span; callers must convert pos into that space first via
// LSPToSource/SourceToLSP.
func Contains(span Span, pos Position) bool {
	if pos.Line < span.Start.Line {
		return false
	}
	if pos.Line == span.Start.Line && pos.Column < span.Start.Column {
		return false
	}
	if pos.Line > span.End.Line {
		return false
	}
	if pos.Line == span.End.Line && pos.Column > span.End.Column {
		return false
	}
	return true
}
