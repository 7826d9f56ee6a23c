package position

import "testing"

func TestURICanonical(t *testing.T) {
	tests := []struct {
		in   URI
		want URI
	}{
		{"file:///a/b/c.groovy", "file:///a/b/c.groovy"},
		{"FILE:///a/b/c.groovy/", "file:///a/b/c.groovy"},
	}
	for _, tt := range tests {
		if got := tt.in.Canonical(); got != tt.want {
			t.Errorf("Canonical(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestURIPath(t *testing.T) {
	u := FromPath("/tmp/Foo.groovy")
	if got := u.Path(); got != "/tmp/Foo.groovy" {
		t.Errorf("Path() = %q, want /tmp/Foo.groovy", got)
	}

	jar := URI("jar:file:///libs/a.jar!/com/Foo.class")
	if got := jar.Path(); got != "" {
		t.Errorf("Path() on jar URI = %q, want empty", got)
	}
}

func TestSourceToLSPRoundTrip(t *testing.T) {
	text := []byte("class Foo {\n  def x = 1\n}\n")
	idx := NewLineIndex(text)

	src := Position{Space: SourceSpace, Line: 2, Column: 3}
	lsp := SourceToLSP(idx, src)
	if lsp.Line != 1 || lsp.Column != 2 {
		t.Fatalf("SourceToLSP = %+v, want line=1 column=2", lsp)
	}

	back := LSPToSource(idx, lsp)
	if back != src {
		t.Fatalf("round trip = %+v, want %+v", back, src)
	}
}

func TestUTF16ColumnsCountSurrogatePairs(t *testing.T) {
	// U+1F600 (grinning face) is outside the BMP and takes two UTF-16
	// code units, but only one rune / four UTF-8 bytes.
	text := []byte("def x = \"\U0001F600\"\n")
	idx := NewLineIndex(text)

	afterEmoji := Position{Space: SourceSpace, Line: 1, Column: len("def x = \"\U0001F600") + 1}
	lsp := SourceToLSP(idx, afterEmoji)

	wantColumn := len("def x = \"") + 2 // preceding ASCII + 2 UTF-16 units for the emoji
	if lsp.Column != wantColumn {
		t.Errorf("Column = %d, want %d", lsp.Column, wantColumn)
	}
}

func TestContainsInclusiveBothEnds(t *testing.T) {
	span := Span{
		Start: Position{Space: SourceSpace, Line: 1, Column: 1},
		End:   Position{Space: SourceSpace, Line: 1, Column: 5},
	}
	tests := []struct {
		pos  Position
		want bool
	}{
		{Position{Space: SourceSpace, Line: 1, Column: 1}, true},
		{Position{Space: SourceSpace, Line: 1, Column: 5}, true},
		{Position{Space: SourceSpace, Line: 1, Column: 3}, true},
		{Position{Space: SourceSpace, Line: 1, Column: 6}, false},
		{Position{Space: SourceSpace, Line: 2, Column: 1}, false},
	}
	for _, tt := range tests {
		if got := Contains(span, tt.pos); got != tt.want {
			t.Errorf("Contains(%+v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}
