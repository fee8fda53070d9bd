package corpus

import (
	"strings"
	"testing"
)

func TestChunkMarkdownHeadingPath(t *testing.T) {
	src := `Intro paragraph.

# Features

Top level text.

## Batch

Batch text.

### Aggregations

Agg text.

## Stream

Stream text.
`
	chunks := ChunkMarkdown([]byte(src))
	want := []struct{ title, header string }{
		{"", ""},
		{"Features", "Features"},
		{"Features / Batch", "Batch"},
		{"Features / Batch / Aggregations", "Aggregations"},
		{"Features / Stream", "Stream"},
	}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, w := range want {
		if chunks[i].Title != w.title || chunks[i].Header != w.header {
			t.Errorf("chunk %d = (%q, %q), want (%q, %q)", i, chunks[i].Title, chunks[i].Header, w.title, w.header)
		}
	}
	if chunks[3].LineStart != 11 {
		t.Errorf("Aggregations LineStart = %d, want 11", chunks[3].LineStart)
	}
}

func TestChunkMarkdownIgnoresFencedHeadings(t *testing.T) {
	src := "# Title\n\n```python\n# not a heading\nx = 1\n```\n"
	chunks := ChunkMarkdown([]byte(src))
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if !strings.Contains(chunks[0].Content, "# not a heading") {
		t.Errorf("fenced comment lost: %q", chunks[0].Content)
	}
}

func TestChunkMarkdownDropsEmptySections(t *testing.T) {
	chunks := ChunkMarkdown([]byte("# A\n\n## B\n\nbody\n"))
	if len(chunks) != 1 || chunks[0].Title != "A / B" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestChunkMarkdownSplitsLongSections(t *testing.T) {
	para := strings.Repeat("word ", 100) // 500 runes
	src := "# Long\n\n" + para + "\n\n" + para + "\n\n" + para + "\n\n" + para + "\n"
	chunks := ChunkMarkdown([]byte(src))
	if len(chunks) < 2 {
		t.Fatalf("expected long section to split, got %d chunk(s)", len(chunks))
	}
	for _, c := range chunks {
		if n := countChars(c.Content); n > markdownMaxChars {
			t.Errorf("chunk has %d runes, max %d", n, markdownMaxChars)
		}
		if c.Title != "Long" {
			t.Errorf("split chunk lost title: %q", c.Title)
		}
	}
}

func TestParseHeading(t *testing.T) {
	tests := []struct {
		line  string
		level int
		title string
		ok    bool
	}{
		{"# Title", 1, "Title", true},
		{"### Deep ###", 3, "Deep", true},
		{"#NoSpace", 0, "", false},
		{"####### seven", 0, "", false},
		{"plain", 0, "", false},
	}
	for _, tt := range tests {
		level, title, ok := parseHeading(tt.line)
		if level != tt.level || title != tt.title || ok != tt.ok {
			t.Errorf("parseHeading(%q) = %d, %q, %v", tt.line, level, title, ok)
		}
	}
}
