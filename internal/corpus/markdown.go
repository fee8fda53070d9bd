package corpus

import "strings"

// Section is one heading-scoped span of a markdown document.
type Section struct {
	// Title is the heading path, e.g. "Features / Batch / Aggregations".
	Title string
	// Header is the innermost heading.
	Header    string
	Content   string
	LineStart int
	LineEnd   int
}

const markdownMaxChars = 1500

// ChunkMarkdown splits src at headings and then splits any section longer
// than markdownMaxChars runes at blank lines, falling back to single lines.
// Headings inside fenced code blocks are ignored.
func ChunkMarkdown(src []byte) []Section {
	lines := strings.Split(string(src), "\n")
	var chunks []Section

	var current *Section
	var currentLines []string
	var headingStack []string
	var headingLevels []int
	inFence := false

	for i, line := range lines {
		if isFence(line) {
			inFence = !inFence
		}
		level, title, ok := 0, "", false
		if !inFence {
			level, title, ok = parseHeading(line)
		}
		if ok {
			if current != nil {
				current.LineEnd = i
				current.Content = strings.Join(currentLines, "\n")
				chunks = append(chunks, *current)
			}

			for len(headingLevels) > 0 && headingLevels[len(headingLevels)-1] >= level {
				headingLevels = headingLevels[:len(headingLevels)-1]
				headingStack = headingStack[:len(headingStack)-1]
			}
			headingLevels = append(headingLevels, level)
			headingStack = append(headingStack, title)

			current = &Section{
				Title:     strings.Join(headingStack, " / "),
				Header:    title,
				LineStart: i + 1,
			}
			currentLines = []string{line}
			continue
		}

		if current == nil {
			current = &Section{LineStart: 1}
			currentLines = []string{}
		}
		currentLines = append(currentLines, line)
	}

	if current != nil {
		current.LineEnd = len(lines)
		current.Content = strings.Join(currentLines, "\n")
		chunks = append(chunks, *current)
	}

	chunks = splitMarkdownChunks(chunks, markdownMaxChars)

	out := chunks[:0]
	for _, c := range chunks {
		if hasBody(c) {
			out = append(out, c)
		}
	}
	return out
}

// hasBody reports whether a section carries more than its heading line.
func hasBody(s Section) bool {
	for _, line := range strings.Split(s.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if _, _, ok := parseHeading(line); ok {
			continue
		}
		return true
	}
	return false
}

func isFence(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

func parseHeading(line string) (int, string, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if !strings.HasPrefix(trimmed, "#") {
		return 0, "", false
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return 0, "", false
	}
	if len(trimmed) > level && trimmed[level] != ' ' {
		return 0, "", false
	}
	title := strings.TrimSpace(strings.TrimRight(trimmed[level:], "# "))
	return level, title, true
}

type mdSegment struct {
	lines     []string
	text      string
	startLine int
	endLine   int
}

func splitMarkdownChunks(chunks []Section, maxChars int) []Section {
	if maxChars <= 0 || len(chunks) == 0 {
		return chunks
	}
	var out []Section
	for _, chunk := range chunks {
		if countChars(chunk.Content) <= maxChars {
			out = append(out, chunk)
			continue
		}
		out = append(out, splitMarkdownChunk(chunk, maxChars)...)
	}
	return out
}

func splitMarkdownChunk(chunk Section, maxChars int) []Section {
	segments := buildMarkdownSegments(chunk, maxChars)
	if len(segments) == 0 {
		return nil
	}
	var out []Section
	var currentLines []string
	currentLen := 0
	currentStart := 0
	currentEnd := 0
	flush := func() {
		out = append(out, Section{
			Title:     chunk.Title,
			Header:    chunk.Header,
			Content:   strings.Join(currentLines, "\n"),
			LineStart: currentStart,
			LineEnd:   currentEnd,
		})
	}
	for _, seg := range segments {
		segLen := countChars(seg.text)
		if currentLen+segLen > maxChars && currentLen > 0 {
			flush()
			currentLines = nil
			currentLen = 0
		}
		if currentLen == 0 {
			currentStart = seg.startLine
		}
		currentLines = append(currentLines, seg.lines...)
		currentLen += segLen
		currentEnd = seg.endLine
	}
	if currentLen > 0 {
		flush()
	}
	return out
}

func buildMarkdownSegments(chunk Section, maxChars int) []mdSegment {
	lines := strings.Split(chunk.Content, "\n")
	var segments []mdSegment
	var segLines []string
	segStart := chunk.LineStart
	for i, line := range lines {
		lineNo := chunk.LineStart + i
		if len(segLines) == 0 {
			segStart = lineNo
		}
		segLines = append(segLines, line)
		if strings.TrimSpace(line) == "" {
			segments = append(segments, newSegment(segLines, segStart, lineNo))
			segLines = nil
		}
	}
	if len(segLines) > 0 {
		segments = append(segments, newSegment(segLines, segStart, chunk.LineStart+len(lines)-1))
	}

	var expanded []mdSegment
	for _, seg := range segments {
		if countChars(seg.text) <= maxChars {
			expanded = append(expanded, seg)
			continue
		}
		expanded = append(expanded, splitSegmentByLines(seg, maxChars)...)
	}
	return expanded
}

func splitSegmentByLines(seg mdSegment, maxChars int) []mdSegment {
	var out []mdSegment
	var curLines []string
	curStart := seg.startLine
	curLen := 0
	for i, line := range seg.lines {
		lineNo := seg.startLine + i
		lineLen := countChars(line) + 1
		if curLen+lineLen > maxChars && curLen > 0 {
			out = append(out, newSegment(curLines, curStart, lineNo-1))
			curLines = nil
			curStart = lineNo
			curLen = 0
		}
		curLines = append(curLines, line)
		curLen += lineLen
	}
	if len(curLines) > 0 {
		out = append(out, newSegment(curLines, curStart, seg.startLine+len(seg.lines)-1))
	}
	return out
}

func newSegment(lines []string, startLine, endLine int) mdSegment {
	return mdSegment{
		lines:     lines,
		text:      strings.Join(lines, "\n"),
		startLine: startLine,
		endLine:   endLine,
	}
}

func countChars(text string) int {
	return len([]rune(text))
}
