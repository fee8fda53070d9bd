package corpus

import (
	"regexp"
	"strings"
)

// PyDecl is one top-level statement of a Python module that an example
// search should return on its own.
type PyDecl struct {
	Name string
	Kind string // "def", "class" or "assign"
	// Summary is the decorators, signature and docstring.
	Summary   string
	Source    string
	LineStart int
	LineEnd   int
}

var (
	pyDefRe    = regexp.MustCompile(`^(?:async\s+)?(def|class)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	pyAssignRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*(?::[^=]+)?=\s*([A-Z][A-Za-z0-9_.]*)\(`)
)

type pyStmt struct {
	lines []string
	start int // 1-based
}

func (s pyStmt) first() string { return s.lines[0] }

func (s pyStmt) end() int { return s.start + len(s.lines) - 1 }

// SplitPython splits src into top-level declarations. Decorators attach to
// the def or class that follows them. Assignments whose value is a call to
// a capitalised constructor (Entity(...), BatchSource(...)) are kept too.
// The returned imports are the module's import statements, in order.
func SplitPython(src string) (decls []PyDecl, imports []string) {
	stmts := splitStatements(src)

	var pending []pyStmt
	for _, st := range stmts {
		first := st.first()
		switch {
		case strings.HasPrefix(first, "@"):
			pending = append(pending, st)
			continue
		case strings.HasPrefix(first, "import ") || strings.HasPrefix(first, "from "):
			imports = append(imports, strings.Join(st.lines, "\n"))
		}

		if m := pyDefRe.FindStringSubmatch(first); m != nil {
			group := append(pending, st)
			decls = append(decls, buildDecl(m[2], m[1], group))
		} else if m := pyAssignRe.FindStringSubmatch(first); m != nil && len(pending) == 0 {
			decls = append(decls, buildDecl(m[1], "assign", []pyStmt{st}))
		}
		pending = nil
	}
	return decls, imports
}

func buildDecl(name, kind string, group []pyStmt) PyDecl {
	var lines []string
	var decorators []string
	for _, st := range group {
		lines = append(lines, st.lines...)
		if strings.HasPrefix(st.first(), "@") {
			decorators = append(decorators, st.lines...)
		}
	}
	main := group[len(group)-1]

	var summary []string
	summary = append(summary, decorators...)
	if kind == "assign" {
		summary = append(summary, truncateLines(main.lines, 20)...)
	} else {
		header, rest := pySignature(main.lines)
		summary = append(summary, header...)
		if doc := pyDocstring(rest); doc != "" {
			summary = append(summary, doc)
		}
	}

	return PyDecl{
		Name:      name,
		Kind:      kind,
		Summary:   strings.Join(summary, "\n"),
		Source:    strings.Join(lines, "\n"),
		LineStart: group[0].start,
		LineEnd:   main.end(),
	}
}

// pySignature returns the lines up to and including the one that ends the
// def/class header, and the remaining body lines.
func pySignature(lines []string) ([]string, []string) {
	var sc pyScanner
	for i, line := range lines {
		sc.scan(line)
		if sc.depth == 0 && strings.HasSuffix(stripComment(line), ":") {
			return lines[:i+1], lines[i+1:]
		}
	}
	return truncateLines(lines, 1), nil
}

// pyDocstring returns the docstring opening body, if any.
func pyDocstring(body []string) string {
	for i, line := range body {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		trimmed = strings.TrimLeft(trimmed, "rRuU")
		var quote string
		switch {
		case strings.HasPrefix(trimmed, `"""`):
			quote = `"""`
		case strings.HasPrefix(trimmed, `'''`):
			quote = `'''`
		default:
			return ""
		}
		if strings.Count(trimmed, quote) >= 2 {
			return line
		}
		for j := i + 1; j < len(body); j++ {
			if strings.Contains(body[j], quote) {
				return strings.Join(body[i:j+1], "\n")
			}
		}
		return strings.Join(body[i:], "\n")
	}
	return ""
}

// splitStatements groups lines into top-level statements. A statement starts
// at a non-indented line outside any bracket, string or continuation. Blank
// lines and comments trailing a statement are dropped.
func splitStatements(src string) []pyStmt {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	var stmts []pyStmt
	var sc pyScanner
	for i, line := range lines {
		topLevel := sc.atTopLevel() && line != "" && line[0] != ' ' && line[0] != '\t' && line[0] != '#'
		sc.scan(line)
		if topLevel {
			stmts = append(stmts, pyStmt{start: i + 1, lines: []string{line}})
			continue
		}
		if n := len(stmts); n > 0 {
			stmts[n-1].lines = append(stmts[n-1].lines, line)
		}
	}
	for i := range stmts {
		stmts[i].lines = trimTrailing(stmts[i].lines)
	}
	return stmts
}

func trimTrailing(lines []string) []string {
	end := len(lines)
	for end > 1 {
		l := lines[end-1]
		if strings.TrimSpace(l) == "" || strings.HasPrefix(l, "#") {
			end--
			continue
		}
		break
	}
	return lines[:end]
}

func truncateLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[:n]
}

func stripComment(line string) string {
	var sc pyScanner
	idx := sc.commentIndex(line)
	if idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}

// pyScanner tracks bracket depth and open triple-quoted strings across lines.
type pyScanner struct {
	depth        int
	quote        string
	continuation bool
}

func (s *pyScanner) atTopLevel() bool {
	return s.depth == 0 && s.quote == "" && !s.continuation
}

func (s *pyScanner) scan(line string) {
	s.walk(line)
	s.continuation = s.quote == "" && strings.HasSuffix(strings.TrimRight(line, " \t"), "\\")
}

// commentIndex returns the byte offset of a trailing comment, or -1.
func (s *pyScanner) commentIndex(line string) int {
	return s.walk(line)
}

func (s *pyScanner) walk(line string) int {
	i := 0
	for i < len(line) {
		if s.quote != "" {
			idx := strings.Index(line[i:], s.quote)
			if idx < 0 {
				return -1
			}
			i += idx + len(s.quote)
			s.quote = ""
			continue
		}
		c := line[i]
		switch {
		case c == '#':
			return i
		case strings.HasPrefix(line[i:], `"""`) || strings.HasPrefix(line[i:], `'''`):
			s.quote = line[i : i+3]
			i += 3
			continue
		case c == '"' || c == '\'':
			j := i + 1
			for j < len(line) && line[j] != c {
				if line[j] == '\\' {
					j++
				}
				j++
			}
			i = j + 1
			continue
		case c == '(' || c == '[' || c == '{':
			s.depth++
		case c == ')' || c == ']' || c == '}':
			if s.depth > 0 {
				s.depth--
			}
		}
		i++
	}
	return -1
}
