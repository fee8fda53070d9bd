package corpus

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var skipDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	"venv":         true,
}

// walkFiles returns slash-separated paths under root, relative to root,
// that match any of patterns. Hidden directories are skipped.
func walkFiles(root string, patterns []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matchAny(patterns, rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
		// "**/*.md" should also match top-level files.
		if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
			if matched, err := doublestar.Match(rest, rel); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// chunkID builds the stable identifier {corpus}:{source}:{ordinal}.
func chunkID(corpus, source string, ordinal int) string {
	return fmt.Sprintf("%s:%s:%d", corpus, source, ordinal)
}
