package feature

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExtensions are the file extensions FileSearch treats as feature files.
var DefaultExtensions = []string{".feature", ".spec", ".specification"}

// FileSearch is the default Searcher. It walks a directory tree and returns
// every file whose extension is in Extensions, in lexical walk order.
type FileSearch struct {
	// Extensions overrides DefaultExtensions when non-empty.
	Extensions []string
}

// Search returns the feature files under dir.
func (s FileSearch) Search(dir string) ([]string, error) {
	exts := s.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	pattern := "**/*." + braceSet(exts)

	var files []string
	err := doublestar.GlobWalk(os.DirFS(dir), pattern, func(path string, d fs.DirEntry) error {
		files = append(files, filepath.Join(dir, filepath.FromSlash(path)))
		return nil
	}, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", dir, err)
	}
	return files, nil
}

// braceSet renders extensions as a doublestar alternation: {feature,spec}.
func braceSet(exts []string) string {
	names := make([]string, 0, len(exts))
	for _, e := range exts {
		names = append(names, strings.TrimPrefix(e, "."))
	}
	if len(names) == 1 {
		return names[0]
	}
	return "{" + strings.Join(names, ",") + "}"
}
