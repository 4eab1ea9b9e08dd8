// Package resolve expands a feature-spec string (path or glob) into the
// feature files a run executes, and guarantees each physical file is
// dispatched at most once.
package resolve

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/roach88/conformer/internal/feature"
)

// Kind tags a glob match.
type Kind int

const (
	// KindFile is a plain file: it is scheduled on its own.
	KindFile Kind = iota + 1
	// KindDir is a directory: every feature file below it is scheduled.
	KindDir
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "unknown"
	}
}

// Match is one path produced by expanding a feature spec.
type Match struct {
	Path string
	Kind Kind
}

// Expand runs a single glob-walk pass over spec and returns each match
// tagged as file or directory. Classification comes from the directory
// entry handed over by the walk, so there is no second stat that could
// race with the filesystem. A spec that matches nothing yields no matches
// and no error.
func Expand(spec string) ([]Match, error) {
	spec = filepath.ToSlash(spec)
	if len(spec) > 1 {
		spec = strings.TrimSuffix(spec, "/")
	}
	if !doublestar.ValidatePattern(spec) {
		return nil, fmt.Errorf("invalid feature spec %q: %w", spec, doublestar.ErrBadPattern)
	}

	base, pattern := doublestar.SplitPattern(spec)
	fsys := os.DirFS(filepath.FromSlash(base))

	var matches []Match
	err := doublestar.GlobWalk(fsys, pattern, func(p string, d fs.DirEntry) error {
		kind := KindFile
		if d.IsDir() {
			kind = KindDir
		} else if d.Type()&fs.ModeSymlink != 0 {
			// Entries for symlinks describe the link; follow it once.
			if info, err := fs.Stat(fsys, p); err == nil && info.IsDir() {
				kind = KindDir
			}
		}
		matches = append(matches, Match{Path: filepath.FromSlash(pathpkg.Join(base, p)), Kind: kind})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("expand feature spec %q: %w", spec, err)
	}
	return matches, nil
}

// Split routes tagged matches into two disjoint ordered sequences.
func Split(matches []Match) (files, dirs []string) {
	for _, m := range matches {
		switch m.Kind {
		case KindDir:
			dirs = append(dirs, m.Path)
		default:
			files = append(files, m.Path)
		}
	}
	return files, dirs
}

// DispatchFunc executes one feature file.
type DispatchFunc func(path string) error

// Resolver schedules feature files for a spec. All scheduling funnels
// through one Cache-gated dispatch, so a file reachable both directly and
// through a directory runs once.
type Resolver struct {
	Searcher feature.Searcher
	Cache    *Cache
	Logger   *slog.Logger
}

// New creates a Resolver with a fresh cache.
func New(searcher feature.Searcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{
		Searcher: searcher,
		Cache:    NewCache(),
		Logger:   logger,
	}
}

// Resolve expands spec into plain files and directories.
func (r *Resolver) Resolve(spec string) (files, dirs []string, err error) {
	matches, err := Expand(spec)
	if err != nil {
		return nil, nil, err
	}
	files, dirs = Split(matches)
	r.Logger.Debug("feature spec resolved", "spec", spec, "files", len(files), "dirs", len(dirs))
	return files, dirs, nil
}

// Schedule dispatches every feature file below each directory, then each
// plain file, skipping paths already dispatched. It stops at the first
// error returned by dispatch or by the searcher.
func (r *Resolver) Schedule(files, dirs []string, dispatch DispatchFunc) error {
	for _, dir := range dirs {
		found, err := r.Searcher.Search(dir)
		if err != nil {
			return err
		}
		for _, f := range found {
			if err := r.dispatch(f, dispatch); err != nil {
				return err
			}
		}
	}
	for _, f := range files {
		if err := r.dispatch(f, dispatch); err != nil {
			return err
		}
	}
	return nil
}

// Run resolves spec and schedules the result.
func (r *Resolver) Run(spec string, dispatch DispatchFunc) error {
	files, dirs, err := r.Resolve(spec)
	if err != nil {
		return err
	}
	return r.Schedule(files, dirs, dispatch)
}

func (r *Resolver) dispatch(path string, fn DispatchFunc) error {
	if !r.Cache.Claim(path) {
		r.Logger.Debug("feature file already dispatched", "path", path)
		return nil
	}
	return fn(path)
}
