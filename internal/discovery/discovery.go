package discovery

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/karrick/godirwalk"
)

var (
	// DefaultGlobs are the documents scanned when no glob is configured.
	DefaultGlobs = []string{"canonized/**/*.md", "intake/**/*.md", "README.md", "INDEX.md"}

	// DefaultIgnores are always-skipped locations.
	DefaultIgnores = []string{"**/.git/**", "**/attachments/**"}

	markdownFiles = patternSet{"**/*.md"}
)

// Finder lists documents below a root directory.
type Finder struct {
	root    string
	globs   patternSet
	ignores patternSet
	logger  *slog.Logger
}

// Option configures a Finder.
type Option func(*Finder)

// WithLogger sets the logger used for walk errors.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Finder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Finder. Patterns are relative to root and use "/" as the
// separator. An empty globs list selects DefaultGlobs.
func New(root string, globs, ignores []string, opts ...Option) (*Finder, error) {
	if len(globs) == 0 {
		globs = DefaultGlobs
	}
	g, err := newPatternSet(globs)
	if err != nil {
		return nil, fmt.Errorf("invalid glob: %w", err)
	}
	ig, err := newPatternSet(ignores)
	if err != nil {
		return nil, fmt.Errorf("invalid ignore pattern: %w", err)
	}

	f := &Finder{root: root, globs: g, ignores: ig, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Find walks the root and returns the matching regular files, sorted.
func (f *Finder) Find() ([]string, error) {
	files, err := f.walk(f.root, f.globs)
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

// Expand resolves explicit command-line paths. Directories are searched
// for Markdown files, other paths are kept as given unless ignored, so
// that a missing file is still reported. The result is sorted and free
// of duplicates.
func (f *Finder) Expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err == nil && info.IsDir() {
			files, err := f.walk(p, markdownFiles)
			if err != nil {
				return nil, err
			}
			out = append(out, files...)
			continue
		}
		if !f.ignored(filepath.ToSlash(filepath.Clean(p))) {
			out = append(out, filepath.Clean(p))
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (f *Finder) walk(dir string, globs patternSet) ([]string, error) {
	var files []string

	err := godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if de.IsDir() {
				if rel != "." && (f.ignored(rel) || f.ignored(rel+"/")) {
					return godirwalk.SkipThis
				}
				return nil
			}
			if !isFile(path, de) || f.ignored(rel) || !globs.match(rel) {
				return nil
			}
			files = append(files, filepath.Clean(path))
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			f.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return files, nil
}

func (f *Finder) ignored(rel string) bool {
	return f.ignores.match(rel)
}

// patternSet is a list of slash-separated doublestar patterns.
type patternSet []string

// newPatternSet validates patterns. Blank entries are dropped and a
// leading "./" is removed.
func newPatternSet(patterns []string) (patternSet, error) {
	out := make(patternSet, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(p)), "./")
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", doublestar.ErrBadPattern, p)
		}
		out = append(out, p)
	}
	return out, nil
}

func (ps patternSet) match(rel string) bool {
	for _, p := range ps {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// isFile reports whether the entry is a regular file or a symlink to one.
func isFile(path string, de *godirwalk.Dirent) bool {
	if de.IsRegular() {
		return true
	}
	if !de.IsSymlink() {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
