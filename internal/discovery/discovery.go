// Package discovery finds the source files a scan should visit.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"linetally/internal/logging"
)

// Options controls how file discovery behaves.
type Options struct {
	// Roots are files or directories. Defaults to "." when empty.
	Roots []string

	// Hidden includes files and directories whose name starts with a dot.
	Hidden bool

	// UseGitignore enables filtering by .gitignore rules.
	UseGitignore bool

	// SkipDirs are directory names that are never entered.
	SkipDirs []string

	// Exclude are doublestar patterns matched against root-relative,
	// slash-separated paths.
	Exclude []string
}

// Walk returns every regular file under the roots that survives filtering.
// File roots are returned as given. Results are deduplicated and sorted.
func Walk(ctx context.Context, opts Options) ([]string, error) {
	w, err := walk(ctx, opts, false)
	if err != nil {
		return nil, err
	}
	return w.result, nil
}

// Dirs returns the absolute path of every directory a Walk with the same
// options would enter. A file root contributes its parent directory.
func Dirs(ctx context.Context, opts Options) ([]string, error) {
	w, err := walk(ctx, opts, true)
	if err != nil {
		return nil, err
	}
	return w.dirs, nil
}

func walk(ctx context.Context, opts Options, wantDirs bool) (*walker, error) {
	roots := opts.Roots
	if len(roots) == 0 {
		roots = []string{"."}
	}

	for _, p := range opts.Exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}

	w := &walker{
		opts:     opts,
		skip:     make(map[string]bool, len(opts.SkipDirs)),
		seen:     make(map[string]bool),
		wantDirs: wantDirs,
	}
	for _, d := range opts.SkipDirs {
		w.skip[d] = true
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			if wantDirs {
				w.addDir(filepath.Dir(root))
			} else {
				w.add(root)
			}
			continue
		}
		if err := w.walkDir(ctx, root); err != nil {
			return nil, err
		}
	}

	sort.Strings(w.result)
	sort.Strings(w.dirs)
	return w, nil
}

// walker holds state for the directory walk.
type walker struct {
	opts     Options
	skip     map[string]bool
	seen     map[string]bool
	result   []string
	wantDirs bool
	dirs     []string
}

func (w *walker) walkDir(ctx context.Context, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	var git *gitignore
	if w.opts.UseGitignore {
		git = newGitignore()
		git.loadAncestors(absRoot)
	}

	log := logging.Get(logging.CategoryScan)

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			log.Warn("skipping unreadable path", zap.String("path", path), zap.Error(walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if rel == "." {
			if git != nil {
				git.loadDir(absRoot)
			}
			if w.wantDirs {
				w.addDir(absRoot)
			}
			return nil
		}
		rel = filepath.ToSlash(rel)

		if w.excluded(d, rel, filepath.Join(absRoot, filepath.FromSlash(rel)), git) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			abs := filepath.Join(absRoot, filepath.FromSlash(rel))
			if git != nil {
				git.loadDir(abs)
			}
			if w.wantDirs {
				w.addDir(abs)
			}
			return nil
		}
		if w.wantDirs {
			return nil
		}
		if d.Type().IsRegular() {
			w.add(path)
		}
		return nil
	})
}

// excluded applies the hidden, skip-dir, gitignore and exclude filters.
func (w *walker) excluded(d fs.DirEntry, rel, abs string, git *gitignore) bool {
	name := d.Name()
	if !w.opts.Hidden && strings.HasPrefix(name, ".") {
		return true
	}
	if d.IsDir() && w.skip[name] {
		return true
	}
	if git != nil && git.ignored(abs, d.IsDir()) {
		return true
	}
	for _, p := range w.opts.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// add adds a file to the result set if not already seen.
func (w *walker) add(path string) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}
	if !w.seen[key] {
		w.seen[key] = true
		w.result = append(w.result, path)
	}
}

func (w *walker) addDir(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if !w.seen[abs] {
		w.seen[abs] = true
		w.dirs = append(w.dirs, abs)
	}
}
