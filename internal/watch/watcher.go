// Package watch rescans a tree whenever files under it change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"linetally/internal/discovery"
	"linetally/internal/logging"
	"linetally/internal/processor"
	"linetally/internal/stats"
)

// DefaultDebounce is used when Options.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

// ScanFunc performs one full scan of the watched tree.
type ScanFunc func(ctx context.Context) (*stats.Project, processor.Summary, error)

// Update is published on the Updates channel. A rescan first publishes an
// Update with Scanning set and no Project, then one with the result.
type Update struct {
	Project  *stats.Project
	Summary  processor.Summary
	Err      error
	At       time.Time
	Scanning bool
}

// Options configures a Watcher.
type Options struct {
	// Discovery selects the directories to watch, with the same filters a
	// scan uses.
	Discovery discovery.Options
	Debounce  time.Duration
}

// Watcher watches every directory a scan would enter.
type Watcher struct {
	fs        *fsnotify.Watcher
	opts      Options
	scan      ScanFunc
	skip      map[string]bool
	updates   chan Update
	rescan    chan struct{}
	debouncer *Debouncer
	log       *zap.Logger

	mu      sync.Mutex
	watched map[string]bool
}

// New creates a Watcher. Call Run to start it.
func New(opts Options, scan ScanFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	w := &Watcher{
		fs:      fsw,
		opts:    opts,
		scan:    scan,
		skip:    make(map[string]bool, len(opts.Discovery.SkipDirs)),
		updates: make(chan Update, 4),
		rescan:  make(chan struct{}, 1),
		log:     logging.Get(logging.CategoryWatch),
		watched: make(map[string]bool),
	}
	for _, d := range opts.Discovery.SkipDirs {
		w.skip[d] = true
	}
	w.debouncer = NewDebouncer(opts.Debounce, w.requestRescan)
	return w, nil
}

// Updates returns the channel scan results are published on. It is closed
// when Run returns.
func (w *Watcher) Updates() <-chan Update {
	return w.updates
}

// Watched returns the sorted list of watched directories.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs := make([]string, 0, len(w.watched))
	for d := range w.watched {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Run scans once, then rescans after every quiet burst of changes until ctx
// is done. Cancellation is not an error.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.updates)
	defer func() { _ = w.fs.Close() }()
	defer w.debouncer.Cancel()

	dirs, err := discovery.Dirs(ctx, w.opts.Discovery)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		w.add(d)
	}
	w.log.Info("watching", zap.Int("dirs", len(dirs)), zap.Duration("debounce", w.opts.Debounce))

	w.debouncer.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-w.rescan:
			if !w.runScan(ctx) {
				return nil
			}
		}
	}
}

func (w *Watcher) requestRescan() {
	select {
	case w.rescan <- struct{}{}:
	default:
	}
}

func (w *Watcher) add(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[dir] {
		return
	}
	if err := w.fs.Add(dir); err != nil {
		w.log.Warn("failed to watch directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	w.watched[dir] = true
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.watched, path)
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	name := filepath.Base(ev.Name)
	if !w.opts.Discovery.Hidden && strings.HasPrefix(name, ".") {
		return
	}
	w.log.Debug("change", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))

	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !w.skip[name] {
			w.addTree(ctx, ev.Name)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.forget(ev.Name)
	}
	w.debouncer.Trigger()
}

// addTree watches a directory that appeared after Run started, and any
// subdirectories it arrived with.
func (w *Watcher) addTree(ctx context.Context, dir string) {
	opts := w.opts.Discovery
	opts.Roots = []string{dir}
	dirs, err := discovery.Dirs(ctx, opts)
	if err != nil {
		w.log.Warn("failed to list new directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	for _, d := range dirs {
		w.add(d)
	}
}

// runScan publishes a Scanning update, scans and publishes the result.
// It returns false once ctx is done.
func (w *Watcher) runScan(ctx context.Context) bool {
	if !w.publish(ctx, Update{Scanning: true, At: time.Now()}) {
		return false
	}

	project, summary, err := w.scan(ctx)
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		w.log.Warn("rescan failed", zap.Error(err))
	} else {
		w.log.Debug("rescanned", zap.Int("files", summary.Processed), zap.Int("skipped", summary.Skipped))
	}
	return w.publish(ctx, Update{Project: project, Summary: summary, Err: err, At: time.Now()})
}

func (w *Watcher) publish(ctx context.Context, u Update) bool {
	select {
	case w.updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
