// Package watch rebuilds IR inputs when their content changes on disk.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"v4c/internal/project"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// RebuildFunc is called with the inputs whose content changed. The first
// call receives every input.
type RebuildFunc func(ctx context.Context, changed []string) error

// Watcher tracks a fixed set of input files. Parent directories are
// watched rather than the files so that rename-on-save editors keep
// triggering events.
type Watcher struct {
	Debounce time.Duration
	// OnError receives rebuild and watcher errors. Nil drops them.
	OnError func(error)

	mu      sync.Mutex
	paths   []string
	digests map[string]project.Digest
}

// New returns a watcher over paths. Paths are made absolute so that event
// names can be matched against them.
func New(paths []string) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("watch: no inputs")
	}
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(abs, a) {
			abs = append(abs, a)
		}
	}
	return &Watcher{
		Debounce: DefaultDebounce,
		paths:    abs,
		digests:  make(map[string]project.Digest, len(abs)),
	}, nil
}

// Paths returns the absolute inputs in registration order.
func (w *Watcher) Paths() []string { return slices.Clone(w.paths) }

// Changed rehashes candidates and returns those whose digest differs from
// the last one seen. Unreadable files count as changed once, so that the
// rebuild can report the error.
func (w *Watcher) Changed(candidates []string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for _, p := range candidates {
		d, err := project.HashFile(p)
		if err != nil {
			if _, seen := w.digests[p]; seen {
				delete(w.digests, p)
				out = append(out, p)
			}
			continue
		}
		if prev, ok := w.digests[p]; ok && prev == d {
			continue
		}
		w.digests[p] = d
		out = append(out, p)
	}
	return out
}

// Run performs an initial rebuild and then one rebuild per settled batch of
// content changes, until ctx is done.
func (w *Watcher) Run(ctx context.Context, rebuild RebuildFunc) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dirs := make(map[string]struct{})
	for _, p := range w.paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			return err
		}
	}

	w.Changed(w.paths)
	w.report(rebuild(ctx, w.Paths()))

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			name := filepath.Clean(ev.Name)
			if !slices.Contains(w.paths, name) {
				continue
			}
			pending[name] = struct{}{}
			timer.Reset(w.Debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.report(err)
		case <-timer.C:
			candidates := make([]string, 0, len(pending))
			for _, p := range w.paths {
				if _, ok := pending[p]; ok {
					candidates = append(candidates, p)
				}
			}
			clear(pending)
			if changed := w.Changed(candidates); len(changed) > 0 {
				w.report(rebuild(ctx, changed))
			}
		}
	}
}

func (w *Watcher) report(err error) {
	if err != nil && w.OnError != nil {
		w.OnError(err)
	}
}

// Exists reports whether every watched input is present on disk.
func (w *Watcher) Exists() error {
	var errs []error
	for _, p := range w.paths {
		if _, err := os.Stat(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
