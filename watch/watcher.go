// Package watch monitors a project's build script and source trees and
// triggers a rebuild when any of them change.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/irisbuild/iris/core"
)

// debounceWindow collapses the burst of events editors emit per save
const debounceWindow = 300 * time.Millisecond

// Watcher monitors files for changes and triggers rebuild actions
type Watcher struct {
	watcher    *fsnotify.Watcher
	scriptPath string
	sourceDirs []string
	onChange   func(path string)
	stdout     io.Writer
	stderr     io.Writer

	// Track last change time to debounce rapid event bursts
	mu         sync.Mutex
	lastChange time.Time
}

// NewWatcher creates a watcher for the given build script and the
// source directories of every target in the configuration. onChange is
// invoked, debounced, with the path that changed.
func NewWatcher(scriptPath string, config *core.BuildConfig, onChange func(path string), stdout, stderr io.Writer) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:    fsWatcher,
		scriptPath: scriptPath,
		onChange:   onChange,
		stdout:     stdout,
		stderr:     stderr,
	}
	w.sourceDirs = collectSourceDirs(config)

	return w, nil
}

// collectSourceDirs returns the unique directories containing target
// sources. Glob patterns contribute their fixed prefix.
func collectSourceDirs(config *core.BuildConfig) []string {
	dirs := make(map[string]bool)

	for _, target := range config.Targets {
		for _, src := range target.Sources {
			dir := globBase(src)
			if dir == "" {
				dir = "."
			}
			dirs[dir] = true
		}
		for _, inc := range target.Includes {
			dirs[filepath.Clean(inc)] = true
		}
	}

	result := make([]string, 0, len(dirs))
	for dir := range dirs {
		result = append(result, dir)
	}
	sort.Strings(result)
	return result
}

// globBase strips the meta-character suffix of a source pattern down to
// its fixed directory prefix
func globBase(pattern string) string {
	pattern = filepath.ToSlash(pattern)
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if strings.ContainsAny(seg, "*?") {
			return strings.Join(segments[:i], "/")
		}
	}
	return filepath.Dir(pattern)
}

// SourceDirs returns the directories the watcher will observe
func (w *Watcher) SourceDirs() []string {
	return w.sourceDirs
}

// Start begins watching and blocks until the context is cancelled
func (w *Watcher) Start(ctx context.Context) error {
	if w.scriptPath != "" {
		if err := w.watcher.Add(filepath.Dir(w.scriptPath)); err != nil {
			w.logError("failed to watch script dir: %v", err)
		}
	}

	for _, dir := range w.sourceDirs {
		if err := w.addRecursive(dir); err != nil {
			w.logError("failed to watch %s: %v", dir, err)
			continue
		}
		w.logInfo("watching %s", dir)
	}

	for {
		select {
		case <-ctx.Done():
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logError("watch error: %v", err)
		}
	}
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// addRecursive watches dir and every directory below it
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !w.relevant(event.Name) {
		return
	}

	// New directories join the watch set so nested source trees keep
	// triggering rebuilds
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.watcher.Add(event.Name)
		}
	}

	w.mu.Lock()
	now := time.Now()
	debounced := now.Sub(w.lastChange) < debounceWindow
	if !debounced {
		w.lastChange = now
	}
	w.mu.Unlock()

	if debounced {
		return
	}

	if w.onChange != nil {
		w.onChange(event.Name)
	}
}

// relevant filters events down to the build script and plausible C/C++
// sources and headers
func (w *Watcher) relevant(path string) bool {
	if w.scriptPath != "" && filepath.Base(path) == filepath.Base(w.scriptPath) {
		return true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".c", ".cc", ".cpp", ".cxx", ".h", ".hh", ".hpp", ".hxx":
		return true
	}
	// Directory events carry no extension; keep them so new trees are
	// picked up
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return true
	}
	return false
}

func (w *Watcher) logInfo(format string, args ...any) {
	if w.stdout != nil {
		fmt.Fprintf(w.stdout, format+"\n", args...)
	}
}

func (w *Watcher) logError(format string, args ...any) {
	if w.stderr != nil {
		fmt.Fprintf(w.stderr, format+"\n", args...)
	}
}
