package activity

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"branch-tracker/internal/logging"
)

// Handlers receives classified file-system events. Nil handlers are skipped.
type Handlers struct {
	Activity     func()
	BranchMoved  func()
	RemoteChange func()
}

// skipDirs are never watched; they churn without meaning the user is working.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".idea":        true,
	".vscode":      true,
}

// Watcher turns writes in a working tree into activity, branch and remote
// notifications.
type Watcher struct {
	root     string
	gitDir   string
	fs       *fsnotify.Watcher
	handlers Handlers
}

// NewWatcher watches root and every directory below it, plus root/.git for
// HEAD and config changes.
func NewWatcher(root string, handlers Handlers) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     root,
		gitDir:   filepath.Join(root, ".git"),
		fs:       fw,
		handlers: handlers,
	}

	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	if info, err := os.Stat(w.gitDir); err == nil && info.IsDir() {
		if err := fw.Add(w.gitDir); err != nil {
			logging.Warnf("cannot watch %s: %v", w.gitDir, err)
		}
	}
	return w, nil
}

// Run dispatches events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fs.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.Warnf("file watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if filepath.Dir(event.Name) == w.gitDir {
		switch filepath.Base(event.Name) {
		case "HEAD":
			logging.Debugf("HEAD changed")
			call(w.handlers.BranchMoved)
		case "config":
			logging.Debugf("git config changed")
			call(w.handlers.RemoteChange)
		}
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	call(w.handlers.Activity)

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !skipDirs[filepath.Base(event.Name)] {
			if err := w.addTree(event.Name); err != nil {
				logging.Debugf("cannot watch new directory %s: %v", event.Name, err)
			}
		}
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			logging.Debugf("cannot watch %s: %v", path, err)
		}
		return nil
	})
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
