// Package watcher feeds newly created files under a directory tree to the
// staging engine. It is a host adapter: the engine never watches the
// filesystem itself, it only receives paths.
package watcher

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrNotDirectory is returned when the watch root is not a directory.
var ErrNotDirectory = errors.New("watch root is not a directory")

// Watcher observes a directory tree with fsnotify and translates create
// and write events into staging requests. Newly created subdirectories are
// added to the watch set on the fly; .git trees are never watched.
type Watcher struct {
	fsw        *fsnotify.Watcher
	translator *Translator
	log        *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// New starts watching root recursively. Qualifying events (per mode) are
// forwarded to request.
func New(root string, mode Mode, request func(path string), log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !mode.Valid() {
		mode = ModeCreate
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrNotDirectory
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:        fsw,
		translator: NewTranslator(mode, request),
		log:        log,
		done:       make(chan struct{}),
	}

	if err := w.watchTree(abs); err != nil {
		fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

// watchTree registers dir and every subdirectory, skipping .git.
func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warn("watch failed", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

// run is the event loop.
func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := ev.Name
	if filepath.Base(path) == ".git" || underGitDir(path) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if err := w.watchTree(path); err != nil {
				w.log.Warn("watch failed", zap.String("path", path), zap.Error(err))
			}
			return
		}
		w.translator.HandleCreate(path)

	case ev.Has(fsnotify.Write):
		w.translator.HandleWrite(path)

	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.translator.Forget(path)
	}
}

// underGitDir reports whether any ancestor component of path is .git.
func underGitDir(path string) bool {
	dir := path
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		if filepath.Base(parent) == ".git" {
			return true
		}
		dir = parent
	}
}
