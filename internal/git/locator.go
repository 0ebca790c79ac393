package git

import (
	"os"
	"path/filepath"
	"sync"
)

// rootEntry is a memoized discovery result. found is false for paths with
// no enclosing repository; the entry itself is the negative-cache tombstone.
type rootEntry struct {
	root  string
	found bool
}

// Locator discovers repository roots by walking parent directories.
//
// Results are cached under the original query path, so two different paths
// under the same physical root hold independent entries. Entries persist
// until Reset is called.
type Locator struct {
	mu    sync.Mutex
	cache map[string]rootEntry
	stat  func(string) (os.FileInfo, error)
}

// NewLocator creates a locator backed by the real filesystem.
func NewLocator() *Locator {
	return NewLocatorWithStat(os.Stat)
}

// NewLocatorWithStat creates a locator with a custom stat function.
func NewLocatorWithStat(stat func(string) (os.FileInfo, error)) *Locator {
	return &Locator{
		cache: make(map[string]rootEntry),
		stat:  stat,
	}
}

// FindRoot returns the repository root containing path. A cached entry,
// positive or negative, is returned without touching the filesystem.
func (l *Locator) FindRoot(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.cache[abs]; ok {
		return entry.root, entry.found
	}

	root, found := l.walk(abs)
	l.cache[abs] = rootEntry{root: root, found: found}
	return root, found
}

// walk climbs from the directory containing abs toward the filesystem root
// looking for a .git marker. The marker may be a directory or a file
// (worktrees and submodules use a file).
func (l *Locator) walk(abs string) (string, bool) {
	current := abs
	if info, err := l.stat(current); err != nil || !info.IsDir() {
		current = filepath.Dir(current)
	}

	for {
		if _, err := l.stat(filepath.Join(current, ".git")); err == nil {
			return current, true
		}

		parent := filepath.Dir(current)
		if parent == current {
			// Reached the filesystem root
			return "", false
		}
		current = parent
	}
}

// Reset discards every cached entry. Called when repository topology may
// have changed (engine setup and cleanup).
func (l *Locator) Reset() {
	l.mu.Lock()
	l.cache = make(map[string]rootEntry)
	l.mu.Unlock()
}

// CacheLen returns the number of cached entries.
func (l *Locator) CacheLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}
