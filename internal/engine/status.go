package engine

import (
	"path/filepath"

	"github.com/dshills/stagehand/internal/git"
)

// StatusSnapshot is a read-only diagnostic view for a path. Building one
// never mutates pending state and never spawns a subprocess.
type StatusSnapshot struct {
	// Path is the absolute query path.
	Path string

	// InRepository reports whether a repository root was discovered.
	InRepository bool

	// Root is the repository root, when discovered.
	Root string

	// RelPath is the path relative to Root, when inside it.
	RelPath string

	// Accepted and Reason mirror the policy decision the path would
	// receive right now.
	Accepted bool
	Reason   string

	// Pending and InFlight report the scheduler state for the path.
	Pending  bool
	InFlight bool
}

// Status combines repository discovery, path resolution, and the policy
// decision for diagnostics.
func (e *Engine) Status(path string) StatusSnapshot {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	snap := StatusSnapshot{Path: abs}

	e.mu.RLock()
	filter := e.filter
	e.mu.RUnlock()

	decision := filter.Decide(abs)
	snap.Accepted = decision.Accepted
	snap.Reason = decision.Reason

	if root, ok := e.locator.FindRoot(abs); ok {
		snap.InRepository = true
		snap.Root = root
		if rel, ok := git.RelativeTo(abs, root); ok {
			snap.RelPath = rel
		}
	}

	snap.Pending, snap.InFlight = e.sched.State(abs)
	return snap
}
