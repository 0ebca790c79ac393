package git

import "errors"

// Error types for repository resolution.
var (
	// ErrNotRepository indicates no repository root was found for a path.
	ErrNotRepository = errors.New("not a git repository")

	// ErrOutsideRepository indicates a path is not a descendant of its
	// resolved repository root.
	ErrOutsideRepository = errors.New("path outside repository")
)
