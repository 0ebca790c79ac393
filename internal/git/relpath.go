package git

import (
	"path/filepath"
	"strings"
)

// RelativeTo returns the path of target relative to root when target is a
// true descendant of root. The comparison is on full path components, so
// /repoAB/x is not inside /repo. Returns false when target equals root or
// lies outside it.
func RelativeTo(target, root string) (string, bool) {
	t := filepath.Clean(target)
	r := filepath.Clean(root)
	if t == "" || r == "" || t == "." || r == "." {
		return "", false
	}

	sep := string(filepath.Separator)
	if r == sep {
		rel := strings.TrimPrefix(t, sep)
		if rel == "" || rel == t {
			return "", false
		}
		return rel, true
	}

	prefix := r + sep
	if !strings.HasPrefix(t, prefix) {
		return "", false
	}

	rel := strings.TrimPrefix(t, prefix)
	if rel == "" {
		return "", false
	}
	return rel, true
}
