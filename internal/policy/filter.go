// Package policy decides whether a path is eligible for automatic staging.
// The filter is a pure predicate layer: it compiles its patterns once at
// construction and performs no subprocess calls of its own.
package policy

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/dshills/stagehand/internal/config"
	"github.com/dshills/stagehand/internal/git"
)

// Decision is the outcome of evaluating a path against the filter. Reason
// is always populated; hosts surface it verbatim in status displays.
type Decision struct {
	Accepted bool
	Reason   string
}

// Reason strings. Kept stable: status displays and tests match on them.
const (
	ReasonOK             = "OK"
	ReasonDisabled       = "Plugin disabled"
	ReasonNotRegularFile = "Not a regular file"
	ReasonExcluded       = "File matches exclude pattern"
	ReasonNotIncluded    = "File does not match any include pattern"
	ReasonTooLarge       = "File exceeds maximum size"
	ReasonOutsideDirs    = "File outside allowed directories"
	ReasonNoRepository   = "Not inside a git repository"
)

// RootResolver supplies repository root lookups. Satisfied by *git.Locator.
type RootResolver interface {
	FindRoot(path string) (string, bool)
}

// pattern is a precompiled include/exclude entry. Patterns containing a
// slash match the full slash-separated path; others match the base name.
type pattern struct {
	g        glob.Glob
	hasSlash bool
}

func compilePatterns(raw []string) ([]pattern, error) {
	out := make([]pattern, 0, len(raw))
	for _, p := range raw {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		out = append(out, pattern{g: g, hasSlash: strings.Contains(p, "/")})
	}
	return out, nil
}

func (p pattern) match(slashedPath string) bool {
	if p.hasSlash {
		return p.g.Match(slashedPath)
	}
	return p.g.Match(filepath.Base(slashedPath))
}

// Filter evaluates staging eligibility for paths under one configuration
// snapshot. Build a new Filter when the configuration changes.
type Filter struct {
	cfg      config.Config
	includes []pattern
	excludes []pattern
	locator  RootResolver
	stat     func(string) (os.FileInfo, error)
}

// Option configures a Filter.
type Option func(*Filter)

// WithStat replaces the stat function (tests).
func WithStat(stat func(string) (os.FileInfo, error)) Option {
	return func(f *Filter) { f.stat = stat }
}

// New compiles cfg's patterns into a filter. locator is consulted only for
// the allow-list and repository checks.
func New(cfg config.Config, locator RootResolver, opts ...Option) (*Filter, error) {
	excludes, err := compilePatterns(cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	includes, err := compilePatterns(cfg.IncludePatterns)
	if err != nil {
		return nil, err
	}

	f := &Filter{
		cfg:      cfg,
		includes: includes,
		excludes: excludes,
		locator:  locator,
		stat:     os.Stat,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Decide evaluates path against every policy check, short-circuiting on the
// first rejection. Check order is part of the contract: it determines which
// reason a host sees for a path that fails several checks.
func (f *Filter) Decide(path string) Decision {
	if !f.cfg.Enabled {
		return Decision{Reason: ReasonDisabled}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Decision{Reason: ReasonNotRegularFile}
	}
	info, err := f.stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return Decision{Reason: ReasonNotRegularFile}
	}

	slashed := filepath.ToSlash(abs)
	for _, p := range f.excludes {
		if p.match(slashed) {
			return Decision{Reason: ReasonExcluded}
		}
	}

	if len(f.includes) > 0 {
		matched := false
		for _, p := range f.includes {
			if p.match(slashed) {
				matched = true
				break
			}
		}
		if !matched {
			return Decision{Reason: ReasonNotIncluded}
		}
	}

	if f.cfg.MaxFileSizeBytes > 0 && info.Size() > f.cfg.MaxFileSizeBytes {
		return Decision{Reason: ReasonTooLarge}
	}

	if len(f.cfg.RestrictToDirs) > 0 {
		if !f.insideAllowedDirs(abs) {
			return Decision{Reason: ReasonOutsideDirs}
		}
	}

	if _, ok := f.locator.FindRoot(abs); !ok {
		return Decision{Reason: ReasonNoRepository}
	}

	return Decision{Accepted: true, Reason: ReasonOK}
}

// insideAllowedDirs reports whether the repo-relative path of abs starts
// with one of the configured directory prefixes. A missing repository root
// or relative path fails the check.
func (f *Filter) insideAllowedDirs(abs string) bool {
	root, ok := f.locator.FindRoot(abs)
	if !ok {
		return false
	}
	rel, ok := git.RelativeTo(abs, root)
	if !ok {
		return false
	}

	relSlashed := filepath.ToSlash(rel)
	for _, dir := range f.cfg.RestrictToDirs {
		prefix := strings.Trim(filepath.ToSlash(dir), "/")
		if prefix == "" {
			continue
		}
		if relSlashed == prefix || strings.HasPrefix(relSlashed, prefix+"/") {
			return true
		}
	}
	return false
}
