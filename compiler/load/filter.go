package load

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultSkipPrefixes are directories never scanned for schemas.
var DefaultSkipPrefixes = []string{"target/", ".git/", "node_modules/", ".cargo/", "artifacts/"}

// Filter decides which corpus paths are loaded. Skip rules win over
// include rules; with no include rules every path is included.
type Filter struct {
	include     []string
	skip        []string
	includeGlob []glob.Glob
	skipGlob    []glob.Glob
}

// NewFilter compiles the prefix and glob rules.
func NewFilter(include, skip, includeGlobs, skipGlobs []string) (*Filter, error) {
	f := &Filter{include: include, skip: skip}
	for _, p := range includeGlobs {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("include pattern %q: %w", p, err)
		}
		f.includeGlob = append(f.includeGlob, g)
	}
	for _, p := range skipGlobs {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("skip pattern %q: %w", p, err)
		}
		f.skipGlob = append(f.skipGlob, g)
	}
	return f, nil
}

// Match reports whether the slash-separated relative path should be loaded.
func (f *Filter) Match(p string) bool {
	if f == nil {
		return true
	}
	for _, s := range f.skip {
		if hasPathPrefix(p, s) {
			return false
		}
	}
	for _, g := range f.skipGlob {
		if g.Match(p) {
			return false
		}
	}
	if len(f.include) == 0 && len(f.includeGlob) == 0 {
		return true
	}
	for _, s := range f.include {
		if strings.HasPrefix(p, s) {
			return true
		}
	}
	for _, g := range f.includeGlob {
		if g.Match(p) {
			return true
		}
	}
	return false
}

// hasPathPrefix matches "a/" against "a/b.json" and also against nested
// "x/a/b.json", since build directories appear anywhere in a tree.
func hasPathPrefix(p, prefix string) bool {
	if strings.HasPrefix(p, prefix) {
		return true
	}
	return strings.HasSuffix(prefix, "/") && strings.Contains(p, "/"+prefix)
}
