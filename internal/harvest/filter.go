package harvest

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// alwaysIgnored lists directory names the go tool itself never
// treats as package sources.
var alwaysIgnored = []string{"testdata", "vendor"}

// SplitPatterns splits a comma-separated glob list, dropping empty
// entries and surrounding whitespace.
func SplitPatterns(list string) []string {
	var out []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Filter decides which files and directories a harvest visits.
type Filter struct {
	exclude []string
	ignore  []string
}

// NewFilter builds a Filter from comma-separated exclude and ignore
// pattern lists. Exclude patterns are matched against file paths,
// ignore patterns against directory names; an ignored directory is
// not descended into at all.
func NewFilter(exclude, ignore string) *Filter {
	return &Filter{
		exclude: SplitPatterns(exclude),
		ignore:  SplitPatterns(ignore),
	}
}

// SkipDir reports whether the directory at path should not be walked.
// The walk roots themselves are never skipped.
func (f *Filter) SkipDir(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") && base != "." && base != ".." {
		return true
	}
	for _, name := range alwaysIgnored {
		if base == name {
			return true
		}
	}
	for _, pattern := range f.ignore {
		if matchGlob(pattern, filepath.ToSlash(path)) {
			return true
		}
	}
	return false
}

// Include reports whether the file at path should be analyzed.
func (f *Filter) Include(path string) bool {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".go") || strings.HasPrefix(base, ".") {
		return false
	}
	rel := filepath.ToSlash(path)
	for _, pattern := range f.exclude {
		if matchGlob(pattern, rel) {
			return false
		}
	}
	return true
}

// matchGlob matches a slash-separated path against a glob pattern.
// Patterns support "**" for any number of directories. Patterns
// without a separator are also tried against the base name, so
// "*_test.go" excludes test files at any depth.
func matchGlob(pattern, rel string) bool {
	pattern = filepath.ToSlash(pattern)
	rel = strings.TrimPrefix(rel, "./")

	if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
		return true
	}

	// "vendor/**"-style prefixes also match the directory itself.
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
			return true
		}
	}

	if !strings.Contains(pattern, "/") {
		ok, err := doublestar.Match(pattern, pathBase(rel))
		return err == nil && ok
	}
	return false
}

func pathBase(rel string) string {
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		return rel[i+1:]
	}
	return rel
}
