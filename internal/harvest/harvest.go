// Package harvest measures the cyclomatic complexity of every
// function in a set of Go source trees and collects the results into
// an ordered per-file Report.
//
// Complexity is computed with gocyclo: 1 plus one for each if, for,
// case, && and ||.
package harvest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/fzipp/gocyclo"
	"golang.org/x/sync/errgroup"
)

// Options configures a harvest.
type Options struct {
	// Exclude is a comma-separated list of file globs to skip.
	Exclude string

	// Ignore is a comma-separated list of directory globs that are
	// not descended into.
	Ignore string

	// NoAssert is carried for parity with the configuration surface.
	// gocyclo has no per-statement toggle, so it does not change
	// the measured scores.
	NoAssert bool

	// IncludeGenerated analyzes files carrying a
	// "// Code generated ... DO NOT EDIT." header. Default: skipped.
	IncludeGenerated bool

	// Concurrency bounds the number of files parsed at once.
	// Zero means GOMAXPROCS.
	Concurrency int
}

// Harvest discovers the Go files under paths, measures each one and
// returns the report in discovery order. A file that fails to parse
// becomes an error marker in the report rather than a failure of the
// whole harvest; only discovery errors (such as a missing path) are
// returned.
func Harvest(ctx context.Context, paths []string, opts Options) (*Report, error) {
	files, err := Discover(paths, NewFilter(opts.Exclude, opts.Ignore))
	if err != nil {
		return nil, err
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	// Each slot is written by exactly one goroutine.
	results := make([]*Module, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = analyzeFile(file, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, m := range results {
		if m == nil {
			continue
		}
		report.Modules = append(report.Modules, *m)
	}
	return report, nil
}

// Discover walks paths in order and returns the Go files the filter
// accepts. Files named directly are kept when they pass the exclude
// patterns; directories are walked in lexical order. A file reached
// through more than one path is listed once, at its first position.
func Discover(paths []string, filter *Filter) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if seen[key] {
			return
		}
		seen[key] = true
		files = append(files, path)
	}
	for _, root := range paths {
		root = filepath.Clean(root)
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", root, err)
		}
		if !info.IsDir() {
			if filter.Include(root) {
				add(root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && filter.SkipDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if filter.Include(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %q: %w", root, err)
		}
	}
	return files, nil
}

// analyzeFile parses one file and computes per-function complexity.
// It returns nil for generated files that should be left out.
func analyzeFile(path string, opts Options) *Module {
	src, err := os.ReadFile(path)
	if err != nil {
		return &Module{Name: path, Err: err.Error()}
	}

	if !opts.IncludeGenerated && isGenerated(src) {
		return nil
	}

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return &Module{Name: path, Err: err.Error()}
	}

	stats := gocyclo.AnalyzeASTFile(f, fset, nil)
	blocks := make([]Block, 0, len(stats))
	for _, s := range stats {
		blocks = append(blocks, Block{
			Name:       s.FuncName,
			Lineno:     s.Pos.Line,
			Complexity: s.Complexity,
		})
	}
	return &Module{Name: path, Blocks: blocks}
}

// generatedRegexp matches the Go convention for generated file headers:
// "^// Code generated .* DO NOT EDIT\.$"
var generatedRegexp = regexp.MustCompile(`^// Code generated .* DO NOT EDIT\.$`)

// isGenerated looks for the generated-code marker before the package
// clause.
func isGenerated(src []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(src))
	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(trimmed, "package ") {
			return false
		}
		if generatedRegexp.MatchString(trimmed) {
			return true
		}
	}
	return false
}
