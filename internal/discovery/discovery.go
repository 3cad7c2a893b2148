// Package discovery selects the source files that belong to a module.
package discovery

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// settingsDir is never scanned.
const settingsDir = ".archextract"

// compiledPattern holds both the pattern string and compiled globs
type compiledPattern struct {
	pattern string
	globs   []glob.Glob
}

func (cp compiledPattern) match(p string) bool {
	for _, g := range cp.globs {
		if g.Match(p) {
			return true
		}
	}
	return false
}

// compile compiles pattern with '/' as separator. A "**/" segment also
// matches zero directories, so "**/*.ts" matches "main.ts" and
// "src/**/*.ts" matches "src/main.ts".
func compile(pattern string) (compiledPattern, error) {
	cp := compiledPattern{pattern: pattern}
	variants := []string{pattern}
	if collapsed := strings.ReplaceAll(pattern, "**/", ""); collapsed != pattern {
		variants = append(variants, collapsed)
	}
	for _, v := range variants {
		g, err := glob.Compile(v, '/')
		if err != nil {
			return compiledPattern{}, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		cp.globs = append(cp.globs, g)
	}
	return cp, nil
}

func compileAll(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		cp, err := compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Discovery handles file discovery with glob patterns and ignore rules.
type Discovery struct {
	rootDir string
	include []compiledPattern
	ignore  []compiledPattern
}

// New creates a Discovery rooted at rootDir. A file is eligible when it
// matches an include pattern and no ignore pattern.
func New(rootDir string, include, ignore []string) (*Discovery, error) {
	inc, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	ign, err := compileAll(ignore)
	if err != nil {
		return nil, err
	}
	return &Discovery{rootDir: rootDir, include: inc, ignore: ign}, nil
}

// Match reports whether relPath (slash-separated, relative to the root) is
// eligible for extraction.
func (d *Discovery) Match(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	return !d.shouldIgnore(relPath) && matchesAny(relPath, d.include)
}

// ModulePattern turns a module path into a glob. Plain directories such as
// "./src/orders" select everything below them.
func ModulePattern(modulePath string) string {
	p := filepath.ToSlash(strings.TrimSpace(modulePath))
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimSuffix(p, "/")
	if p == "" || p == "." {
		return "**"
	}
	if strings.ContainsAny(p, "*?[{") {
		return p
	}
	return path.Clean(p) + "/**"
}

// ModuleFiles returns the eligible files selected by modulePath, relative to
// the root, slash-separated and sorted.
func (d *Discovery) ModuleFiles(modulePath string) ([]string, error) {
	module, err := compile(ModulePattern(modulePath))
	if err != nil {
		return nil, fmt.Errorf("module path %q: %w", modulePath, err)
	}

	files := []string{}
	err = filepath.WalkDir(d.rootDir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(d.rootDir, p)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if entry.IsDir() {
			if relPath != "." && d.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if module.match(relPath) && d.Match(relPath) {
			files = append(files, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover files for %q: %w", modulePath, err)
	}

	sort.Strings(files)
	return files, nil
}

// Ignored reports whether relPath (a file or directory) is excluded by the
// ignore patterns.
func (d *Discovery) Ignored(relPath string) bool {
	return d.shouldIgnore(filepath.ToSlash(relPath))
}

// shouldIgnore checks if a path matches any ignore pattern.
func (d *Discovery) shouldIgnore(relPath string) bool {
	if relPath == settingsDir || strings.HasPrefix(relPath, settingsDir+"/") {
		return true
	}

	if matchesAny(relPath, d.ignore) {
		return true
	}

	// Also check if this is a directory that would match with /** suffix
	// For example, "node_modules" should match pattern "node_modules/**"
	return matchesAny(relPath+"/**", d.ignore)
}

func matchesAny(p string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.match(p) {
			return true
		}
	}
	return false
}
