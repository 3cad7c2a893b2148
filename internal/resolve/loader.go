package resolve

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dominikbraun/graph"
	"github.com/maypok86/otter"

	"github.com/mvp-joe/archextract/internal/rules"
)

// ErrExtendsCycle is returned when extends references form a cycle.
var ErrExtendsCycle = errors.New("extends cycle")

// CachingLoader memoizes a Loader so each distinct source is loaded once per
// session. Failed loads are not cached.
type CachingLoader struct {
	next  Loader
	cache otter.Cache[string, rules.Module]
}

// NewCachingLoader wraps next with a bounded cache of capacity entries.
func NewCachingLoader(next Loader, capacity int) (*CachingLoader, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	cache, err := otter.MustBuilder[string, rules.Module](capacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build loader cache: %w", err)
	}
	return &CachingLoader{next: next, cache: cache}, nil
}

// Load returns the cached module for source, loading it on a miss.
func (c *CachingLoader) Load(source string) (rules.Module, error) {
	if m, ok := c.cache.Get(source); ok {
		return m, nil
	}
	m, err := c.next.Load(source)
	if err != nil {
		return rules.Module{}, err
	}
	c.cache.Set(source, m)
	return m, nil
}

// Close releases the cache.
func (c *CachingLoader) Close() {
	c.cache.Close()
}

// FileLoader loads base modules from extraction config files on disk.
//
// A source is a file path, optionally followed by "#<module name>" when the
// file declares more than one module. Relative paths are resolved against the
// directory of the file holding the extends reference. Bases may extend other
// bases; cycles are reported as ErrExtendsCycle.
type FileLoader struct {
	baseDir string

	mu    sync.Mutex
	chain graph.Graph[string, string]
}

// NewFileLoader creates a FileLoader resolving top-level sources against baseDir.
func NewFileLoader(baseDir string) *FileLoader {
	return &FileLoader{
		baseDir: baseDir,
		chain:   graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
	}
}

// Load implements Loader.
func (l *FileLoader) Load(source string) (rules.Module, error) {
	return l.load(source, l.baseDir, "")
}

func (l *FileLoader) load(source, dir, from string) (rules.Module, error) {
	path, name := splitSource(source)
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	path = filepath.Clean(path)
	key := path
	if name != "" {
		key += "#" + name
	}

	if err := l.link(from, key); err != nil {
		return rules.Module{}, err
	}

	cfg, err := rules.DecodeFile(path)
	if err != nil {
		return rules.Module{}, err
	}
	mc, err := pickModule(cfg, name, path)
	if err != nil {
		return rules.Module{}, err
	}

	next := LoaderFunc(func(s string) (rules.Module, error) {
		return l.load(s, filepath.Dir(path), key)
	})
	return ResolveModule(mc, next)
}

// Files returns the config files loaded so far, sorted.
func (l *FileLoader) Files() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	adjacency, err := l.chain.AdjacencyMap()
	if err != nil {
		return nil
	}
	seen := make(map[string]bool, len(adjacency))
	files := make([]string, 0, len(adjacency))
	for key := range adjacency {
		path, _ := splitSource(key)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files
}

// link records the edge from -> key, rejecting edges that close a cycle.
func (l *FileLoader) link(from, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.chain.AddVertex(key)
	if from == "" {
		return nil
	}
	err := l.chain.AddEdge(from, key)
	switch {
	case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return fmt.Errorf("%w: %s -> %s", ErrExtendsCycle, from, key)
	}
	return fmt.Errorf("failed to record extends %s -> %s: %w", from, key, err)
}

func splitSource(source string) (path, name string) {
	if i := strings.LastIndex(source, "#"); i >= 0 {
		return source[:i], source[i+1:]
	}
	return source, ""
}

func pickModule(cfg *rules.ExtractionConfig, name, path string) (rules.ModuleConfig, error) {
	if name == "" {
		if len(cfg.Modules) != 1 {
			return rules.ModuleConfig{}, fmt.Errorf("%s declares %d modules; select one with %s#<name>", path, len(cfg.Modules), path)
		}
		return cfg.Modules[0], nil
	}
	for _, mc := range cfg.Modules {
		if mc.Name == name {
			return mc, nil
		}
	}
	return rules.ModuleConfig{}, fmt.Errorf("%s: module %q not found", path, name)
}
