package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mvp-joe/archextract/internal/config"
	"github.com/mvp-joe/archextract/internal/extractor"
	"github.com/mvp-joe/archextract/internal/resolve"
	"github.com/mvp-joe/archextract/internal/rules"
	"github.com/mvp-joe/archextract/internal/syntax/typescript"
	"github.com/mvp-joe/archextract/internal/watcher"
)

// session ties a project root to its loaded configuration.
type session struct {
	rootDir   string
	cfg       *config.Config
	extractor *extractor.Extractor

	mu        sync.Mutex
	ruleFiles map[string]bool // rules file and its extends bases, absolute
}

// openSession loads the configuration of rootDir (or configFile, when set)
// and prepares an extractor reporting to progress.
func openSession(rootDir, configFile string, progress extractor.ProgressReporter) (*session, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	var loader config.Loader
	if configFile != "" {
		loader = config.NewFileLoader(absRoot, configFile)
	} else {
		loader = config.NewLoader(absRoot)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	ex, err := extractor.New(cfg.ExtractorOptions(absRoot, progress))
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	return &session{rootDir: absRoot, cfg: cfg, extractor: ex}, nil
}

// resolveRules decodes the rules file and resolves every module. Bases
// referenced through extends are memoized for the duration of the call.
func (s *session) resolveRules() (*rules.ResolvedExtractionConfig, error) {
	path := s.cfg.RulesPath(s.rootDir)
	raw, err := rules.DecodeFile(path)
	if err != nil {
		return nil, err
	}

	files := resolve.NewFileLoader(filepath.Dir(path))
	loader, err := resolve.NewCachingLoader(files, s.cfg.Extraction.LoaderCacheSize)
	if err != nil {
		return nil, err
	}
	defer loader.Close()

	resolved, err := resolve.Resolve(raw, loader)
	s.setRuleFiles(append(files.Files(), path))
	return resolved, err
}

func (s *session) setRuleFiles(paths []string) {
	ruleFiles := make(map[string]bool, len(paths))
	for _, p := range paths {
		ruleFiles[filepath.Clean(p)] = true
	}
	s.mu.Lock()
	s.ruleFiles = ruleFiles
	s.mu.Unlock()
}

// extract resolves the rules and runs a full extraction session.
func (s *session) extract(ctx context.Context) (*extractor.Result, error) {
	resolved, err := s.resolveRules()
	if err != nil {
		return nil, err
	}
	return s.extractor.Run(ctx, resolved)
}

// newWatcher watches the source files the session extracts from, the rules
// file and the bases it extends.
func (s *session) newWatcher() (watcher.FileWatcher, error) {
	return watcher.NewFileWatcher(watcher.Options{
		RootDir: s.rootDir,
		Match:   s.watched,
		SkipDir: s.extractor.Discovery().Ignored,
	})
}

// watched reports whether a change to rel can change the extraction result.
// The output file never is, or every run would trigger the next one.
func (s *session) watched(rel string) bool {
	abs := filepath.Join(s.rootDir, filepath.FromSlash(rel))
	if out := s.resolvePath(s.cfg.Output.File); out != "" && filepath.Clean(out) == abs {
		return false
	}

	ext := strings.ToLower(filepath.Ext(rel))
	if ext == ".yml" || ext == ".yaml" || ext == ".json" {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.ruleFiles == nil {
			return filepath.Clean(s.cfg.RulesPath(s.rootDir)) == abs
		}
		return s.ruleFiles[abs]
	}

	d := s.extractor.Discovery()
	return !d.Ignored(rel) && typescript.Supported(rel) && d.Match(rel)
}

func (s *session) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.rootDir, p)
}
