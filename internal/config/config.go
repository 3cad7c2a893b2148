package config

import (
	"path/filepath"
	"runtime"

	"github.com/mvp-joe/archextract/internal/extractor"
)

// Config represents the complete archextract configuration.
// It can be loaded from .archextract/config.yml with environment variable overrides.
type Config struct {
	Rules      string           `yaml:"rules" mapstructure:"rules"` // extraction rules file, relative to the root
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
}

// PathsConfig narrows the files module paths may select.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for source files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to ignore
}

// OutputConfig controls how extracted components are written.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // "json" or "yaml"
	File   string `yaml:"file" mapstructure:"file"`     // empty writes to stdout
}

// StorageConfig controls persistence of extraction runs.
type StorageConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"` // SQLite database, relative to the root
}

// ExtractionConfig tunes the extraction session.
type ExtractionConfig struct {
	Workers         int `yaml:"workers" mapstructure:"workers"`                     // files parsed in parallel
	LoaderCacheSize int `yaml:"loader_cache_size" mapstructure:"loader_cache_size"` // memoized extends sources
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Rules: "archextract.yml",
		Paths: PathsConfig{
			Include: []string{
				"**/*.ts",
				"**/*.tsx",
			},
			Ignore: []string{
				"node_modules/**",
				"**/node_modules/**",
				"dist/**",
				"build/**",
				".git/**",
				"**/*.d.ts",
			},
		},
		Output: OutputConfig{
			Format: "json",
		},
		Storage: StorageConfig{
			Enabled: false,
			Path:    filepath.Join(".archextract", "archextract.db"),
		},
		Extraction: ExtractionConfig{
			Workers:         runtime.NumCPU(),
			LoaderCacheSize: 64,
		},
	}
}

// RulesPath returns the rules file resolved against rootDir.
func (c *Config) RulesPath(rootDir string) string {
	return resolvePath(rootDir, c.Rules)
}

// StoragePath returns the database path resolved against rootDir.
func (c *Config) StoragePath(rootDir string) string {
	return resolvePath(rootDir, c.Storage.Path)
}

func resolvePath(rootDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(rootDir, p)
}

// ExtractorOptions converts the configuration into extractor options for rootDir.
func (c *Config) ExtractorOptions(rootDir string, progress extractor.ProgressReporter) extractor.Options {
	return extractor.Options{
		RootDir:  rootDir,
		Include:  c.Paths.Include,
		Ignore:   c.Paths.Ignore,
		Workers:  c.Extraction.Workers,
		Progress: progress,
	}
}
