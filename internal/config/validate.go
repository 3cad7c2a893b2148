package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidFormat indicates an unsupported output format
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrEmptyRulesPath indicates a missing rules file setting
	ErrEmptyRulesPath = errors.New("empty rules path")

	// ErrInvalidWorkers indicates a non-positive worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrEmptyIncludePatterns indicates no source files could ever match
	ErrEmptyIncludePatterns = errors.New("empty include patterns")

	// ErrInvalidCacheSize indicates a non-positive loader cache size
	ErrInvalidCacheSize = errors.New("invalid loader cache size")

	// ErrEmptyStoragePath indicates storage is enabled without a database path
	ErrEmptyStoragePath = errors.New("empty storage path")
)

// Formats lists the supported output formats.
var Formats = []string{"json", "yaml"}

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Rules) == "" {
		errs = append(errs, fmt.Errorf("%w: rules is required", ErrEmptyRulesPath))
	}

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if err := ValidateFormat(cfg.Output.Format); err != nil {
		errs = append(errs, err)
	}

	if cfg.Storage.Enabled && strings.TrimSpace(cfg.Storage.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: storage.path is required when storage is enabled", ErrEmptyStoragePath))
	}

	if err := validateExtraction(&cfg.Extraction); err != nil {
		errs = append(errs, err)
	}

	return joinErrors(errs)
}

// ValidateFormat reports whether format is a supported output format.
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if strings.EqualFold(format, f) {
			return nil
		}
	}
	return fmt.Errorf("%w: must be one of %s, got '%s'", ErrInvalidFormat, strings.Join(Formats, ", "), format)
}

func validatePaths(cfg *PathsConfig) error {
	if len(cfg.Include) == 0 {
		return fmt.Errorf("%w: at least one include pattern required", ErrEmptyIncludePatterns)
	}
	return nil
}

func validateExtraction(cfg *ExtractionConfig) error {
	var errs []error

	if cfg.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidWorkers, cfg.Workers))
	}

	if cfg.LoaderCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: loader_cache_size must be positive, got %d", ErrInvalidCacheSize, cfg.LoaderCacheSize))
	}

	return joinErrors(errs)
}

// joinErrors combines multiple errors into a single error with clear
// formatting. Every input stays reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return &validationError{
		msg:  fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - ")),
		errs: errs,
	}
}

type validationError struct {
	msg  string
	errs []error
}

func (e *validationError) Error() string   { return e.msg }
func (e *validationError) Unwrap() []error { return e.errs }
