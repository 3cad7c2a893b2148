package extractor

import "time"

// ProgressReporter provides callbacks for reporting extraction progress.
// Implementations can display progress bars, log messages, or remain silent.
// Callbacks may be invoked from several goroutines.
type ProgressReporter interface {
	// OnModuleStart is called after a module's files have been discovered.
	OnModuleStart(module string, totalFiles int)

	// OnFileProcessed is called after each file is processed.
	OnFileProcessed(module, file string)

	// OnComplete is called when the session completes successfully.
	OnComplete(stats *Stats)
}

// Stats summarizes an extraction session.
type Stats struct {
	Modules    int
	Files      int
	Components int
	Duration   time.Duration
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnModuleStart(module string, totalFiles int) {}
func (n *NoOpProgressReporter) OnFileProcessed(module, file string)         {}
func (n *NoOpProgressReporter) OnComplete(stats *Stats)                     {}
