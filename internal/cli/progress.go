package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/archextract/internal/extractor"
)

// CLIProgressReporter implements progress reporting with one progress bar
// per module.
type CLIProgressReporter struct {
	out io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a CLI progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer) *CLIProgressReporter {
	return &CLIProgressReporter{out: out}
}

func (c *CLIProgressReporter) OnModuleStart(module string, totalFiles int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bar != nil {
		c.bar.Finish()
	}
	c.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription(fmt.Sprintf("Extracting %s", module)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnFileProcessed(module, file string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bar != nil {
		c.bar.Add(1)
	}
}

func (c *CLIProgressReporter) OnComplete(stats *extractor.Stats) {
	c.mu.Lock()
	if c.bar != nil {
		c.bar.Finish()
		c.bar = nil
	}
	c.mu.Unlock()

	fmt.Fprintf(c.out, "✓ Extraction complete: %s components from %s files in %d modules (%.1fs)\n",
		formatNumber(stats.Components), formatNumber(stats.Files), stats.Modules, stats.Duration.Seconds())
}

// formatNumber renders n with thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
