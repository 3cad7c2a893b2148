package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for FileWatcher:
// - NewFileWatcher returns error with invalid directory
// - Single file change fires callback after debounce with a root-relative path
// - Multiple file changes are batched into one sorted callback
// - Match filters out uninteresting files
// - SkipDir leaves directories unwatched
// - New directories are watched recursively and report the files they already hold
// - Pause accumulates and Resume fires immediately
// - Stop() is idempotent and context cancellation stops the watcher

func tsOnly(rel string) bool { return strings.HasSuffix(rel, ".ts") }

func startWatcher(t *testing.T, opts Options) (FileWatcher, <-chan []string) {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = 100 * time.Millisecond
	}
	w, err := NewFileWatcher(opts)
	require.NoError(t, err)
	t.Cleanup(func() { w.Stop() })

	calls := make(chan []string, 10)
	require.NoError(t, w.Start(context.Background(), func(files []string) {
		calls <- files
	}))

	// Wait for watcher to initialize
	time.Sleep(100 * time.Millisecond)
	return w, calls
}

func waitForCall(t *testing.T, calls <-chan []string) []string {
	t.Helper()
	select {
	case files := <-calls:
		return files
	case <-time.After(2 * time.Second):
		t.Fatal("Callback not called after timeout")
	}
	return nil
}

func TestNewFileWatcher_InvalidDirectory(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher(Options{RootDir: filepath.Join(t.TempDir(), "nonexistent")})
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestFileWatcher_SingleFileChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, calls := startWatcher(t, Options{RootDir: root, Match: tsOnly})

	require.NoError(t, os.WriteFile(filepath.Join(root, "orders.ts"), []byte("export class A {}"), 0644))

	assert.Equal(t, []string{"orders.ts"}, waitForCall(t, calls))
}

func TestFileWatcher_BatchesAndFilters(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	_, calls := startWatcher(t, Options{RootDir: root, Match: tsOnly, Debounce: 300 * time.Millisecond})

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "b.ts"), []byte("1"), 0644))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("2"), 0644))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("3"), 0644))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte("4"), 0644))

	assert.Equal(t, []string{"a.ts", "src/b.ts"}, waitForCall(t, calls))
}

func TestFileWatcher_SkipDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "lib"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	_, calls := startWatcher(t, Options{
		RootDir: root,
		Match:   tsOnly,
		SkipDir: func(rel string) bool { return rel == "node_modules" },
	})

	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "lib", "x.ts"), []byte("1"), 0644))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "y.ts"), []byte("2"), 0644))

	assert.Equal(t, []string{"src/y.ts"}, waitForCall(t, calls))
}

func TestFileWatcher_DirectoryAdded(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, calls := startWatcher(t, Options{RootDir: root, Match: tsOnly})

	dir := filepath.Join(root, "billing")
	require.NoError(t, os.MkdirAll(dir, 0755))
	// Give the watcher time to pick up the new directory
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "invoice.ts"), []byte("1"), 0644))

	files := waitForCall(t, calls)
	assert.Contains(t, files, "billing/invoice.ts")
}

func TestFileWatcher_DirectoryMovedInWithFiles(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	root := filepath.Join(base, "root")
	require.NoError(t, os.MkdirAll(root, 0755))
	_, calls := startWatcher(t, Options{RootDir: root, Match: tsOnly})

	staged := filepath.Join(base, "staged")
	require.NoError(t, os.MkdirAll(filepath.Join(staged, "jobs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(staged, "invoice.ts"), []byte("1"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(staged, "jobs", "sweep.ts"), []byte("1"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(staged, "notes.md"), []byte("1"), 0644))

	require.NoError(t, os.Rename(staged, filepath.Join(root, "billing")))

	assert.Equal(t, []string{"billing/invoice.ts", "billing/jobs/sweep.ts"}, waitForCall(t, calls))
}

func TestFileWatcher_PauseResume(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, calls := startWatcher(t, Options{RootDir: root, Match: tsOnly})

	w.Pause()
	require.NoError(t, os.WriteFile(filepath.Join(root, "paused.ts"), []byte("1"), 0644))

	select {
	case files := <-calls:
		t.Fatalf("callback fired while paused: %v", files)
	case <-time.After(400 * time.Millisecond):
	}

	w.Resume()
	assert.Equal(t, []string{"paused.ts"}, waitForCall(t, calls))
}

func TestFileWatcher_StopAndCancel(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher(Options{RootDir: t.TempDir()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx, func([]string) {}))
	cancel()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Stop()
		}()
	}
	wg.Wait()
}

func TestFileWatcher_StopWithoutStart(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher(Options{RootDir: t.TempDir()})
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
}
