package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector gathers dispatched batches across goroutines for assertion.
type collector struct {
	mu      sync.Mutex
	batches [][]PathEvent
}

func (c *collector) dispatch(batch []PathEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
}

func (c *collector) all() []PathEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []PathEvent
	for _, b := range c.batches {
		out = append(out, b...)
	}
	return out
}

func waitForEvent(t *testing.T, c *collector, want string, cls Classification) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		for _, ev := range c.all() {
			if ev.Path == want && ev.Classification == cls {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %v classification of %s", cls, want)
}

func TestWatcher_DetectsCreatedFile(t *testing.T) {
	root := t.TempDir()
	c := &collector{}

	w, err := NewWithDebounce(root, nil, func() []string { return nil }, c.dispatch, 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	newFile := filepath.Join(root, "new.go")
	require.NoError(t, os.WriteFile(newFile, []byte("package x"), 0o644))

	waitForEvent(t, c, newFile, Created)
}

func TestWatcher_DetectsModifiedKnownFile(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.go")
	require.NoError(t, os.WriteFile(existing, []byte("package x"), 0o644))

	c := &collector{}
	w, err := NewWithDebounce(root, nil, func() []string { return []string{"existing.go"} }, c.dispatch, 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(existing, []byte("package x\n\nfunc A(){}"), 0o644))

	waitForEvent(t, c, existing, Modified)
}

func TestWatcher_ExcludesMatchingPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))

	c := &collector{}
	w, err := NewWithDebounce(root, []string{"**/node_modules/**"}, func() []string { return nil }, c.dispatch, 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	excluded := filepath.Join(root, "node_modules", "lib.js")
	require.NoError(t, os.WriteFile(excluded, []byte("x"), 0o644))

	time.Sleep(300 * time.Millisecond)
	for _, ev := range c.all() {
		assert.NotEqual(t, excluded, ev.Path, "excluded paths must never be dispatched")
	}
}

func TestNew_DefaultsDebounceWindow(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, nil, func() []string { return nil }, func([]PathEvent) {})
	require.NoError(t, err)
	assert.Equal(t, defaultDebounceWindow, w.debounceWindow)
	require.NoError(t, w.fsw.Close())
}
