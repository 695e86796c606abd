package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects handler calls.
type recorder struct {
	mu     sync.Mutex
	events []FileEvent
	err    error
}

func (r *recorder) handle(_ context.Context, ev FileEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) snapshot() []FileEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FileEvent, len(r.events))
	copy(out, r.events)
	return out
}

// startWatcher runs w in the background and stops it at cleanup.
func startWatcher(t *testing.T, w *SourceWatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	// Let Run install its loop before the test touches the file.
	time.Sleep(50 * time.Millisecond)
}

func writeSource(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewSourceWatcher_Validation(t *testing.T) {
	dir := t.TempDir()

	_, err := NewSourceWatcher(filepath.Join(dir, "lexicon.yaml"), DefaultOptions(), nil)
	assert.Error(t, err)

	_, err = NewSourceWatcher(filepath.Join(dir, "missing", "lexicon.yaml"), DefaultOptions(), (&recorder{}).handle)
	assert.Error(t, err)
}

func TestSourceWatcher_Modes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")

	w, err := NewSourceWatcher(path, Options{ForcePolling: true}, (&recorder{}).handle)
	require.NoError(t, err)
	assert.Equal(t, ModePolling, w.Mode())
	assert.Equal(t, path, w.Path())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}

func TestSourceWatcher_ReloadsOnWrite(t *testing.T) {
	for _, mode := range []string{ModeFsnotify, ModePolling} {
		t.Run(mode, func(t *testing.T) {
			// Given: a watched source file
			dir := t.TempDir()
			path := filepath.Join(dir, "lexicon.yaml")
			writeSource(t, path, "entries: []\n")

			rec := &recorder{}
			opts := Options{
				DebounceWindow: 50 * time.Millisecond,
				PollInterval:   20 * time.Millisecond,
				ForcePolling:   mode == ModePolling,
			}
			w, err := NewSourceWatcher(path, opts, rec.handle)
			require.NoError(t, err)
			if mode == ModeFsnotify && w.Mode() != ModeFsnotify {
				t.Skip("fsnotify unavailable")
			}
			startWatcher(t, w)

			// When: the file is rewritten
			writeSource(t, path, "entries:\n  - id: 1\n")

			// Then: the handler runs for the watched path
			require.Eventually(t, func() bool { return len(rec.snapshot()) >= 1 }, 2*time.Second, 10*time.Millisecond)
			ev := rec.snapshot()[0]
			assert.Equal(t, path, ev.Path)
			assert.NotEqual(t, OpDelete, ev.Operation)
			assert.Equal(t, uint64(1), w.Reloads())
		})
	}
}

func TestSourceWatcher_BurstTriggersOneReload(t *testing.T) {
	// Given: a watcher with a debounce window longer than the burst
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	writeSource(t, path, "entries: []\n")

	rec := &recorder{}
	w, err := NewSourceWatcher(path, Options{DebounceWindow: 150 * time.Millisecond}, rec.handle)
	require.NoError(t, err)
	if w.Mode() != ModeFsnotify {
		t.Skip("fsnotify unavailable")
	}
	startWatcher(t, w)

	// When: the file is written several times quickly
	for i := 0; i < 5; i++ {
		writeSource(t, path, "entries: []\n# rev "+string(rune('a'+i))+"\n")
		time.Sleep(10 * time.Millisecond)
	}

	// Then: one reload
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestSourceWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	writeSource(t, path, "entries: []\n")

	rec := &recorder{}
	w, err := NewSourceWatcher(path, Options{DebounceWindow: 30 * time.Millisecond}, rec.handle)
	require.NoError(t, err)
	if w.Mode() != ModeFsnotify {
		t.Skip("fsnotify unavailable")
	}
	startWatcher(t, w)

	// When: another file in the same directory changes
	writeSource(t, filepath.Join(dir, "notes.txt"), "hello")

	// Then: no reload
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestSourceWatcher_HandlerErrorIsCounted(t *testing.T) {
	// Given: a handler that fails
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	writeSource(t, path, "entries: []\n")

	rec := &recorder{err: errors.New("invalid entry")}
	w, err := NewSourceWatcher(path, Options{
		DebounceWindow: 30 * time.Millisecond,
		PollInterval:   20 * time.Millisecond,
		ForcePolling:   true,
	}, rec.handle)
	require.NoError(t, err)
	startWatcher(t, w)

	// When: the file changes
	time.Sleep(30 * time.Millisecond)
	writeSource(t, path, "entries: [broken\n")

	// Then: the failure is counted and the watcher keeps running
	require.Eventually(t, func() bool { return w.Failures() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(0), w.Reloads())
}

func TestSourceWatcher_RunReturnsOnStop(t *testing.T) {
	dir := t.TempDir()
	w, err := NewSourceWatcher(filepath.Join(dir, "lexicon.yaml"), Options{ForcePolling: true}, (&recorder{}).handle)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, w.Stop())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
