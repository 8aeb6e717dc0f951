package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

type batches struct {
	mu  sync.Mutex
	got [][]string
	ch  chan struct{}
}

func newBatches() *batches { return &batches{ch: make(chan struct{}, 16)} }

func (b *batches) record(_ context.Context, changed []string) {
	b.mu.Lock()
	b.got = append(b.got, changed)
	b.mu.Unlock()
	b.ch <- struct{}{}
}

func (b *batches) snapshot() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]string(nil), b.got...)
}

// startWatcher runs w and waits until the fsnotify watches are registered.
func startWatcher(t *testing.T, w *Watcher) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// fsnotify registers synchronously inside Run; give it a moment to get there.
	time.Sleep(100 * time.Millisecond)
	return func() {
		stop()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatalf("watcher did not stop")
		}
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := tempDir(t)
	spec := filepath.Join(dir, "spec.yml")
	other := filepath.Join(dir, "unrelated.txt")
	require.NoError(t, os.WriteFile(spec, []byte("a"), 0o644))

	b := newBatches()
	w, err := New([]string{spec}, 200*time.Millisecond, nil, b.record)
	require.NoError(t, err)
	stop := startWatcher(t, w)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(spec, []byte{byte('a' + i)}, 0o644))
		require.NoError(t, os.WriteFile(other, []byte{byte('a' + i)}, 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case <-b.ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("no change reported")
	}
	// Nothing else should follow the single batch.
	select {
	case <-b.ch:
		t.Fatalf("burst produced more than one batch: %v", b.snapshot())
	case <-time.After(500 * time.Millisecond):
	}
	stop()

	got := b.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, []string{spec}, got[0])
}

func TestWatcherStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := tempDir(t)
	w, err := New([]string{filepath.Join(dir, "sections.json")}, 0, nil, func(context.Context, []string) {})
	require.NoError(t, err)
	stop := startWatcher(t, w)
	stop()
}

func TestRelevant(t *testing.T) {
	dir := tempDir(t)
	spec := filepath.Join(dir, "spec.yml")
	swap := filepath.Join(dir, ".spec.yml.swp")
	types := filepath.Join(dir, "types", "combined.json")

	w, err := New([]string{spec, swap, types}, time.Second, []string{"*.swp", "**/tmp/**"}, func(context.Context, []string) {})
	require.NoError(t, err)

	assert.True(t, w.Relevant(spec))
	assert.True(t, w.Relevant(types))
	assert.False(t, w.Relevant(filepath.Join(dir, "other.yml")))
	assert.False(t, w.Relevant(swap))
	assert.Equal(t, []string{dir, filepath.Join(dir, "types")}, w.watchDirs())
}

func TestRelevantIgnoresOnlyBelowWatchedDirectory(t *testing.T) {
	// A project living under a directory named tmp must not match **/tmp/**.
	root := filepath.Join(tempDir(t), "home", "dev", "tmp", "refs")
	spec := filepath.Join(root, "spec.yml")

	w, err := New([]string{spec}, time.Second, []string{"**/tmp/**", "tmp/**"}, func(context.Context, []string) {})
	require.NoError(t, err)
	assert.True(t, w.Relevant(spec))

	w, err = New([]string{"/home/dev/tmp/refs/spec.yml"}, time.Second, []string{"**/tmp/**"}, func(context.Context, []string) {})
	require.NoError(t, err)
	assert.True(t, w.Relevant("/home/dev/tmp/refs/spec.yml"))
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(nil, time.Second, nil, nil)
	require.Error(t, err)

	_, err = New(nil, time.Second, []string{"[unterminated"}, func(context.Context, []string) {})
	require.Error(t, err)
}
