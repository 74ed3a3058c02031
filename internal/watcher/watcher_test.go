package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bikedash/internal/infrastructure"
	"bikedash/internal/rentals"
	"bikedash/internal/shared/testutil"
)

type countingReloader struct {
	calls   atomic.Int32
	err     error
	traceID atomic.Value
}

func (r *countingReloader) Reload(ctx context.Context) (*rentals.LoadReport, error) {
	r.calls.Add(1)
	r.traceID.Store(infrastructure.GetTraceID(ctx))
	if r.err != nil {
		return nil, r.err
	}
	return &rentals.LoadReport{Rows: 1}, nil
}

func startWatcher(t *testing.T, reloader Reloader) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "all_data.csv")
	require.NoError(t, os.WriteFile(path, []byte("dteday\n"), 0o644))

	logger, _ := testutil.NewTestLogger(t)
	w, err := New(path, reloader, 50*time.Millisecond, logger)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	return w, path
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	defer goleak.VerifyNone(t)

	reloader := &countingReloader{}
	w, path := startWatcher(t, reloader)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("dteday,hr\n"), 0o644))
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return reloader.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), reloader.calls.Load())
	assert.NotEmpty(t, reloader.traceID.Load())

	stats := w.Stats()
	assert.Equal(t, 1, stats.Reloads)
	assert.GreaterOrEqual(t, stats.Events, 1)

	require.NoError(t, w.Stop())
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	reloader := &countingReloader{}
	w, path := startWatcher(t, reloader)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "notes.txt"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)

	assert.Zero(t, reloader.calls.Load())
	assert.Zero(t, w.Stats().Events)
	require.NoError(t, w.Stop())
}

func TestWatcher_CountsFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	reloader := &countingReloader{err: errors.New("schema mismatch")}
	w, path := startWatcher(t, reloader)

	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))

	assert.Eventually(t, func() bool { return w.Stats().Failures == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, w.Stats().Reloads)
	require.NoError(t, w.Stop())
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, _ := startWatcher(t, &countingReloader{})
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
	assert.Error(t, w.Start(context.Background()))
}
