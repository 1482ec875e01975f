package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robinbraemer/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestWatchDebouncesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.yml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	require.NoError(t, Watch(ctx, path, 50*time.Millisecond, func() error {
		reloads.Inc()
		return nil
	}))

	for _, s := range []string{"b", "c", "d"} {
		require.NoError(t, os.WriteFile(path, []byte(s), 0o644))
	}
	assert.Eventually(t, func() bool { return reloads.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), reloads.Load())
}

func TestWatchCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Watch(ctx, "does-not-exist.yml", 0, func() error {
		t.Fatal("reload called")
		return nil
	}))
}

func TestFireConfigUpdate(t *testing.T) {
	type config struct{ N int }
	mgr := event.New()

	var got *ConfigUpdateEvent[config]
	unsubscribe := Subscribe(mgr, func(e *ConfigUpdateEvent[config]) { got = e })

	prev, next := &config{N: 1}, &config{N: 2}
	FireConfigUpdate(mgr, next, prev)
	require.NotNil(t, got)
	assert.Same(t, next, got.Config)
	assert.Same(t, prev, got.PrevConfig)

	unsubscribe()
	got = nil
	FireConfigUpdate(mgr, prev, next)
	assert.Nil(t, got)
}
