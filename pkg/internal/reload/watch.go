package reload

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/knadh/koanf/providers/file"
)

// DefaultDebounce is the quiet period after the last change event before a reload runs.
// Editors often write a file in several steps.
const DefaultDebounce = 100 * time.Millisecond

// Watch calls reload after path changed until ctx is canceled.
// Bursts of change events within debounce trigger one reload.
// Reload errors are logged and the watch continues.
func Watch(ctx context.Context, path string, debounce time.Duration, reload func() error) error {
	if ctx.Err() != nil {
		return nil
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("path", path)

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	provider := file.Provider(path)
	err := provider.Watch(func(_ any, err error) {
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Info("failed watching file", "error", err)
			return
		}

		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, func() {
			mu.Lock()
			defer mu.Unlock()
			if ctx.Err() != nil {
				return
			}

			log.Info("auto-reloading file")
			start := time.Now()
			if err := reload(); err != nil {
				log.Info("failed to reload file, keeping previous", "error", err)
				return
			}
			log.Info("reloaded file successfully", "duration", time.Since(start).Round(time.Millisecond).String())
		})
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = provider.Unwatch()
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()
	return nil
}
