package transcript

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/labstack/gommon/log"
)

// Watcher reports transcript files changed by any process sharing the directory.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	notify   func(key string)

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewWatcher watches dir and calls notify with the key of each changed
// transcript once it has been quiet for debounce.
func NewWatcher(dir string, debounce time.Duration, notify func(key string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		dir:      dir,
		watcher:  fw,
		debounce: debounce,
		notify:   notify,
		pending:  make(map[string]time.Time),
	}, nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	tick := w.debounce / 2
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != Ext {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
				w.mu.Lock()
				w.pending[KeyOf(event.Name)] = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("transcript watcher: %v", err)

		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) flush(now time.Time) {
	var ready []string
	w.mu.Lock()
	for key, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, key)
			delete(w.pending, key)
		}
	}
	w.mu.Unlock()

	for _, key := range ready {
		w.notify(key)
	}
}
