package bindgen

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ardanlabs/ffi-bindgen/errors"
	"github.com/ardanlabs/ffi-bindgen/logger"
)

// Watcher calls a regenerate function whenever a header changes on disk.
type Watcher struct {
	header     string
	watcher    *fsnotify.Watcher
	regenerate func() error

	mu             sync.Mutex
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
}

// NewWatcher watches the directory holding header, since editors often
// replace a file rather than write it in place.
func NewWatcher(header string, regenerate func() error) (*Watcher, error) {
	abs, err := filepath.Abs(header)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", header)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", filepath.Dir(abs))
	}

	return &Watcher{
		header:         abs,
		watcher:        watcher,
		regenerate:     regenerate,
		debouncePeriod: 500 * time.Millisecond,
	}, nil
}

// Run blocks until ctx is done, regenerating after every burst of changes
// to the header.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.header {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			logger.Infow("Header changed",
				"file", event.Name,
				"op", event.Op.String())
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("Watcher error", "error", err)
		}
	}
}

// schedule debounces rapid changes into a single regeneration.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.debouncePeriod, func() {
		if err := w.regenerate(); err != nil {
			logger.Errorw("Regeneration failed",
				"header", w.header,
				"error", err)
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()

	w.watcher.Close()
}
