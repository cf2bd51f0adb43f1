package settings

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay is how long a file has to stay unchanged before it is reloaded. Editors and
// os.WriteFile often produce several events for one save.
const reloadDelay = 50 * time.Millisecond

// Watcher reloads a settings file whenever it changes.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	log     *slog.Logger
	fn      func(Settings)

	closeCh chan struct{}
	once    sync.Once
	done    chan struct{}
}

// Watch calls fn with the new settings every time the file at path is saved with valid settings.
// Invalid files are logged and skipped. Watching stops when ctx is done or the watcher is closed.
// The directory of path is watched, so the file may be replaced instead of written to.
func Watch(ctx context.Context, path string, log *slog.Logger, fn func(Settings)) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}

	watcher := &Watcher{
		watcher: w,
		path:    path,
		log:     log.With("path", path),
		fn:      fn,
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.run(ctx)
	return watcher, nil
}

// Close stops watching and waits for a reload in progress to finish.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	<-w.done
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	var reload <-chan time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || filepath.Clean(event.Name) != w.path {
				continue
			}
			reload = time.After(reloadDelay)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("settings watcher error", "err", err)
		case <-reload:
			reload = nil
			s, err := Load(w.path)
			if err != nil {
				w.log.Warn("settings not reloaded", "err", err)
				continue
			}
			w.log.Info("settings reloaded")
			w.fn(s)
		case <-ctx.Done():
			return
		case <-w.closeCh:
			return
		}
	}
}
