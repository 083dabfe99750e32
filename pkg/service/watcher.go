package service

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 500 * time.Millisecond

// watcher observes the business configuration file and invokes onChange
// after edits settle. The parent directory is watched rather than the
// file itself because editors typically replace the file on save, which
// drops a direct watch.
type watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	onChange func()
	logger   *slog.Logger
	done     chan struct{}
}

func newWatcher(path string, logger *slog.Logger, onChange func()) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &watcher{
		fsw:      fsw,
		path:     abs,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go w.loop()
	logger.Info("watching configuration", "path", abs)
	return w, nil
}

func (w *watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("configuration change detected", "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
				fire = timer.C
			} else {
				timer.Reset(debounceDelay)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("configuration watch error", "error", err)
		case <-fire:
			timer = nil
			fire = nil
			w.onChange()
		case <-w.done:
			return
		}
	}
}

func (w *watcher) relevant(event fsnotify.Event) bool {
	if event.Name != w.path {
		return false
	}
	return event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename)
}

func (w *watcher) stop() {
	close(w.done)
	w.fsw.Close()
}
