package businessday

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Calendar whenever its backing file is written.
type Watcher struct {
	cal      *Calendar
	path     string
	watcher  *fsnotify.Watcher
	onReload func(holidays int, err error)
}

// NewWatcher watches the directory holding path so that editors replacing
// the file by rename are noticed too. onReload may be nil.
func NewWatcher(path string, cal *Calendar, onReload func(holidays int, err error)) (*Watcher, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("new watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{cal: cal, path: abs, watcher: w, onReload: onReload}, nil
}

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if eventFileRemove(event) {
				log.Printf("[businessday] %s removed, keeping %d holidays", w.path, w.cal.Len())
				continue
			}
			if eventFileChange(event) {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[businessday] watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	err := w.cal.LoadFile(w.path)
	if err != nil {
		log.Printf("[businessday] reload failed: %v", err)
	} else {
		log.Printf("[businessday] reloaded %s: %d holidays", w.path, w.cal.Len())
	}
	if w.onReload != nil {
		w.onReload(w.cal.Len(), err)
	}
}

func eventFileRemove(event fsnotify.Event) bool {
	return event.Op&fsnotify.Remove == fsnotify.Remove
}

func eventFileChange(event fsnotify.Event) bool {
	return event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create
}
