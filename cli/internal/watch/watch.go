// Package watch re-renders a query file whenever it is saved.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a burst of writes is coalesced
const DefaultDebounce = 300 * time.Millisecond

// Watcher calls back after a file changes
type Watcher struct {
	file     string
	callback func() error
	debounce time.Duration
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher creates a watcher for file. The directory is watched so editors
// that save by renaming a temporary file are noticed too.
func NewWatcher(file string, callback func() error) (*Watcher, error) {
	absPath, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &Watcher{
		file:     absPath,
		callback: callback,
		debounce: DefaultDebounce,
		watcher:  watcher,
		done:     make(chan struct{}),
	}, nil
}

// SetDebounce changes the debounce window; call it before Start
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start runs the callback once and then after every change
func (w *Watcher) Start() error {
	if err := w.callback(); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			timer.Reset(w.debounce)
			fire = timer.C

		case <-fire:
			fire = nil
			if err := w.callback(); err != nil {
				fmt.Fprintf(os.Stderr, "watch callback error: %v\n", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)

		case <-w.done:
			timer.Stop()
			return
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	path, err := filepath.Abs(event.Name)
	return err == nil && path == w.file
}

// Stop stops watching
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
