// Package watch reports changes to files of a sketch folder.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the bursts of events editors produce on save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches a directory and reports changes of the named files in it.
type Watcher struct {
	// Triggers on file change with the changed path
	Changed chan string

	Debounce time.Duration

	dir     string
	names   map[string]bool
	watcher *fsnotify.Watcher
}

// New creates a watcher of the files called names in dir. The directory itself is
// watched, so files that are created or replaced by rename are reported too.
func New(dir string, names ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	x := &Watcher{
		Changed:  make(chan string),
		Debounce: DefaultDebounce,
		dir:      dir,
		names:    make(map[string]bool, len(names)),
		watcher:  w,
	}
	for _, name := range names {
		x.names[name] = true
	}
	return x, nil
}

// Run delivers changes on Changed until ctx is done or the watcher fails.
// Changed is closed when Run returns.
func (x *Watcher) Run(ctx context.Context) error {
	defer close(x.Changed)
	defer x.watcher.Close()

	var (
		pending string
		timer   *time.Timer
		fire    <-chan time.Time
	)
	for {
		select {
		case event, ok := <-x.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod || !x.names[filepath.Base(event.Name)] {
				continue
			}
			pending = event.Name
			if timer == nil {
				timer = time.NewTimer(x.Debounce)
			} else {
				timer.Reset(x.Debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case x.Changed <- pending:
			case <-ctx.Done():
				return ctx.Err()
			}
		case err, ok := <-x.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
