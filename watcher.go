package qfind

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher bridges filesystem-change events into the index's update queue:
// creates become EnqueueAdd, removes and renames become EnqueueDel. Newly
// created directories are added to the watch set so files appearing under
// them are picked up too.
type Watcher struct {
	ix *Index
	fw *fsnotify.Watcher
	wg sync.WaitGroup
}

// NewWatcher starts watching the given directories on behalf of ix.
func NewWatcher(ix *Index, paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	for _, p := range paths {
		if err := fw.Add(p); err != nil {
			fw.Close()
			return nil, fmt.Errorf("%w: watching %s: %v", ErrIO, p, err)
		}
	}

	w := &Watcher{ix: ix, fw: fw}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.ix.log.Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Create):
		if fi, err := os.Lstat(ev.Name); err == nil && fi.IsDir() {
			if err := w.fw.Add(ev.Name); err != nil {
				w.ix.log.Warn().Err(err).Str("path", ev.Name).Msg("cannot watch new directory")
			}
			return
		}
		if err := w.ix.EnqueueAdd(ev.Name); err != nil {
			w.ix.log.Warn().Err(err).Str("path", ev.Name).Msg("enqueue add failed")
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		err := w.ix.EnqueueDel(ev.Name)
		if err != nil && !errors.Is(err, ErrNotFound) {
			w.ix.log.Warn().Err(err).Str("path", ev.Name).Msg("enqueue delete failed")
		}
	}
}

// Close stops the event loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	w.wg.Wait()
	return err
}
