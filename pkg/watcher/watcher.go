// Package watcher turns filesystem notifications for the active directory
// into coalesced sweep requests.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// State is the lifecycle state of a Watcher
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// 📦 Batch is a request to re-scan the watched directory
type Batch struct {
	Dir    string    // directory being watched when the batch was cut
	Paths  []string  // paths that changed, in arrival order
	Opened time.Time // when the first event of the batch arrived
}

// 👀 Watcher watches one directory tree recursively. It never acts on events
// itself; it hands batches to whoever reads Batches.
type Watcher struct {
	mu      sync.Mutex
	state   State
	dir     string
	fs      *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	pending *Batch

	batches chan Batch
	notify  chan struct{}
	logger  zerolog.Logger
}

// 🏭 New creates a stopped watcher
func New(ctx context.Context) *Watcher {
	return &Watcher{
		batches: make(chan Batch),
		notify:  make(chan struct{}, 1),
		logger:  zerolog.Ctx(ctx).With().Str("component", "watcher").Logger(),
	}
}

// Batches delivers coalesced change batches. Events that arrive while a
// batch is waiting to be read are merged into it.
func (w *Watcher) Batches() <-chan Batch {
	return w.batches
}

// State reports whether the watcher is running
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Dir returns the directory currently watched, empty when stopped
func (w *Watcher) Dir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}

// ▶️ Start binds the watcher to dir and everything below it
func (w *Watcher) Start(ctx context.Context, dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == Running {
		return errors.Errorf("watcher already running on %s", w.dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := addTree(fsw, dir); err != nil {
		fsw.Close()
		return errors.Errorf("watching %s: %w", dir, err)
	}

	w.fs = fsw
	w.dir = dir
	w.state = Running
	w.done = make(chan struct{})
	w.pending = nil

	w.wg.Add(2)
	go w.processEvents(fsw, w.done)
	go w.deliver(w.done)

	w.logger.Debug().Str("dir", dir).Msg("watcher started")
	return nil
}

// ⏹️ Stop releases every watch. Stopping a stopped watcher is a no-op.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.state == Stopped {
		w.mu.Unlock()
		return nil
	}
	close(w.done)
	fsw := w.fs
	w.fs = nil
	w.state = Stopped
	w.dir = ""
	w.pending = nil
	w.mu.Unlock()

	err := fsw.Close()
	w.wg.Wait()
	if err != nil {
		return errors.Errorf("closing fsnotify watcher: %w", err)
	}
	w.logger.Debug().Msg("watcher stopped")
	return nil
}

// 🔁 Rebind stops observing the old directory and starts observing dir
func (w *Watcher) Rebind(ctx context.Context, dir string) error {
	if err := w.Stop(); err != nil {
		return err
	}
	return w.Start(ctx, dir)
}

// processEvents reads fsnotify until done, queueing qualifying events
func (w *Watcher) processEvents(fsw *fsnotify.Watcher, done chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			// errors are reported but never stop the watcher
			w.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

// handle filters one event. Only create and write on non-directories count;
// new directories are added to the watch so the tree stays covered.
func (w *Watcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// gone already, nothing to route
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := addTree(fsw, event.Name); err != nil {
				w.logger.Warn().Err(err).Str("dir", event.Name).Msg("watching new directory")
			}
		}
		return
	}

	w.mu.Lock()
	if w.pending == nil {
		w.pending = &Batch{Dir: w.dir, Opened: time.Now()}
	}
	w.pending.Paths = append(w.pending.Paths, event.Name)
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// deliver hands the pending batch to the reader, one at a time
func (w *Watcher) deliver(done chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-done:
			return
		case <-w.notify:
		}

		w.mu.Lock()
		batch := w.pending
		w.pending = nil
		w.mu.Unlock()
		if batch == nil {
			continue
		}

		select {
		case <-done:
			return
		case w.batches <- *batch:
		}
	}
}

// addTree adds dir and all of its subdirectories
func addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			// unreadable subtrees are skipped
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			if path == dir {
				return err
			}
			return filepath.SkipDir
		}
		return nil
	})
}
