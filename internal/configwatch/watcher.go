// Package configwatch implements the Config Watcher (C9): it tails
// config.json and apikey.json for changes and republishes the parsed
// result behind an atomic pointer, so request handlers always read a
// consistent snapshot without blocking on file I/O or a lock.
package configwatch

import (
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/kalehub/claude-relay/internal/auth"
	"github.com/kalehub/claude-relay/internal/config"
)

// debounce coalesces the burst of fsnotify events a single save often
// produces (e.g. write-then-chmod, or a temp-file-then-rename) into one
// reload.
const debounce = 100 * time.Millisecond

// Watcher watches the credential home directory for config.json and
// apikey.json changes.
type Watcher struct {
	fsw *fsnotify.Watcher
	dir string

	configState atomic.Pointer[config.ConfigFile]
	apiKeyState atomic.Pointer[config.APIKeyFile]

	mu          sync.Mutex
	subscribers []chan struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a Watcher rooted at the credential home directory, loads the
// current on-disk state, and starts the background watch loop.
func New() (*Watcher, error) {
	dir := auth.HomeDir()
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:    fsw,
		dir:    dir,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	w.reload()
	go w.run()
	return w, nil
}

// Config returns the most recently loaded config.json snapshot.
func (w *Watcher) Config() *config.ConfigFile {
	return w.configState.Load()
}

// APIKey returns the most recently loaded apikey.json snapshot, or nil if
// the file is absent.
func (w *Watcher) APIKey() *config.APIKeyFile {
	return w.apiKeyState.Load()
}

// Subscribe returns a channel that receives a value (non-blocking, best
// effort) every time a reload changes the published config or API key; a
// reload that parses to the same values sends nothing.
func (w *Watcher) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	w.mu.Lock()
	w.subscribers = append(w.subscribers, ch)
	w.mu.Unlock()
	return ch
}

// Stop halts the background watch loop and releases the fsnotify handle.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	<-w.doneCh
	w.fsw.Close()
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			base := filepath.Base(ev.Name)
			if base != "config.json" && base != "apikey.json" {
				continue
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				// Some editors replace a file via remove-then-create or a
				// temp-file rename, which drops fsnotify's watch on the
				// removed inode; re-attaching the directory watch, which
				// fsnotify treats as idempotent, keeps later events flowing.
				if err := w.fsw.Add(w.dir); err != nil {
					logrus.WithError(err).Warn("configwatch: re-attach failed")
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Warn("configwatch: fsnotify error")

		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// reload re-reads both files and only republishes to subscribers when the
// freshly parsed value actually differs from what's already published,
// so an fsnotify event that turns out to be a no-op write doesn't wake up
// every subscriber for nothing.
func (w *Watcher) reload() {
	changed := false

	if cf, err := config.ReadConfigFile(); err != nil {
		logrus.WithError(err).Warn("configwatch: failed to read config.json")
	} else if !reflect.DeepEqual(w.configState.Load(), cf) {
		w.configState.Store(cf)
		changed = true
	}

	if ak, err := config.ReadAPIKeyFile(); err != nil {
		logrus.WithError(err).Warn("configwatch: failed to read apikey.json")
	} else if !reflect.DeepEqual(w.apiKeyState.Load(), ak) {
		w.apiKeyState.Store(ak)
		changed = true
	}

	if changed {
		w.notify()
	}
}

func (w *Watcher) notify() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ch := range w.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
