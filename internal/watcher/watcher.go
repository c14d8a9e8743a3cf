// Package watcher monitors an inbox directory for image files to recognize.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event represents an image file that has finished arriving.
type Event struct {
	Path      string
	Size      int64
	Timestamp time.Time
}

// fileState tracks when a file was last seen changing and how large it was.
type fileState struct {
	seenAt time.Time
	size   int64
}

// Watcher monitors one directory and emits an Event per file once its
// contents have settled. Files dropped into a watched inbox are typically
// still being copied when the first notification fires, so a file is emitted
// only after its size has stopped changing for the debounce interval.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	dir        string
	extensions []string
	debounce   time.Duration

	state   map[string]fileState
	stateMu sync.RWMutex

	events chan Event
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher for dir. Only files whose extension matches one of
// extensions (case-insensitive, with or without the leading dot) are
// reported. Files settle after debounce without changes.
func New(dir string, extensions []string, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}

	w := &Watcher{
		fsWatcher:  fsWatcher,
		dir:        dir,
		extensions: normalized,
		debounce:   debounce,
		state:      make(map[string]fileState),
		events:     make(chan Event, 100),
		errors:     make(chan error, 10),
		done:       make(chan struct{}),
	}

	return w, nil
}

// Events returns the channel of settled files.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start begins watching. Image files already present in the directory are
// tracked too and emitted once the debounce interval passes.
func (w *Watcher) Start() error {
	absDir, err := filepath.Abs(w.dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path %s is not a directory", absDir)
	}
	w.dir = absDir

	if err := w.fsWatcher.Add(absDir); err != nil {
		return err
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.trackFile(filepath.Join(absDir, entry.Name()))
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.settleLoop()

	return nil
}

// Stop shuts the watcher down and closes its channels. Call it once.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsWatcher.Close()
}

// TrackedFiles returns the number of files currently waiting to settle.
func (w *Watcher) TrackedFiles() int {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return len(w.state)
}

// wantsFile reports whether the path carries one of the watched extensions.
func (w *Watcher) wantsFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range w.extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// trackFile records the file's current size and arms its debounce timer.
func (w *Watcher) trackFile(path string) {
	if !w.wantsFile(path) {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	w.stateMu.Lock()
	w.state[path] = fileState{seenAt: time.Now(), size: info.Size()}
	w.stateMu.Unlock()
}

// eventLoop handles fsnotify events.
func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.trackFile(event.Name)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// settleLoop periodically promotes quiet files to events.
func (w *Watcher) settleLoop() {
	defer w.wg.Done()

	tick := w.debounce / 4
	if tick < 25*time.Millisecond {
		tick = 25 * time.Millisecond
	}
	if tick > time.Second {
		tick = time.Second
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case now := <-ticker.C:
			w.checkSettled(now)
		}
	}
}

// checkSettled emits files whose debounce interval has passed and whose size
// has not moved since they were last tracked. Stat calls happen without the
// state lock so the event loop is never blocked on file I/O.
func (w *Watcher) checkSettled(now time.Time) {
	threshold := now.Add(-w.debounce)

	type candidate struct {
		path    string
		tracked fileState
	}
	var candidates []candidate
	w.stateMu.RLock()
	for path, st := range w.state {
		if st.seenAt.Before(threshold) {
			candidates = append(candidates, candidate{path: path, tracked: st})
		}
	}
	w.stateMu.RUnlock()

	if len(candidates) == 0 {
		return
	}

	type statResult struct {
		candidate
		size int64
		err  error
	}
	results := make([]statResult, 0, len(candidates))
	for _, c := range candidates {
		info, err := os.Stat(c.path)
		r := statResult{candidate: c, err: err}
		if err == nil {
			r.size = info.Size()
		}
		results = append(results, r)
	}

	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	for _, r := range results {
		current, exists := w.state[r.path]
		if !exists || current != r.tracked {
			// Re-tracked while we were statting; let it settle again.
			continue
		}

		if r.err != nil {
			// The file vanished before it settled.
			delete(w.state, r.path)
			if !os.IsNotExist(r.err) {
				select {
				case w.errors <- r.err:
				default:
				}
			}
			continue
		}

		if r.size != r.tracked.size {
			// Still growing without write notifications; re-arm.
			w.state[r.path] = fileState{seenAt: now, size: r.size}
			continue
		}

		select {
		case w.events <- Event{Path: r.path, Size: r.size, Timestamp: now}:
			// Forget the file so only a new modification re-reports it.
			delete(w.state, r.path)
		default:
			// Event channel full, try again next tick.
		}
	}
}
