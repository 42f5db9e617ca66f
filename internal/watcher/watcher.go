// Package watcher reports filesystem changes under the catalog roots so that a
// long-lived interactive session notices projects appearing or disappearing.
package watcher

import (
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// EventType represents the kind of filesystem event.
type EventType int

const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
	EventRename
	EventChmod
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "CREATE"
	case EventWrite:
		return "WRITE"
	case EventRemove:
		return "REMOVE"
	case EventRename:
		return "RENAME"
	case EventChmod:
		return "CHMOD"
	default:
		return "UNKNOWN"
	}
}

// Event represents a single filesystem change.
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// Watcher watches directories down to a fixed depth and broadcasts events to
// all subscribers.
type Watcher struct {
	mu          sync.RWMutex
	fsw         *fsnotify.Watcher
	subscribers []func(Event)
	roots       map[string]int
	maxDepth    int
	ignore      []string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	logger      *zap.Logger
	stopCh      chan struct{}
	running     bool
}

// New creates a watcher that descends at most maxDepth directories below each
// root and skips directories whose base name matches an ignore pattern.
func New(maxDepth int, ignore []string, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		fsw:         w,
		roots:       make(map[string]int),
		maxDepth:    maxDepth,
		ignore:      ignore,
		debounceMap: make(map[string]time.Time),
		debounceDur: 50 * time.Millisecond,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}, nil
}

// Subscribe adds an event listener. Listeners run on the event loop goroutine
// and must not block.
func (w *Watcher) Subscribe(f func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribers = append(w.subscribers, f)
}

// AddRoot adds a directory to watch.
func (w *Watcher) AddRoot(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.roots[absPath] = strings.Count(absPath, string(filepath.Separator))
	w.mu.Unlock()

	return w.addTree(absPath, w.maxDepth)
}

func (w *Watcher) addTree(root string, depth int) error {
	rootDepth := strings.Count(root, string(filepath.Separator))
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Debug("watch add failed", zap.String("path", path), zap.Error(err))
		}
		if strings.Count(path, string(filepath.Separator))-rootDepth >= depth {
			return filepath.SkipDir
		}
		return nil
	})
}

func (w *Watcher) ignored(base string) bool {
	for _, pattern := range w.ignore {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// remainingDepth returns how many more levels may be watched below path.
func (w *Watcher) remainingDepth(path string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	d := strings.Count(path, string(filepath.Separator))
	best := -1
	for root, rootDepth := range w.roots {
		if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
			continue
		}
		if left := w.maxDepth - (d - rootDepth); left > best {
			best = left
		}
	}
	return best
}

// Start begins the event loop. Non-blocking.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.eventLoop()
}

// Stop halts the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		_ = w.fsw.Close()
		return
	}

	close(w.stopCh)
	_ = w.fsw.Close()
	w.running = false
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(raw fsnotify.Event) {
	// Debounce rapid events on the same path
	w.mu.Lock()
	if lastTime, ok := w.debounceMap[raw.Name]; ok && time.Since(lastTime) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	w.debounceMap[raw.Name] = time.Now()
	w.mu.Unlock()

	evt := Event{
		Path:      raw.Name,
		Timestamp: time.Now(),
	}

	switch {
	case raw.Op&fsnotify.Create != 0:
		evt.Type = EventCreate
		// New directories inside the watched depth are watched too.
		if left := w.remainingDepth(raw.Name); left >= 0 && !w.ignored(filepath.Base(raw.Name)) {
			_ = w.addTree(raw.Name, left)
		}
	case raw.Op&fsnotify.Write != 0:
		evt.Type = EventWrite
	case raw.Op&fsnotify.Remove != 0:
		evt.Type = EventRemove
	case raw.Op&fsnotify.Rename != 0:
		evt.Type = EventRename
	case raw.Op&fsnotify.Chmod != 0:
		evt.Type = EventChmod
	default:
		return
	}

	w.mu.RLock()
	subs := make([]func(Event), len(w.subscribers))
	copy(subs, w.subscribers)
	w.mu.RUnlock()

	for _, sub := range subs {
		sub(evt)
	}
}
