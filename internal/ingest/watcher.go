package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/orgbridge/go-orgbridge/internal/svclog"
)

// FileEvent represents a detected change to a document file.
type FileEvent struct {
	Path      string // Absolute path to the changed file
	EventType string // "created" or "modified"
}

// Watcher monitors directories for new or modified document files.
type Watcher struct {
	dirs    []string
	watcher *fsnotify.Watcher
	done    chan struct{}
	mu      sync.Mutex
}

// NewWatcher creates a Watcher for the given directories.
func NewWatcher(dirs []string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		dirs:    dirs,
		watcher: fw,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching directories (recursively) and returns a channel of
// file events. The returned channel is closed when the context is canceled
// or Stop is called.
func (w *Watcher) Start(ctx context.Context) (<-chan FileEvent, error) {
	for _, dir := range w.dirs {
		w.addRecursive(dir)
	}

	events := make(chan FileEvent, 64)
	go w.watchLoop(ctx, events)
	return events, nil
}

// addRecursive walks a directory tree and adds all directories to the watcher.
func (w *Watcher) addRecursive(root string) {
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible dirs
		}
		if !d.IsDir() {
			return nil
		}
		// Skip hidden subdirectories (except the root itself)
		if path != root {
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
		}
		if err := w.watcher.Add(path); err != nil {
			svclog.Log.Warn("Failed to watch directory", "dir", path, "error", err)
		}
		return nil
	})
	svclog.Log.Info("Watching directory tree", "root", root)
}

// Stop stops the file watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context, events chan<- FileEvent) {
	defer close(events)

	// Debounce timers to avoid duplicate events on rapid writes
	timers := make(map[string]*time.Timer)
	const debounceDuration = 2 * time.Second

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// If a new directory was created, watch it recursively
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addRecursive(event.Name)
					continue
				}
			}

			if !hasDocSuffix(event.Name) {
				continue
			}

			// Handle creates and writes
			var eventType string
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create:
				eventType = "created"
			case event.Op&fsnotify.Write == fsnotify.Write:
				eventType = "modified"
			default:
				continue
			}

			// Debounce: reset timer for this file
			w.mu.Lock()
			if timer, ok := timers[event.Name]; ok {
				timer.Stop()
			}

			path := event.Name
			et := eventType
			timers[path] = time.AfterFunc(debounceDuration, func() {
				realPath, err := filepath.EvalSymlinks(path)
				if err != nil {
					realPath = path
				}

				select {
				case events <- FileEvent{Path: realPath, EventType: et}:
				case <-ctx.Done():
				case <-w.done:
				}
			})
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			svclog.Log.Error("Watcher error", "error", err)

		case <-w.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// WatchDir ingests root, then re-ingests document files as they change
// until ctx is canceled.
func (p *Pipeline) WatchDir(ctx context.Context, root string) error {
	files, chunks, err := p.IngestDir(ctx, root)
	if err != nil {
		return err
	}
	svclog.Log.Info("Initial ingest complete", "files", files, "chunks", chunks)

	watcher, err := NewWatcher([]string{root})
	if err != nil {
		return err
	}
	defer watcher.Stop()

	events, err := watcher.Start(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			n, err := p.IngestFile(ctx, ev.Path, map[string]any{"source": "local"})
			if err != nil {
				svclog.Log.Error("Re-ingest failed", "file", ev.Path, "error", err)
				continue
			}
			svclog.Log.Info("Re-ingested document", "file", ev.Path, "chunks", n, "event", ev.EventType)
		case <-ctx.Done():
			return nil
		}
	}
}
