package vault

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the vault for file changes and emits a coalesced signal
// after a quiet period, so a burst of edits produces one recompute instead
// of many.
type Watcher struct {
	fsw      *fsnotify.Watcher
	events   chan struct{}
	done     chan struct{}
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher starts watching root and all its non-hidden subdirectories.
func NewWatcher(root string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := addRecursive(fsw, root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		events:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		debounce: debounce,
		logger:   logger,
	}
	go w.loop()
	return w, nil
}

// Events signals once per settled burst of vault changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops watching. The events channel is closed afterwards.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer close(w.events)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				return
			}
			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}
			// New directories need their own watch.
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addRecursive(w.fsw, ev.Name); err != nil {
						w.logger.Debug("watch new directory failed", "path", ev.Name, "error", err)
					}
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			select {
			case w.events <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("watcher error", "error", err)
		}
	}
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
