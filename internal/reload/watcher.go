package reload

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses an editor's burst of writes into one reload.
const DefaultDebounce = 300 * time.Millisecond

var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

var watchedExts = map[string]bool{
	".go":   true,
	".js":   true,
	".html": true,
	".css":  true,
	".md":   true,
}

// Relevant reports whether a change to path should trigger a reload.
func Relevant(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if ignoredDirs[part] {
			return false
		}
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".db", ".log":
		return false
	case "":
		return true
	default:
		return watchedExts[ext]
	}
}

// Watcher publishes a reload event on the broker after files under its
// roots change.
type Watcher struct {
	fs       *fsnotify.Watcher
	broker   *Broker
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher watches every directory under roots. Roots that do not exist
// are skipped with a warning.
func NewWatcher(roots []string, broker *Broker, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("reload: create fsnotify watcher: %w", err)
	}
	w := &Watcher{fs: fw, broker: broker, logger: logger, debounce: DefaultDebounce}
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			logger.Warn("reload: skipping watch root", "root", root, "error", err)
			continue
		}
		if err := w.addTree(root); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// SetDebounce changes the quiet period before a reload is published.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if ignoredDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("reload: watch %s: %w", path, err)
		}
		return nil
	})
}

// Run processes filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		changed string
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !ignoredDirs[info.Name()] {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("reload: watch new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !Relevant(event.Name) {
				continue
			}
			w.logger.Debug("reload: file changed", "file", event.Name, "op", event.Op.String())
			changed = event.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			payload, _ := json.Marshal(map[string]string{"path": changed})
			w.logger.Info("reload: publishing reload", "file", changed)
			w.broker.Publish(EventReload, string(payload))
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("reload: fsnotify error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
