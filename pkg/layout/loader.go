package layout

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/polisai/conduit/pkg/network"
)

// Loader handles loading and watching a layout file.
type Loader struct {
	path      string
	catalog   *network.Catalog
	logger    *slog.Logger
	watcher   *fsnotify.Watcher
	current   *Document
	mu        sync.RWMutex
	onChange  func(*Document)
	close     chan struct{}
	closeOnce sync.Once
}

// NewLoader creates a Loader validating documents against catalog.
func NewLoader(path string, catalog *network.Catalog, logger *slog.Logger) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Loader{
		path:    absPath,
		catalog: catalog,
		logger:  logger.With("component", "layout_loader", "path", absPath),
		close:   make(chan struct{}),
	}, nil
}

// Path returns the absolute layout path.
func (l *Loader) Path() string { return l.path }

// Load reads the file, expands environment variables, parses and validates it.
// The current layout is replaced only on success.
func (l *Loader) Load() (*Document, error) {
	//nolint:gosec // Layout path is controlled by the operator
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}

	doc, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(l.catalog); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.current = doc
	l.mu.Unlock()

	return doc, nil
}

// Watch starts monitoring the layout file. onChange receives every document
// that loads cleanly; failed reloads are logged and the previous layout kept.
func (l *Loader) Watch(onChange func(*Document)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	l.watcher = watcher
	l.onChange = onChange

	// Editors often save by rename, so watch the directory rather than the file.
	if err := l.watcher.Add(filepath.Dir(l.path)); err != nil {
		_ = l.watcher.Close()
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	go l.watchLoop()
	return nil
}

func (l *Loader) watchLoop() {
	for {
		select {
		case <-l.close:
			return
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != l.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			doc, err := l.Load()
			if err != nil {
				l.logger.Error("layout reload failed, keeping previous layout", "error", err)
				continue
			}
			l.logger.Info("layout reloaded", "segments", len(doc.Segments))
			if l.onChange != nil {
				l.onChange(doc)
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("layout watcher error", "error", err)
		}
	}
}

// Current returns the last layout that loaded cleanly.
func (l *Loader) Current() *Document {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Close stops the watcher.
func (l *Loader) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.close)
		if l.watcher != nil {
			err = l.watcher.Close()
		}
	})
	return err
}
