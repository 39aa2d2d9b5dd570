package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	domaincfg "trackd-backend/domain/config"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LimitsWatcher watches a YAML limits file and reloads it on change, so the
// domain's collection caps can be tuned without a restart. A reload that fails
// validation keeps the current limits.
type LimitsWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	current  LimitsConfig
	onChange []func(LimitsConfig)
}

// NewLimitsWatcher loads the limits file and starts tracking it
func NewLimitsWatcher(path string, logger *zap.Logger) (*LimitsWatcher, error) {
	limits, err := loadLimitsFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial limits: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch limits file: %w", err)
	}
	// Editors and deploy tools often replace the file atomically, which
	// surfaces as a rename in the parent directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Warn("failed to watch limits directory", zap.Error(err))
	}

	return &LimitsWatcher{
		path:    path,
		watcher: watcher,
		logger:  logger,
		stopCh:  make(chan struct{}),
		current: limits,
	}, nil
}

// Start begins watching for changes
func (w *LimitsWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("limits watcher started", zap.String("path", w.path))
}

// Stop stops watching
func (w *LimitsWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
	})
}

// Current returns the limits as of the last successful reload
func (w *LimitsWatcher) Current() LimitsConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// DomainConfig returns the current limits as a domain config
func (w *LimitsWatcher) DomainConfig() *domaincfg.DomainConfig {
	limits := w.Current()
	return (&Config{Limits: limits}).DomainConfig()
}

// OnChange registers a callback invoked after each successful reload
func (w *LimitsWatcher) OnChange(handler func(LimitsConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

func (w *LimitsWatcher) watchLoop() {
	var debounce *time.Timer

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(100*time.Millisecond, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("limits watcher error", zap.Error(err))
		}
	}
}

func (w *LimitsWatcher) reload() {
	limits, err := loadLimitsFromFile(w.path)
	if err != nil {
		w.logger.Error("failed to reload limits, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = limits
	handlers := make([]func(LimitsConfig), len(w.onChange))
	copy(handlers, w.onChange)
	w.mu.Unlock()

	if old != limits {
		w.logger.Info("limits reloaded",
			zap.Int("max_comments_per_issue", limits.MaxCommentsPerIssue),
			zap.Int("max_labels_per_issue", limits.MaxLabelsPerIssue),
		)
	}
	for _, handler := range handlers {
		go handler(limits)
	}
}

func loadLimitsFromFile(path string) (LimitsConfig, error) {
	defaults := domaincfg.DefaultDomainConfig()
	limits := LimitsConfig{
		MaxCommentsPerIssue:     defaults.MaxCommentsPerIssue,
		MaxLabelsPerIssue:       defaults.MaxLabelsPerIssue,
		MaxTitleLength:          defaults.MaxTitleLength,
		MaxBodyLength:           defaults.MaxBodyLength,
		MaxCommentLength:        defaults.MaxCommentLength,
		MaxMilestoneTitleLength: defaults.MaxMilestoneTitleLength,
		RequireCloseReason:      defaults.RequireCloseReason,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return LimitsConfig{}, fmt.Errorf("failed to read limits file: %w", err)
	}
	if err := yaml.Unmarshal(data, &limits); err != nil {
		return LimitsConfig{}, fmt.Errorf("failed to parse limits file: %w", err)
	}

	if limits.MaxTitleLength <= 0 || limits.MaxBodyLength <= 0 || limits.MaxCommentLength <= 0 {
		return LimitsConfig{}, fmt.Errorf("field length limits must be positive")
	}
	if limits.MaxCommentsPerIssue < 0 || limits.MaxLabelsPerIssue < 0 {
		return LimitsConfig{}, fmt.Errorf("collection caps cannot be negative")
	}
	return limits, nil
}
