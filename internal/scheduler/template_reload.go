package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/landing/internal/logger"
	"github.com/MrSnakeDoc/landing/internal/metrics"
	"github.com/MrSnakeDoc/landing/internal/templates"
)

// PageFlusher drops every rendered page, since pages embed template labels.
type PageFlusher interface {
	FlushPages(ctx context.Context) (int, error)
}

// TemplateReloader keeps the template registry in sync with its YAML file
type TemplateReloader struct {
	loader        *templates.Loader // nil => built-in defaults only
	registry      *templates.Registry
	flusher       PageFlusher // optional
	metrics       *metrics.Metrics
	logger        logger.Logger
	interval      time.Duration
	watch         bool
	stopCh        chan struct{}
	manualTrigger chan struct{}
	fileChanged   chan struct{}
}

// NewTemplateReloader creates a new template reloader. An empty
// templatesFile keeps the built-in defaults and only answers triggers.
func NewTemplateReloader(
	templatesFile string,
	registry *templates.Registry,
	flusher PageFlusher,
	m *metrics.Metrics,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *TemplateReloader {
	var loader *templates.Loader
	if templatesFile != "" {
		loader = templates.NewLoader(templatesFile)
	}
	if interval <= 0 {
		interval = time.Hour
	}

	return &TemplateReloader{
		loader:        loader,
		registry:      registry,
		flusher:       flusher,
		metrics:       m,
		logger:        log,
		interval:      interval,
		watch:         loader != nil,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
		fileChanged:   make(chan struct{}, 1),
	}
}

// Start loads the file once, then reloads on interval, on manual trigger
// and whenever the file changes on disk.
func (tr *TemplateReloader) Start(ctx context.Context) error {
	// Load immediately on start
	if err := tr.Reload(ctx); err != nil {
		return fmt.Errorf("initial reload failed: %w", err)
	}

	var watcher *fsnotify.Watcher
	if tr.watch {
		w, err := tr.startWatcher()
		if err != nil {
			tr.logger.Warn("file watch unavailable, relying on periodic reload",
				logger.String("file", tr.loader.Path()),
				logger.Error(err))
		} else {
			watcher = w
		}
	}

	ticker := time.NewTicker(tr.interval)
	go func() {
		defer ticker.Stop()
		if watcher != nil {
			defer func() { _ = watcher.Close() }()
		}
		for {
			select {
			case <-ticker.C:
				tr.reloadLogged(ctx, "periodic")
			case <-tr.manualTrigger:
				tr.logger.Info("manual reload triggered")
				tr.reloadLogged(ctx, "manual")
			case <-tr.fileChanged:
				tr.logger.Info("templates file changed")
				tr.reloadLogged(ctx, "watch")
			case <-tr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (tr *TemplateReloader) Stop() {
	close(tr.stopCh)
}

// Reload reads the file and swaps the registry. On error the previous
// registry stays in place.
func (tr *TemplateReloader) Reload(ctx context.Context) error {
	if tr.loader == nil {
		tr.logger.Debug("no templates file configured, keeping built-in templates",
			logger.Int("count", tr.registry.Count()))
		return nil
	}

	list, err := tr.loader.Load()
	if err != nil {
		tr.metrics.Reload("error")
		return fmt.Errorf("failed to load templates: %w", err)
	}

	changed := !reflect.DeepEqual(list, tr.registry.All())
	tr.registry.Replace(list)
	tr.metrics.Reload("ok")

	tr.logger.Info("templates reloaded",
		logger.String("file", tr.loader.Path()),
		logger.Int("count", len(list)),
		logger.Bool("changed", changed))

	if changed && tr.flusher != nil {
		n, err := tr.flusher.FlushPages(ctx)
		if err != nil {
			// pages expire with the cache TTL anyway
			tr.logger.Warn("failed to flush rendered pages after template change",
				logger.Error(err))
		} else {
			tr.logger.Info("rendered pages flushed", logger.Int("count", n))
		}
	}
	return nil
}

func (tr *TemplateReloader) reloadLogged(ctx context.Context, reason string) {
	if err := tr.Reload(ctx); err != nil {
		tr.logger.Error("failed to reload templates, keeping previous set",
			logger.String("reason", reason),
			logger.Error(err))
	}
}

// startWatcher watches the parent directory: editors and config-map
// updates replace the file rather than writing it in place.
func (tr *TemplateReloader) startWatcher() (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	target := filepath.Clean(tr.loader.Path())
	if err := w.Add(filepath.Dir(target)); err != nil {
		_ = w.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				select {
				case tr.fileChanged <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				tr.logger.Warn("templates watcher error", logger.Error(err))
			}
		}
	}()

	return w, nil
}
