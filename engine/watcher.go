package engine

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/ember/engine/core"
)

// ConfigWatcher reloads the configuration file whenever it changes on disk
// and publishes the result on Updates.
type ConfigWatcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	updates  chan *ApplicationConfig
}

func NewConfigWatcher(path string) (*ConfigWatcher, error) {
	if path == "" {
		return nil, errors.New("no config file to watch")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors often replace the file instead of writing it, so watch the
	// directory and filter by name.
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", filepath.Dir(abs))
	}
	return &ConfigWatcher{
		path:     abs,
		fsnotify: fsWatch,
		updates:  make(chan *ApplicationConfig, 1),
	}, nil
}

func (cw *ConfigWatcher) Updates() <-chan *ApplicationConfig {
	return cw.updates
}

// Run blocks until ctx is done. A file that fails to load is logged and
// skipped. Updates is closed when Run returns.
func (cw *ConfigWatcher) Run(ctx context.Context) error {
	defer close(cw.updates)
	defer cw.fsnotify.Close()

	for {
		select {
		case e, ok := <-cw.fsnotify.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != cw.path {
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			cfg, err := LoadApplicationConfig(cw.path)
			if err != nil {
				core.LogError("Config reload failed: %s", err)
				continue
			}
			cw.publish(ctx, cfg)

		case err, ok := <-cw.fsnotify.Errors:
			if !ok {
				return nil
			}
			core.LogError(err.Error())

		case <-ctx.Done():
			return nil
		}
	}
}

// publish keeps only the newest config when the loop has not caught up.
func (cw *ConfigWatcher) publish(ctx context.Context, cfg *ApplicationConfig) {
	select {
	case <-cw.updates:
	default:
	}
	select {
	case cw.updates <- cfg:
	case <-ctx.Done():
	}
}
