// Package watch re-runs a check over grammar and document files when they
// change on disk, for live validation during a recording session.
package watch

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Config describes what to watch and what to do on a change.
type Config struct {
	// Paths are the files to watch. Their parent directories are watched
	// so that editors that replace files on save are still seen.
	Paths []string

	// OnChange is called with the changed path after each write or create.
	OnChange func(path string) error

	Logger *zap.Logger
}

// Watch blocks, invoking cfg.OnChange every time a watched file is written
// or created, until the context is cancelled. OnChange errors are logged
// and watching continues, so a transiently invalid file can be corrected
// without restarting.
func Watch(ctx context.Context, cfg Config) error {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	watched := make(map[string]bool, len(cfg.Paths))
	dirs := make(map[string]bool)
	for _, p := range cfg.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return err
		}
		log.Debug("watching directory", zap.String("dir", dir))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			log.Info("file changed", zap.String("path", event.Name))
			if err := cfg.OnChange(abs); err != nil {
				log.Warn("check failed", zap.String("path", event.Name), zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", zap.Error(err))
		}
	}
}
