package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events editors emit for one save.
const reloadDelay = 200 * time.Millisecond

// ReloadCallback is called after a new snapshot has been installed.
type ReloadCallback func(c *Catalog)

// Watch observes the catalogue file at path and installs a fresh snapshot into
// src whenever its content changes, until ctx is cancelled. A file that fails to
// parse or validate leaves the previous snapshot in place.
//
// The parent directory is watched rather than the file itself so atomic
// rename-over saves keep being observed.
func Watch(ctx context.Context, path string, src *Source, logger *slog.Logger, cb ReloadCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("catalog watcher: started", slog.String("path", abs))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDelay)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(reloadDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("catalog watcher: stopped")
			return nil

		case <-reloadCh:
			reload(abs, src, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("catalog watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reload(path string, src *Source, logger *slog.Logger, cb ReloadCallback) {
	next, err := Load(path)
	if err != nil {
		logger.Warn("catalog watcher: reload failed, keeping previous catalogue",
			slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if prev := src.Current(); prev != nil && prev.Checksum() == next.Checksum() {
		logger.Debug("catalog watcher: content unchanged", slog.String("path", path))
		return
	}
	src.Replace(next)
	logger.Info("catalog watcher: reloaded",
		slog.String("path", path), slog.Int("records", next.Len()))
	if cb != nil {
		cb(next)
	}
}
