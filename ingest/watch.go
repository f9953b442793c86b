package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
)

// DefaultSettleDelay is how long a file must stay unmodified before it is ingested.
const DefaultSettleDelay = 2 * time.Second

// WithSettleDelay overrides DefaultSettleDelay for Watch.
func WithSettleDelay(d time.Duration) Option {
	return func(x *Ingester) {
		x.settle = d
	}
}

// Watch runs a full pass over root, then ingests files as they are created or modified until
// ctx is cancelled. New subdirectories are watched as they appear.
func (x *Ingester) Watch(ctx context.Context, root string) error {
	logger := pandora.LoggerFromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return goerr.Wrap(err, "failed to create watcher")
	}
	defer watcher.Close()

	pending := map[string]time.Time{}
	if err := watchTree(watcher, root, nil); err != nil {
		return err
	}

	if _, err := x.Run(ctx, root); err != nil {
		return err
	}

	settle := x.settle
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	tick := time.NewTicker(max(settle/2, 5*time.Millisecond))
	defer tick.Stop()

	logger.Info("watching filing tree", "root", root)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}

			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				if err := watchTree(watcher, ev.Name, pending); err != nil {
					logger.Warn("failed to watch directory", "path", ev.Name, "error", err)
				}
				continue
			}
			if isSupported(ev.Name) {
				pending[ev.Name] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)

		case now := <-tick.C:
			for path, at := range pending {
				if now.Sub(at) < settle {
					continue
				}
				delete(pending, path)
				if _, err := x.IngestFile(ctx, root, path); err != nil {
					logger.Warn("failed to ingest file", "path", path, "error", err)
				}
			}
		}
	}
}

// watchTree adds dir and its subdirectories to watcher. Files already present are queued in
// pending when it is not nil, which covers files written before the directory was watched.
func watchTree(watcher *fsnotify.Watcher, dir string, pending map[string]time.Time) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return goerr.Wrap(err, "failed to watch directory", goerr.V("path", path))
			}
			return nil
		}
		if pending != nil && isSupported(path) {
			pending[path] = time.Now()
		}
		return nil
	})
}

func isSupported(path string) bool {
	return supportedExts[strings.ToLower(filepath.Ext(path))]
}
