package catalog

import (
	"context"
	"log/slog"
	"time"
)

// Reloader periodically re-reads the catalog directory so edited block files
// are picked up without a restart
type Reloader struct {
	loader   *Loader
	dir      string
	interval time.Duration
}

// NewReloader creates a new catalog reload worker
func NewReloader(loader *Loader, dir string, interval time.Duration) *Reloader {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Reloader{
		loader:   loader,
		dir:      dir,
		interval: interval,
	}
}

// Start begins the reload worker in a goroutine
func (r *Reloader) Start(ctx context.Context) {
	go r.run(ctx)
}

// run is the main loop for the reload worker
func (r *Reloader) run(ctx context.Context) {
	slog.Info("catalog reloader started", "dir", r.dir, "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("catalog reloader stopped")
			return
		case <-ticker.C:
			r.Reload()
		}
	}
}

// Reload loads the directory into a fresh catalog and swaps it in.
// An unreadable directory or an empty result keeps the current catalog.
func (r *Reloader) Reload() bool {
	fresh := NewLoader()
	if err := fresh.LoadFromDir(r.dir); err != nil {
		slog.Error("failed to reload catalog", "dir", r.dir, "error", err)
		return false
	}

	blocks := fresh.Blocks()
	if len(blocks) == 0 {
		slog.Warn("reloaded catalog is empty, keeping current blocks", "dir", r.dir)
		return false
	}

	r.loader.Replace(blocks)
	slog.Info("catalog reloaded", "blocks", len(blocks))
	return true
}
