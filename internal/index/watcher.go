package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/fehu/internal/checksum"
	"github.com/starford/fehu/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change. id is the
// chart id the path held (before a delete) or now holds; it is empty when the
// index could not say.
type EventCallback func(kind, path, id string)

const reconcileDelay = 200 * time.Millisecond

type watcher struct {
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
}

// Watch starts an fsnotify watcher on the vault root and keeps the index in
// step with chart file changes until ctx is cancelled. cb, if non-nil, runs
// after each successful index mutation.
//
// Directories created at runtime are watched too. Renames schedule a short
// reconciliation pass, since fsnotify only reports the old name.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, vaultRoot); err != nil {
		return err
	}

	w := &watcher{db: db, store: store, root: vaultRoot, logger: logger, cb: cb}
	logger.Info("watcher: started", slog.String("root", vaultRoot))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
			return
		}
		reconcileTimer.Reset(reconcileDelay)
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.handleDir(fw, ev) {
				continue
			}
			if w.handleFile(ev) {
				scheduleReconcile()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// handleDir starts watching a newly created directory and indexes any charts
// already inside it. It reports whether ev was a directory event.
func (w *watcher) handleDir(fw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if ev.Op&fsnotify.Create == 0 {
		return false
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.IsDir() {
		return false
	}
	if isHidden(filepath.Base(ev.Name)) {
		return true
	}
	if err := addDirsRecursive(fw, ev.Name); err != nil {
		w.logger.Warn("watcher: add new dir failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
	} else {
		w.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
	}
	_ = filepath.WalkDir(ev.Name, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsChartFile(p) {
			return nil
		}
		if rel, ok := w.rel(p); ok {
			if id, ok := w.index(rel); ok {
				w.notify(EventCreated, rel, id)
			}
		}
		return nil
	})
	return true
}

// handleFile applies a chart file event to the index. It reports whether a
// reconciliation pass is needed.
func (w *watcher) handleFile(ev fsnotify.Event) bool {
	if !storage.IsChartFile(ev.Name) || isHidden(filepath.Base(ev.Name)) {
		return false
	}
	rel, ok := w.rel(ev.Name)
	if !ok {
		return false
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		id, ok := w.index(rel)
		if !ok {
			return false
		}
		kind := EventUpdated
		if ev.Op&fsnotify.Create != 0 {
			kind = EventCreated
		}
		w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
		w.notify(kind, rel, id)

	case ev.Op&fsnotify.Remove != 0:
		if id, ok := w.remove(rel); ok {
			w.notify(EventDeleted, rel, id)
		}

	case ev.Op&fsnotify.Rename != 0:
		if id, ok := w.remove(rel); ok {
			w.notify(EventDeleted, rel, id)
		}
		return true
	}
	return false
}

// reconcile drops index entries whose files are gone and indexes files whose
// checksum differs from the index.
func (w *watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if id, ok := w.remove(p); ok {
			w.notify(EventDeleted, p, id)
		}
	}
	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		if id, ok := w.index(p); ok {
			w.notify(EventCreated, p, id)
		}
	}
}

// index re-indexes rel and returns the chart id it now holds. It reports
// false when nothing changed, which includes content the index already has:
// an atomic save by the service shows up here as a Create for bytes it
// indexed itself.
func (w *watcher) index(rel string) (string, bool) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return "", false
	}
	if cs, err := w.db.GetChecksum(rel); err == nil && cs == checksum.Sum(data) {
		w.logger.Debug("watcher: unchanged", slog.String("path", rel))
		return "", false
	}
	if err := IndexFile(w.db, rel, data, time.Now()); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return "", false
	}
	return w.idAt(rel), true
}

// remove drops rel from the index and returns the chart id it held.
func (w *watcher) remove(rel string) (string, bool) {
	id := w.idAt(rel)
	if err := w.db.DeleteChart(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return "", false
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel), slog.String("chart_id", id))
	return id, true
}

func (w *watcher) idAt(rel string) string {
	id, err := w.db.ChartIDAt(rel)
	if err != nil {
		w.logger.Warn("watcher: lookup failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
	return id
}

func (w *watcher) rel(abs string) (string, bool) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *watcher) notify(kind, rel, id string) {
	if w.cb != nil {
		w.cb(kind, rel, id)
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}
