// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package seeding

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
)

// Watcher re-applies the seed file whenever it changes on disk.
//
// Registrations are upserts, so a reload rotates changed models in
// place and leaves API-registered models alone. A reload that fails to
// parse or apply is logged and dropped; the store keeps its current
// state until the file is fixed.
//
// Safe for concurrent use. Start should only be called once.
type Watcher struct {
	path    string
	store   *greenlist.KeyStore
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for the seed file at path.
func NewWatcher(path string, store *greenlist.KeyStore) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		path:    path,
		store:   store,
		watcher: watcher,
	}, nil
}

// Start begins watching for seed file changes. Blocks until the context
// is cancelled. Should be run in a goroutine.
//
// The watch is on the file's parent directory rather than the file
// itself: editors and configmap mounts replace the file by rename, which
// a file-level watch loses track of after the first swap.
func (w *Watcher) Start(ctx context.Context) {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		slog.Warn("Failed to watch seed file directory",
			"dir", dir,
			"error", err)
		return
	}

	slog.Debug("Started watching seed file",
		"path", w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Seed file watcher error",
				"error", err)

		case <-ctx.Done():
			slog.Debug("Seed file watcher stopping")
			return
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	// The directory watch reports siblings too.
	if filepath.Base(event.Name) != filepath.Base(w.path) {
		return
	}
	// Writes for in-place saves, creates for atomic renames.
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	applied, err := LoadAndApply(ctx, w.path, w.store)
	if err != nil {
		slog.Warn("Seed file changed but reload failed, keeping current models",
			"path", w.path,
			"applied", applied,
			"error", err)
		return
	}

	slog.Info("Seed file reloaded",
		"path", w.path,
		"models", applied)
}

// Stop stops the watcher. Safe to call multiple times.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
