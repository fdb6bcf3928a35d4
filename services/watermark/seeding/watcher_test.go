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
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
)

// newTestWatcher builds a watcher without starting its event loop so
// tests can drive handleEvent deterministically.
func newTestWatcher(t *testing.T, path string, store *greenlist.KeyStore) *Watcher {
	t.Helper()
	w, err := NewWatcher(path, store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	store, _ := newSeedStore(t)
	path := writeSeedFile(t, `
models:
  - model_id: hot-model
    secret: key-v1
`)
	w := newTestWatcher(t, path, store)

	w.handleEvent(context.Background(), fsnotify.Event{Name: path, Op: fsnotify.Write})

	cfg, err := store.Lookup("hot-model")
	require.NoError(t, err)
	assert.Equal(t, greenlist.DefaultGamma, cfg.Gamma())
}

func TestWatcher_ReloadsOnCreate(t *testing.T) {
	store, _ := newSeedStore(t)
	path := writeSeedFile(t, `
models:
  - model_id: renamed-in
    secret: key-v1
`)
	w := newTestWatcher(t, path, store)

	// Atomic editor saves surface as a create of the watched name.
	w.handleEvent(context.Background(), fsnotify.Event{Name: path, Op: fsnotify.Create})

	_, err := store.Lookup("renamed-in")
	require.NoError(t, err)
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	store, _ := newSeedStore(t)
	path := writeSeedFile(t, `
models:
  - model_id: hot-model
    secret: key-v1
`)
	w := newTestWatcher(t, path, store)

	sibling := filepath.Join(filepath.Dir(path), "unrelated.yaml")
	w.handleEvent(context.Background(), fsnotify.Event{Name: sibling, Op: fsnotify.Write})

	assert.Zero(t, store.Len())
}

func TestWatcher_IgnoresRemoveEvents(t *testing.T) {
	store, _ := newSeedStore(t)
	path := writeSeedFile(t, `
models:
  - model_id: hot-model
    secret: key-v1
`)
	w := newTestWatcher(t, path, store)

	w.handleEvent(context.Background(), fsnotify.Event{Name: path, Op: fsnotify.Remove})

	assert.Zero(t, store.Len())
}

func TestWatcher_KeepsStateOnBrokenReload(t *testing.T) {
	store, _ := newSeedStore(t)
	path := writeSeedFile(t, `
models:
  - model_id: hot-model
    secret: key-v1
`)
	w := newTestWatcher(t, path, store)

	w.handleEvent(context.Background(), fsnotify.Event{Name: path, Op: fsnotify.Write})
	require.Equal(t, 1, store.Len())

	require.NoError(t, os.WriteFile(path, []byte("models: [broken"), 0o600))
	w.handleEvent(context.Background(), fsnotify.Event{Name: path, Op: fsnotify.Write})

	// The earlier registration survives the failed reload.
	assert.Equal(t, 1, store.Len())
	_, err := store.Lookup("hot-model")
	assert.NoError(t, err)
}
