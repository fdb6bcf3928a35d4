// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path")
}

func TestJournal_RoundTrip(t *testing.T) {
	j := openTestJournal(t)

	registered := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	rec := greenlist.Record{
		ModelID:      "llama-7b",
		Vocabulary:   []string{"the", "cat"},
		Secret:       []byte("key-material"),
		Gamma:        0.25,
		Delta:        4.0,
		RegisteredAt: registered,
	}
	require.NoError(t, j.RecordRegistration(context.Background(), rec))

	store := greenlist.NewKeyStore()
	defer store.Close()

	restored, err := j.Replay(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	cfg, err := store.Lookup("llama-7b")
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Gamma())
	assert.Equal(t, 4.0, cfg.Delta())
	assert.Equal(t, 2, cfg.VocabularySize())
	assert.True(t, cfg.RegisteredAt().Equal(registered))
}

func TestJournal_ReplayRestoresLatestRegistration(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	require.NoError(t, j.RecordRegistration(ctx, greenlist.Record{
		ModelID: "llama-7b",
		Secret:  []byte("key-v1"),
		Gamma:   0.5,
		Delta:   2.0,
	}))
	require.NoError(t, j.RecordRegistration(ctx, greenlist.Record{
		ModelID: "llama-7b",
		Secret:  []byte("key-v2"),
		Gamma:   0.3,
		Delta:   1.0,
	}))

	store := greenlist.NewKeyStore()
	defer store.Close()

	restored, err := j.Replay(ctx, store)
	require.NoError(t, err)
	// One key per model: the rotation overwrote the original record.
	assert.Equal(t, 1, restored)

	cfg, err := store.Lookup("llama-7b")
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Gamma())
}

func TestJournal_ReplayEmpty(t *testing.T) {
	j := openTestJournal(t)

	store := greenlist.NewKeyStore()
	defer store.Close()

	restored, err := j.Replay(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 0, restored)
	assert.Equal(t, 0, store.Len())
}

func TestJournal_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Path = dir
	// GC has nothing to collect in a test this small.
	cfg.GCInterval = 0

	j, err := Open(cfg)
	require.NoError(t, err)

	require.NoError(t, j.RecordRegistration(context.Background(), greenlist.Record{
		ModelID: "persisted",
		Secret:  []byte("key"),
		Gamma:   0.5,
		Delta:   2.0,
	}))
	require.NoError(t, j.Close())

	j2, err := Open(cfg)
	require.NoError(t, err)
	defer j2.Close()

	store := greenlist.NewKeyStore()
	defer store.Close()

	restored, err := j2.Replay(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)
	_, err = store.Lookup("persisted")
	assert.NoError(t, err)
}

func TestJournal_KeyStoreIntegration(t *testing.T) {
	j := openTestJournal(t)

	store := greenlist.NewKeyStore().WithJournal(j)
	defer store.Close()

	require.NoError(t, store.Register(context.Background(), "wired", nil, []byte("key"), 0.5, 2.0))

	// A second store replaying the same journal sees the registration.
	fresh := greenlist.NewKeyStore()
	defer fresh.Close()

	restored, err := j.Replay(context.Background(), fresh)
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	cfg, err := fresh.Lookup("wired")
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Gamma())
}

func TestJournal_ReplayHonorsContext(t *testing.T) {
	j := openTestJournal(t)

	require.NoError(t, j.RecordRegistration(context.Background(), greenlist.Record{
		ModelID: "m",
		Secret:  []byte("key"),
		Gamma:   0.5,
		Delta:   2.0,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := greenlist.NewKeyStore()
	defer store.Close()

	_, err := j.Replay(ctx, store)
	assert.ErrorIs(t, err, context.Canceled)
}
