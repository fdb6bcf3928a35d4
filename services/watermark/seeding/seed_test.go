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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
)

// captureJournal records registrations so tests can inspect the exact
// secret bytes the store received.
type captureJournal struct {
	mu      sync.Mutex
	records []greenlist.Record
}

func (j *captureJournal) RecordRegistration(_ context.Context, rec greenlist.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

func (j *captureJournal) recorded() []greenlist.Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]greenlist.Record, len(j.records))
	copy(out, j.records)
	return out
}

func newSeedStore(t *testing.T) (*greenlist.KeyStore, *captureJournal) {
	t.Helper()
	journal := &captureJournal{}
	store := greenlist.NewKeyStore().WithJournal(journal)
	t.Cleanup(store.Close)
	return store, journal
}

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ParsesFile(t *testing.T) {
	path := writeSeedFile(t, `
models:
  - model_id: llama-7b
    gamma: 0.25
    delta: 4.0
    secret: inline-key
    vocabulary: [the, cat, sat]
  - model_id: demo-model
    secret_env: DEMO_WM_KEY
`)

	f, err := Load(path)
	require.NoError(t, err)
	require.Len(t, f.Models, 2)

	first := f.Models[0]
	assert.Equal(t, "llama-7b", first.ModelID)
	assert.Equal(t, []string{"the", "cat", "sat"}, first.Vocabulary)
	assert.Equal(t, "inline-key", first.Secret)
	require.NotNil(t, first.Gamma)
	assert.Equal(t, 0.25, *first.Gamma)
	require.NotNil(t, first.Delta)
	assert.Equal(t, 4.0, *first.Delta)

	second := f.Models[1]
	assert.Equal(t, "demo-model", second.ModelID)
	assert.Equal(t, "DEMO_WM_KEY", second.SecretEnv)
	assert.Nil(t, second.Gamma)
	assert.Nil(t, second.Delta)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read seed file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeSeedFile(t, "models: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse seed file")
}

func TestApply_RegistersModels(t *testing.T) {
	store, _ := newSeedStore(t)

	gamma := 0.25
	delta := 4.0
	f := &File{Models: []Entry{
		{ModelID: "explicit", Secret: "key-a", Gamma: &gamma, Delta: &delta},
		{ModelID: "defaulted", Secret: "key-b"},
	}}

	applied, err := Apply(context.Background(), f, store)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, 2, store.Len())

	cfg, err := store.Lookup("explicit")
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Gamma())
	assert.Equal(t, 4.0, cfg.Delta())

	cfg, err = store.Lookup("defaulted")
	require.NoError(t, err)
	assert.Equal(t, greenlist.DefaultGamma, cfg.Gamma())
	assert.Equal(t, greenlist.DefaultDelta, cfg.Delta())
}

func TestApply_SecretFileTrimsWhitespace(t *testing.T) {
	store, journal := newSeedStore(t)

	secretPath := filepath.Join(t.TempDir(), "wm_key")
	require.NoError(t, os.WriteFile(secretPath, []byte("s3cret-material\n"), 0o600))

	f := &File{Models: []Entry{
		{ModelID: "file-backed", SecretFile: secretPath},
	}}

	_, err := Apply(context.Background(), f, store)
	require.NoError(t, err)

	records := journal.recorded()
	require.Len(t, records, 1)
	assert.Equal(t, []byte("s3cret-material"), records[0].Secret)
}

func TestApply_SecretEnv(t *testing.T) {
	store, journal := newSeedStore(t)
	t.Setenv("SEED_TEST_WM_KEY", "from-env")

	f := &File{Models: []Entry{
		{ModelID: "env-backed", SecretEnv: "SEED_TEST_WM_KEY"},
	}}

	_, err := Apply(context.Background(), f, store)
	require.NoError(t, err)

	records := journal.recorded()
	require.Len(t, records, 1)
	assert.Equal(t, []byte("from-env"), records[0].Secret)
}

func TestApply_SecretEnvUnset(t *testing.T) {
	store, _ := newSeedStore(t)

	f := &File{Models: []Entry{
		{ModelID: "env-backed", SecretEnv: "SEED_TEST_WM_KEY_UNSET"},
	}}

	applied, err := Apply(context.Background(), f, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEED_TEST_WM_KEY_UNSET")
	assert.Contains(t, err.Error(), "env-backed")
	assert.Zero(t, applied)
	assert.Zero(t, store.Len())
}

func TestApply_InlineSecretWinsOverFile(t *testing.T) {
	store, journal := newSeedStore(t)

	secretPath := filepath.Join(t.TempDir(), "wm_key")
	require.NoError(t, os.WriteFile(secretPath, []byte("file-material"), 0o600))

	f := &File{Models: []Entry{
		{ModelID: "both", Secret: "inline-material", SecretFile: secretPath},
	}}

	_, err := Apply(context.Background(), f, store)
	require.NoError(t, err)

	records := journal.recorded()
	require.Len(t, records, 1)
	assert.Equal(t, []byte("inline-material"), records[0].Secret)
}

func TestApply_MissingSecret(t *testing.T) {
	store, _ := newSeedStore(t)

	f := &File{Models: []Entry{
		{ModelID: "keyless"},
	}}

	applied, err := Apply(context.Background(), f, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyless")
	assert.Zero(t, applied)
}

func TestApply_FailsFastOnInvalidEntry(t *testing.T) {
	store, _ := newSeedStore(t)

	badGamma := 1.5
	f := &File{Models: []Entry{
		{ModelID: "good", Secret: "key-a"},
		{ModelID: "bad", Secret: "key-b", Gamma: &badGamma},
		{ModelID: "never-reached", Secret: "key-c"},
	}}

	applied, err := Apply(context.Background(), f, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `seed model "bad"`)

	// Entries before the failure stay registered.
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, store.Len())
	_, err = store.Lookup("never-reached")
	assert.ErrorIs(t, err, greenlist.ErrModelNotFound)
}

func TestApply_ReapplyRotatesInPlace(t *testing.T) {
	store, _ := newSeedStore(t)

	gamma := 0.5
	f := &File{Models: []Entry{
		{ModelID: "rotated", Secret: "key-v1", Gamma: &gamma},
	}}
	_, err := Apply(context.Background(), f, store)
	require.NoError(t, err)

	newGamma := 0.3
	f.Models[0].Secret = "key-v2"
	f.Models[0].Gamma = &newGamma
	_, err = Apply(context.Background(), f, store)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len())
	cfg, err := store.Lookup("rotated")
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Gamma())
}

func TestLoadAndApply(t *testing.T) {
	store, _ := newSeedStore(t)

	path := writeSeedFile(t, `
models:
  - model_id: boot-model
    secret: boot-key
`)

	applied, err := LoadAndApply(context.Background(), path, store)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	_, err = store.Lookup("boot-model")
	require.NoError(t, err)
}
