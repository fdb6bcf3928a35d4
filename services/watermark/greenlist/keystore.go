// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package greenlist

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Record is the serializable form of a registration handed to a Journal.
// It carries the raw secret; journals are trusted collaborators and must
// protect it at rest.
type Record struct {
	ModelID      string    `json:"model_id"`
	Vocabulary   []string  `json:"vocabulary,omitempty"`
	Secret       []byte    `json:"secret"`
	Gamma        float64   `json:"gamma"`
	Delta        float64   `json:"delta"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Journal persists successful registrations so a fresh KeyStore can be
// rebuilt at boot. Implementations must be safe for concurrent use.
type Journal interface {
	RecordRegistration(ctx context.Context, rec Record) error
}

// ModelInfo is the public, secret-free view of one registration.
type ModelInfo struct {
	ModelID        string    `json:"model_id"`
	Gamma          float64   `json:"gamma"`
	Delta          float64   `json:"delta"`
	VocabularySize int       `json:"vocabulary_size"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// KeyStore maps model identifiers to watermarking configurations.
//
// # Thread Safety
//
// Safe for concurrent use. Registrations are atomic upserts under a
// writer lock: a concurrent Lookup observes either the previous
// configuration in full or the new one in full, never a mix. Configs are
// immutable snapshots, so readers that obtained one before an upsert keep
// a consistent view for the remainder of their call.
type KeyStore struct {
	mu      sync.RWMutex
	configs map[string]*Config
	journal Journal
}

// NewKeyStore returns an empty store.
func NewKeyStore() *KeyStore {
	return &KeyStore{configs: make(map[string]*Config)}
}

// WithJournal attaches a registration journal. Call before the store is
// shared across goroutines.
func (s *KeyStore) WithJournal(j Journal) *KeyStore {
	s.journal = j
	return s
}

// Register validates and installs the configuration for modelID,
// overwriting any previous registration as a single unit. Absent
// parameters are the caller's concern; see DefaultGamma and DefaultDelta.
//
// When a journal is attached the registration is persisted first, and a
// journal failure leaves the store unchanged.
func (s *KeyStore) Register(ctx context.Context, modelID string, vocabulary []string, secret []byte, gamma, delta float64) error {
	cfg, err := s.buildConfig(modelID, vocabulary, secret, gamma, delta)
	if err != nil {
		return err
	}

	if s.journal != nil {
		rec := Record{
			ModelID:      modelID,
			Vocabulary:   cfg.Vocabulary(),
			Secret:       append([]byte(nil), secret...),
			Gamma:        gamma,
			Delta:        delta,
			RegisteredAt: cfg.registeredAt,
		}
		if err := s.journal.RecordRegistration(ctx, rec); err != nil {
			return fmt.Errorf("journal registration for %q: %w", modelID, err)
		}
	}

	s.install(modelID, cfg)
	return nil
}

// Restore installs a previously journaled registration without writing it
// back to the journal. Used when replaying persisted state at boot. The
// record's original registration time is kept when present.
func (s *KeyStore) Restore(rec Record) error {
	cfg, err := s.buildConfig(rec.ModelID, rec.Vocabulary, rec.Secret, rec.Gamma, rec.Delta)
	if err != nil {
		return err
	}
	if !rec.RegisteredAt.IsZero() {
		cfg.registeredAt = rec.RegisteredAt
	}
	s.install(rec.ModelID, cfg)
	return nil
}

// Lookup returns the current configuration for modelID, or an error
// wrapping ErrModelNotFound. The returned config is an immutable
// snapshot; a concurrent re-registration replaces the store's entry but
// never mutates a snapshot a caller already holds.
func (s *KeyStore) Lookup(modelID string) (*Config, error) {
	s.mu.RLock()
	cfg, ok := s.configs[modelID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("model %q: %w", modelID, ErrModelNotFound)
	}
	return cfg, nil
}

// List returns a secret-free summary of every registration, sorted by
// model ID.
func (s *KeyStore) List() []ModelInfo {
	s.mu.RLock()
	infos := make([]ModelInfo, 0, len(s.configs))
	for id, cfg := range s.configs {
		infos = append(infos, ModelInfo{
			ModelID:        id,
			Gamma:          cfg.gamma,
			Delta:          cfg.delta,
			VocabularySize: len(cfg.vocabulary),
			RegisteredAt:   cfg.registeredAt,
		})
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ModelID < infos[j].ModelID })
	return infos
}

// Len returns the number of registered models.
func (s *KeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.configs)
}

// Close wipes plain-memory fallback secrets. Enclave-backed secrets are
// purged process-wide by PurgeSecureMemory.
func (s *KeyStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cfg := range s.configs {
		cfg.box.destroy()
	}
	s.configs = make(map[string]*Config)
}

func (s *KeyStore) buildConfig(modelID string, vocabulary []string, secret []byte, gamma, delta float64) (*Config, error) {
	if err := validateRegistration(modelID, secret, gamma, delta); err != nil {
		return nil, err
	}
	return newConfig(modelID, vocabulary, secret, gamma, delta)
}

func (s *KeyStore) install(modelID string, cfg *Config) {
	s.mu.Lock()
	s.configs[modelID] = cfg
	s.mu.Unlock()
}

func validateRegistration(modelID string, secret []byte, gamma, delta float64) error {
	if strings.TrimSpace(modelID) == "" {
		return &ValidationError{Field: "model_id", Reason: "must not be empty"}
	}
	if len(secret) == 0 {
		return &ValidationError{Field: "secret", Reason: "must not be empty"}
	}
	if math.IsNaN(gamma) || gamma < 0 || gamma > 1 {
		return &ValidationError{Field: "gamma", Reason: "must lie within [0, 1]"}
	}
	if math.IsNaN(delta) || delta < 0 {
		return &ValidationError{Field: "delta", Reason: "must be non-negative"}
	}
	if delta > maxDelta {
		return &ValidationError{Field: "delta", Reason: fmt.Sprintf("must not exceed %g", maxDelta)}
	}
	return nil
}
