// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage persists model registrations in an embedded BadgerDB
// so the key store survives process restarts.
//
// The journal holds one key per model under the "model/" prefix, valued
// with the JSON snapshot of the registration. Re-registration overwrites
// the key, so the journal always reflects the latest configuration and
// replay order does not matter.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
)

// modelKeyPrefix namespaces registration records. Keeping a prefix even
// with a single record type leaves room for future buckets (audit
// events, detection samples) without a migration.
const modelKeyPrefix = "model/"

// Config holds journal database settings.
type Config struct {
	// Path is the directory for BadgerDB files. Required unless
	// InMemory is true.
	Path string

	// InMemory disables disk persistence. Useful for testing.
	InMemory bool

	// SyncWrites forces each registration to disk before Register
	// returns. Default true: losing a key means losing the ability to
	// detect every text that key ever marked.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection.
	// Zero disables GC.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC
	// rewrites a value log file.
	GCDiscardRatio float64
}

// DefaultConfig returns production settings: synchronous writes and
// five-minute GC.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns settings for tests: no disk, no GC.
func InMemoryConfig() Config {
	return Config{
		InMemory:   true,
		SyncWrites: false,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Journal is a BadgerDB-backed registration log.
//
// # Thread Safety
//
// Safe for concurrent use; BadgerDB transactions provide isolation.
type Journal struct {
	db     *badger.DB
	gc     *gcRunner
	logger *slog.Logger
}

// Compile-time check against the key store's journal contract.
var _ greenlist.Journal = (*Journal)(nil)

// Open creates or opens the journal database described by cfg.
//
// # Inputs
//
//   - cfg: Database settings. Path is required unless InMemory is true.
//
// # Outputs
//
//   - *Journal: Open journal. Caller must Close it.
//   - error: Non-nil if the path is missing or BadgerDB cannot open.
func Open(cfg Config) (*Journal, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent journal")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create journal directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open registration journal: %w", err)
	}

	j := &Journal{db: db, logger: cfg.Logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		j.gc = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		j.gc.start()
	}
	return j, nil
}

// RecordRegistration upserts one registration snapshot. Satisfies
// greenlist.Journal; the key store calls it before installing a
// configuration, so an error here aborts the registration.
func (j *Journal) RecordRegistration(ctx context.Context, rec greenlist.Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode registration %q: %w", rec.ModelID, err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(modelKeyPrefix+rec.ModelID), val)
	})
	if err != nil {
		return fmt.Errorf("write registration %q: %w", rec.ModelID, err)
	}
	return nil
}

// Replay restores every journaled registration into store.
//
// # Description
//
// Walks the "model/" prefix and calls store.Restore for each record.
// A record that no longer passes validation fails the replay: a journal
// the service cannot trust should stop the boot, not silently shrink
// the detection surface.
//
// # Outputs
//
//   - int: Number of registrations restored
//   - error: Non-nil on read, decode, or restore failure
func (j *Journal) Replay(ctx context.Context, store *greenlist.KeyStore) (int, error) {
	restored := 0
	prefix := []byte(modelKeyPrefix)

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			modelID := string(item.Key()[len(prefix):])

			err := item.Value(func(val []byte) error {
				var rec greenlist.Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("decode registration %q: %w", modelID, err)
				}
				if err := store.Restore(rec); err != nil {
					return fmt.Errorf("restore registration %q: %w", modelID, err)
				}
				restored++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return restored, err
	}

	if j.logger != nil {
		j.logger.Info("Replayed registration journal", slog.Int("models", restored))
	}
	return restored, nil
}

// Close stops garbage collection and closes the database.
func (j *Journal) Close() error {
	if j.gc != nil {
		j.gc.stop()
	}
	return j.db.Close()
}

// gcRunner triggers periodic value log garbage collection.
type gcRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	stopCh   chan struct{}
	doneCh   chan struct{}
	logger   *slog.Logger
}

func newGCRunner(db *badger.DB, interval time.Duration, ratio float64, logger *slog.Logger) *gcRunner {
	return &gcRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (r *gcRunner) start() {
	go r.run()
}

func (r *gcRunner) stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *gcRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing needed collecting.
			err := r.db.RunValueLogGC(r.ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				if r.logger != nil {
					r.logger.Warn("journal value log GC error", slog.String("error", err.Error()))
				}
			}
		}
	}
}
