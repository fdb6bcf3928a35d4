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
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/sys/unix"
)

// minMlockLimitKB is the smallest RLIMIT_MEMLOCK under which sealed key
// storage is considered usable. Each sealed secret costs a few locked
// pages, so this leaves headroom for hundreds of registrations.
const minMlockLimitKB = 64

var (
	secureMemOnce   sync.Once
	mlockSufficient bool
	currentMlockKB  int64
)

// initSecureMemory performs one-time memguard setup and records whether
// the process may lock enough memory for sealed key storage.
func initSecureMemory() {
	secureMemOnce.Do(func() {
		memguard.CatchInterrupt()
		mlockSufficient, currentMlockKB = checkMlockLimit()
		if mlockSufficient {
			slog.Info("Secure key memory initialized",
				"mlock_limit_kb", currentMlockKB,
				"required_kb", minMlockLimitKB,
			)
		} else {
			slog.Warn("mlock limit too low for sealed key storage, using plain memory",
				"current_limit_kb", currentMlockKB,
				"required_kb", minMlockLimitKB,
				"strict_mode", "WATERMARK_REQUIRE_SECURE_MEMORY=true",
			)
		}
	})
}

// checkMlockLimit queries the kernel for the mlock resource limit.
//
// Outputs:
//   - bool: true if the limit accommodates sealed key storage
//   - int64: current limit in kilobytes (-1 if unlimited)
func checkMlockLimit() (bool, int64) {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rlimit); err != nil {
		slog.Warn("Could not determine mlock limit", "error", err)
		return true, -1
	}

	if rlimit.Cur == unix.RLIM_INFINITY {
		return true, -1
	}

	limitKB := int64(rlimit.Cur / 1024)
	return limitKB >= minMlockLimitKB, limitKB
}

// secretBox owns one model's keying material. When the system allows
// memory locking the bytes live in a memguard enclave, encrypted at rest
// and decrypted into a guarded buffer per use. Otherwise they sit in
// ordinary memory, which WATERMARK_REQUIRE_SECURE_MEMORY=true forbids.
//
// A box is immutable after construction and safe for concurrent open
// calls. A box replaced by a re-registration stays readable for callers
// still holding the old config snapshot.
type secretBox struct {
	enclave *memguard.Enclave
	plain   []byte
}

func newSecretBox(secret []byte) (*secretBox, error) {
	initSecureMemory()

	buf := make([]byte, len(secret))
	copy(buf, secret)

	if mlockSufficient {
		// NewEnclave seals buf and wipes it.
		return &secretBox{enclave: memguard.NewEnclave(buf)}, nil
	}
	if os.Getenv("WATERMARK_REQUIRE_SECURE_MEMORY") == "true" {
		return nil, fmt.Errorf(
			"mlock limit insufficient for sealed key storage: have %d KB, need %d KB",
			currentMlockKB, minMlockLimitKB,
		)
	}
	return &secretBox{plain: buf}, nil
}

// open yields the secret bytes and a release function the caller must
// invoke as soon as it is done with them.
func (b *secretBox) open() ([]byte, func(), error) {
	if b.enclave != nil {
		lb, err := b.enclave.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("open sealed secret: %w", err)
		}
		return lb.Bytes(), lb.Destroy, nil
	}
	return b.plain, func() {}, nil
}

// destroy wipes plain-memory fallback storage. Enclave-backed secrets are
// wiped wholesale by PurgeSecureMemory during shutdown.
func (b *secretBox) destroy() {
	for i := range b.plain {
		b.plain[i] = 0
	}
}

// PurgeSecureMemory wipes every guarded buffer in the process. Call it
// during daemon shutdown; no registered secret is usable afterwards.
func PurgeSecureMemory() {
	memguard.Purge()
	slog.Info("Purged sealed key memory")
}
