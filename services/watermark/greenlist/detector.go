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
	"math"
)

// Detector scores token sequences for green-list density. It holds only
// a registry handle and is safe for concurrent use.
type Detector struct {
	store *KeyStore
}

// NewDetector returns a detector reading configurations from store.
func NewDetector(store *KeyStore) *Detector {
	return &Detector{store: store}
}

// Score computes the watermark z-score of tokens under modelID's current
// registration.
func (d *Detector) Score(modelID string, tokens []string) (float64, error) {
	cfg, err := d.store.Lookup(modelID)
	if err != nil {
		return 0, err
	}
	return d.ScoreFromConfig(cfg, tokens)
}

// ScoreFromConfig is Score for callers that already hold a config
// snapshot.
//
// Each position's green membership is evaluated against its immediate
// predecessor, with the empty string standing in before the first token,
// the same context rule applied during sampling. The score is the normal
// approximation statistic for the green count across T Bernoulli(gamma)
// trials:
//
//	z = (greens - gamma*T) / sqrt(T * gamma * (1 - gamma))
//
// Unwatermarked text scores near zero; text sampled through the matching
// registration scores several standard deviations above it.
//
// An empty sequence scores 0.0: no evidence either way. That convention
// predates this implementation and is kept for contract compatibility
// rather than statistical merit.
func (d *Detector) ScoreFromConfig(cfg *Config, tokens []string) (float64, error) {
	if cfg == nil {
		return 0, &ValidationError{Field: "config", Reason: "must not be nil"}
	}
	if len(tokens) == 0 {
		return 0.0, nil
	}
	if cfg.gamma <= 0 || cfg.gamma >= 1 {
		return 0, fmt.Errorf("model %q gamma %v: %w", cfg.id, cfg.gamma, ErrZeroVariance)
	}

	var greens int
	err := cfg.withSecret(func(secret []byte) {
		prev := ""
		for _, token := range tokens {
			if IsGreen(secret, prev, token, cfg.gamma) {
				greens++
			}
			prev = token
		}
	})
	if err != nil {
		return 0, err
	}

	t := float64(len(tokens))
	return (float64(greens) - cfg.gamma*t) / math.Sqrt(t*cfg.gamma*(1-cfg.gamma)), nil
}
