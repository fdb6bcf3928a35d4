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
	"math/rand/v2"
	"sort"
)

// Source yields uniform variates in [0, 1). Sampling correctness depends
// on uniformity, not unpredictability, so implementations need not be
// cryptographically secure. A Source shared across requests must be safe
// for concurrent use.
type Source interface {
	Float64() float64
}

// mathSource draws from math/rand/v2's global generator, which is safe
// for concurrent use.
type mathSource struct{}

func (mathSource) Float64() float64 { return rand.Float64() }

// DefaultSource returns the production randomness source.
func DefaultSource() Source { return mathSource{} }

// Sampler draws tokens from caller-supplied distributions with the green
// boost applied. It holds only registry and randomness handles and is
// safe for concurrent use whenever its Source is.
type Sampler struct {
	store *KeyStore
	src   Source
}

// Compile-time interface check for the production source.
var _ Source = mathSource{}

// NewSampler returns a sampler reading configurations from store. A nil
// src selects DefaultSource.
func NewSampler(store *KeyStore, src Source) *Sampler {
	if src == nil {
		src = DefaultSource()
	}
	return &Sampler{store: store, src: src}
}

// SelectToken samples one token from distribution for modelID, boosting
// green continuations of prevToken. The distribution maps candidate
// tokens to non-negative probabilities; it need not be normalized but
// must carry positive total mass.
func (s *Sampler) SelectToken(modelID string, distribution map[string]float64, prevToken string) (string, error) {
	cfg, err := s.store.Lookup(modelID)
	if err != nil {
		return "", err
	}
	return s.SelectFromConfig(cfg, distribution, prevToken)
}

// SelectFromConfig is SelectToken for callers that already hold a config
// snapshot, such as generation loops sampling many tokens under one
// registration.
//
// Green candidates' weights are their input probabilities scaled by
// exp(delta); red candidates keep their input probability. The draw is
// made from the renormalized weights. A delta of zero multiplies by
// exactly 1.0, so sampling reduces to the renormalized input distribution
// with no dependence on the secret or gamma.
func (s *Sampler) SelectFromConfig(cfg *Config, distribution map[string]float64, prevToken string) (string, error) {
	if cfg == nil {
		return "", &ValidationError{Field: "config", Reason: "must not be nil"}
	}
	if len(distribution) == 0 {
		return "", &ValidationError{Field: "distribution", Reason: "must not be empty"}
	}

	// Map iteration order is randomized; walking tokens in a fixed order
	// keeps draws from a seeded Source reproducible.
	tokens := make([]string, 0, len(distribution))
	for token, p := range distribution {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return "", &ValidationError{Field: "distribution", Reason: fmt.Sprintf("probability for %q is not finite", token)}
		}
		if p < 0 {
			return "", &ValidationError{Field: "distribution", Reason: fmt.Sprintf("probability for %q is negative", token)}
		}
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	boost := math.Exp(cfg.delta)
	weights := make([]float64, len(tokens))
	var total float64

	err := cfg.withSecret(func(secret []byte) {
		for i, token := range tokens {
			w := distribution[token]
			if IsGreen(secret, prevToken, token, cfg.gamma) {
				w *= boost
			}
			weights[i] = w
			total += w
		}
	})
	if err != nil {
		return "", err
	}

	if total <= 0 {
		return "", &ValidationError{Field: "distribution", Reason: "total probability mass must be positive"}
	}

	// Scaling the draw by the total is equivalent to normalizing every
	// weight: each token is selected with probability weight/total.
	target := s.src.Float64() * total
	var cum float64
	for i, token := range tokens {
		cum += weights[i]
		if target < cum {
			return token, nil
		}
	}

	// Round-off can leave the cumulative sum a hair under the target.
	return tokens[len(tokens)-1], nil
}
