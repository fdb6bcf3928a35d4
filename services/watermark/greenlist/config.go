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
	"time"
)

// Default tuning parameters applied when a registration omits them.
const (
	// DefaultGamma is the target fraction of the vocabulary assigned
	// green in any context.
	DefaultGamma = 0.5

	// DefaultDelta is the log-space boost applied to green tokens.
	DefaultDelta = 2.0
)

// maxDelta bounds the bias strength so exp(delta) stays finite.
const maxDelta = 700.0

// Config is one model's watermarking configuration. Instances are built
// only through the KeyStore's validating registration path and are
// immutable afterwards; callers read through accessors and never see the
// secret.
type Config struct {
	id           string
	vocabulary   []string
	box          *secretBox
	gamma        float64
	delta        float64
	registeredAt time.Time
}

func newConfig(modelID string, vocabulary []string, secret []byte, gamma, delta float64) (*Config, error) {
	box, err := newSecretBox(secret)
	if err != nil {
		return nil, err
	}

	vocab := make([]string, len(vocabulary))
	copy(vocab, vocabulary)

	return &Config{
		id:           modelID,
		vocabulary:   vocab,
		box:          box,
		gamma:        gamma,
		delta:        delta,
		registeredAt: time.Now().UTC(),
	}, nil
}

// ID returns the model identifier this configuration was registered under.
func (c *Config) ID() string { return c.id }

// Gamma returns the target green fraction.
func (c *Config) Gamma() float64 { return c.gamma }

// Delta returns the log-space bias strength.
func (c *Config) Delta() float64 { return c.delta }

// VocabularySize returns the number of vocabulary entries supplied at
// registration. The vocabulary documents the model's alphabet for
// operators; the scheme itself never consults it.
func (c *Config) VocabularySize() int { return len(c.vocabulary) }

// Vocabulary returns a copy of the registered vocabulary.
func (c *Config) Vocabulary() []string {
	out := make([]string, len(c.vocabulary))
	copy(out, c.vocabulary)
	return out
}

// RegisteredAt returns when this configuration was installed.
func (c *Config) RegisteredAt() time.Time { return c.registeredAt }

// withSecret runs fn with the decrypted keying material. The bytes are
// valid only for the duration of the call.
func (c *Config) withSecret(fn func(secret []byte)) error {
	secret, release, err := c.box.open()
	if err != nil {
		return err
	}
	defer release()
	fn(secret)
	return nil
}
