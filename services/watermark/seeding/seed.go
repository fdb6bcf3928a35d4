// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package seeding registers models declared in a YAML file.
//
// A seed file keeps demo and development fleets reproducible: the
// service registers every listed model at boot and, when the watcher is
// running, re-applies the file whenever it changes on disk. Production
// deployments that register models through the API do not need one.
//
// Example:
//
//	models:
//	  - model_id: llama-7b
//	    gamma: 0.5
//	    delta: 2.0
//	    secret_file: /run/secrets/llama_wm_key
//	    vocabulary: [the, cat, sat, on, mat]
//	  - model_id: demo-model
//	    secret: not-for-production
package seeding

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
)

// Entry declares one model registration.
//
// Exactly one of Secret, SecretFile, or SecretEnv must be set; they are
// consulted in that order. Gamma and Delta fall back to the scheme
// defaults when omitted.
type Entry struct {
	ModelID    string   `yaml:"model_id"`
	Vocabulary []string `yaml:"vocabulary,omitempty"`
	Secret     string   `yaml:"secret,omitempty"`
	SecretFile string   `yaml:"secret_file,omitempty"`
	SecretEnv  string   `yaml:"secret_env,omitempty"`
	Gamma      *float64 `yaml:"gamma,omitempty"`
	Delta      *float64 `yaml:"delta,omitempty"`
}

// File is the top-level seed document.
type File struct {
	Models []Entry `yaml:"models"`
}

// Load reads and parses the seed file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &f, nil
}

// secretBytes resolves the entry's keying material.
func (e *Entry) secretBytes() ([]byte, error) {
	switch {
	case e.Secret != "":
		return []byte(e.Secret), nil
	case e.SecretFile != "":
		data, err := os.ReadFile(e.SecretFile)
		if err != nil {
			return nil, fmt.Errorf("read secret file for %q: %w", e.ModelID, err)
		}
		return []byte(strings.TrimSpace(string(data))), nil
	case e.SecretEnv != "":
		val := os.Getenv(e.SecretEnv)
		if val == "" {
			return nil, fmt.Errorf("secret env %s for %q is unset or empty", e.SecretEnv, e.ModelID)
		}
		return []byte(val), nil
	default:
		return nil, fmt.Errorf("model %q declares no secret, secret_file, or secret_env", e.ModelID)
	}
}

// Apply registers every entry of f into store.
//
// Registrations are upserts, so re-applying a file is idempotent and a
// changed entry rotates the model's configuration in place. The first
// failing entry aborts the apply; entries before it stay registered.
//
// Returns the number of models registered.
func Apply(ctx context.Context, f *File, store *greenlist.KeyStore) (int, error) {
	applied := 0
	for i := range f.Models {
		e := &f.Models[i]

		secret, err := e.secretBytes()
		if err != nil {
			return applied, err
		}

		gamma := greenlist.DefaultGamma
		if e.Gamma != nil {
			gamma = *e.Gamma
		}
		delta := greenlist.DefaultDelta
		if e.Delta != nil {
			delta = *e.Delta
		}

		if err := store.Register(ctx, e.ModelID, e.Vocabulary, secret, gamma, delta); err != nil {
			return applied, fmt.Errorf("seed model %q: %w", e.ModelID, err)
		}
		applied++
	}
	return applied, nil
}

// LoadAndApply is the boot-time path: parse the file and register its
// models in one call.
func LoadAndApply(ctx context.Context, path string, store *greenlist.KeyStore) (int, error) {
	f, err := Load(path)
	if err != nil {
		return 0, err
	}
	return Apply(ctx, f, store)
}
