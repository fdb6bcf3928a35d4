// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadVocabulary_SkipsBlanksAndTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	content := "the\n  quick \n\nbrown\n\t\nfox\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	vocab, err := loadVocabulary(path)
	if err != nil {
		t.Fatalf("loadVocabulary failed: %v", err)
	}

	want := []string{"the", "quick", "brown", "fox"}
	if len(vocab) != len(want) {
		t.Fatalf("vocab = %v, want %v", vocab, want)
	}
	for i := range want {
		if vocab[i] != want[i] {
			t.Errorf("vocab[%d] = %q, want %q", i, vocab[i], want[i])
		}
	}
}

func TestLoadVocabulary_MissingFile(t *testing.T) {
	_, err := loadVocabulary(filepath.Join(t.TempDir(), "absent.txt"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateOptionalUnitFloat(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"  ", false},
		{"0.5", false},
		{"0.01", false},
		{"0", true},
		{"1", true},
		{"1.5", true},
		{"-0.2", true},
		{"abc", true},
	}

	for _, tt := range tests {
		err := validateOptionalUnitFloat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateOptionalUnitFloat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateOptionalPositiveFloat(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"0", false},
		{"2.0", false},
		{"10", false},
		{"-1", true},
		{"xyz", true},
	}

	for _, tt := range tests {
		err := validateOptionalPositiveFloat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateOptionalPositiveFloat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestBuildRegisterRequest_OptionalParameters(t *testing.T) {
	gamma := 0.25
	delta := 4.0
	req := buildRegisterRequest(registrationInput{
		ModelID: "demo-model",
		Secret:  "super-secret",
		Gamma:   &gamma,
		Delta:   &delta,
	})

	if req.ModelID != "demo-model" || req.Secret != "super-secret" {
		t.Errorf("request = %+v", req)
	}
	if req.Gamma == nil || *req.Gamma != 0.25 {
		t.Errorf("Gamma = %v, want 0.25", req.Gamma)
	}
	if req.Delta == nil || *req.Delta != 4.0 {
		t.Errorf("Delta = %v, want 4.0", req.Delta)
	}

	bare := buildRegisterRequest(registrationInput{ModelID: "demo-model", Secret: "s"})
	if bare.Gamma != nil || bare.Delta != nil {
		t.Error("unset parameters must stay nil so the service applies defaults")
	}
}

func TestResolveRegistration_FlagsPath(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "secret.bin")
	if err := os.WriteFile(secretPath, []byte("hunter2\n"), 0600); err != nil {
		t.Fatalf("failed to write secret fixture: %v", err)
	}

	oldModel, oldSecret := registerModelID, registerSecretFile
	oldGamma, oldDelta := registerGamma, registerDelta
	registerModelID = "flag-model"
	registerSecretFile = secretPath
	registerGamma = 0.3
	registerDelta = 0
	defer func() {
		registerModelID, registerSecretFile = oldModel, oldSecret
		registerGamma, registerDelta = oldGamma, oldDelta
	}()

	input, err := resolveRegistration()
	if err != nil {
		t.Fatalf("resolveRegistration failed: %v", err)
	}
	if input.ModelID != "flag-model" {
		t.Errorf("ModelID = %q", input.ModelID)
	}
	if input.Secret != "hunter2" {
		t.Errorf("Secret = %q, want trimmed file contents", input.Secret)
	}
	if input.Gamma == nil || *input.Gamma != 0.3 {
		t.Errorf("Gamma = %v, want 0.3", input.Gamma)
	}
	if input.Delta != nil {
		t.Error("zero delta flag should resolve to nil for the service default")
	}
}

func TestResolveRegistration_MissingSecretFile(t *testing.T) {
	oldModel, oldSecret := registerModelID, registerSecretFile
	registerModelID = "flag-model"
	registerSecretFile = filepath.Join(t.TempDir(), "absent.bin")
	defer func() {
		registerModelID, registerSecretFile = oldModel, oldSecret
	}()

	if _, err := resolveRegistration(); err == nil {
		t.Fatal("expected error for missing secret file")
	}
}
