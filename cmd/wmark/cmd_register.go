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
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/KashuvY/EthicalWatermarking/pkg/ux"
	"github.com/KashuvY/EthicalWatermarking/pkg/validation"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
)

// registrationInput is the resolved register command input, whether it
// came from flags or from the interactive form.
type registrationInput struct {
	ModelID   string
	Secret    string
	VocabFile string
	Gamma     *float64
	Delta     *float64
}

// runRegisterCommand registers a model with the scoring service.
//
// # Description
//
// Resolves the registration from flags when --model and --secret-file
// are both present, otherwise falls back to an interactive form on a
// terminal. Non-interactive invocations with missing flags fail with
// usage guidance.
func runRegisterCommand(cmd *cobra.Command, args []string) {
	input, err := resolveRegistration()
	if err != nil {
		fail("%v", err)
	}

	req := buildRegisterRequest(input)
	if input.VocabFile != "" {
		vocab, err := loadVocabulary(input.VocabFile)
		if err != nil {
			fail("%v", err)
		}
		req.Vocabulary = vocab
	}

	var resp datatypes.RegisterModelResponse
	if err := postJSON(getServiceBaseURL(), "/v1/models", req, &resp); err != nil {
		fail("Registration failed: %v", err)
	}

	if outputJSON {
		printJSON(resp)
		return
	}
	ux.Success(fmt.Sprintf("Model %s registered", resp.ModelID))
	if len(req.Vocabulary) > 0 {
		ux.Muted(fmt.Sprintf("  vocabulary: %d tokens", len(req.Vocabulary)))
	}
}

// resolveRegistration picks flags when complete, the form otherwise.
func resolveRegistration() (registrationInput, error) {
	if registerModelID != "" && registerSecretFile != "" {
		secret, err := os.ReadFile(registerSecretFile)
		if err != nil {
			return registrationInput{}, fmt.Errorf("failed to read secret file: %w", err)
		}
		// Trimmed the same way the service's seed loader trims its
		// secret_file entries, so both paths derive the same key.
		input := registrationInput{
			ModelID:   registerModelID,
			Secret:    strings.TrimSpace(string(secret)),
			VocabFile: registerVocabFile,
		}
		if registerGamma != 0 {
			g := registerGamma
			input.Gamma = &g
		}
		if registerDelta != 0 {
			d := registerDelta
			input.Delta = &d
		}
		return input, nil
	}

	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return registrationInput{}, errors.New("non-interactive run requires --model and --secret-file")
	}
	return promptRegistration()
}

// promptRegistration collects the registration interactively.
func promptRegistration() (registrationInput, error) {
	var (
		modelID   string
		secret    string
		gammaStr  string
		deltaStr  string
		vocabFile string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Model ID").
				Description("Lowercase letters, digits, dot, dash, underscore").
				Value(&modelID).
				Validate(validation.ValidateModelID),
			huh.NewInput().
				Title("Secret key").
				Description("Keyed into the green list PRF; never leaves the service").
				EchoMode(huh.EchoModePassword).
				Value(&secret).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("secret must not be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Gamma").
				Description("Green list fraction in (0,1); empty for service default").
				Value(&gammaStr).
				Validate(validateOptionalUnitFloat),
			huh.NewInput().
				Title("Delta").
				Description("Green token bias strength; empty for service default").
				Value(&deltaStr).
				Validate(validateOptionalPositiveFloat),
			huh.NewInput().
				Title("Vocabulary file").
				Description("Optional, one token per line; empty registers without a vocabulary").
				Value(&vocabFile),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return registrationInput{}, errors.New("registration cancelled")
		}
		return registrationInput{}, err
	}

	input := registrationInput{
		ModelID:   strings.TrimSpace(modelID),
		Secret:    secret,
		VocabFile: strings.TrimSpace(vocabFile),
	}
	if v := strings.TrimSpace(gammaStr); v != "" {
		g, _ := strconv.ParseFloat(v, 64)
		input.Gamma = &g
	}
	if v := strings.TrimSpace(deltaStr); v != "" {
		d, _ := strconv.ParseFloat(v, 64)
		input.Delta = &d
	}
	return input, nil
}

func buildRegisterRequest(input registrationInput) datatypes.RegisterModelRequest {
	return datatypes.RegisterModelRequest{
		ModelID: input.ModelID,
		Secret:  input.Secret,
		Gamma:   input.Gamma,
		Delta:   input.Delta,
	}
}

// loadVocabulary reads one token per line, skipping blanks.
func loadVocabulary(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary file: %w", err)
	}
	defer f.Close()

	var vocab []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		token := strings.TrimSpace(scanner.Text())
		if token == "" {
			continue
		}
		vocab = append(vocab, token)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}
	return vocab, nil
}

func validateOptionalUnitFloat(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.New("must be a number")
	}
	if v <= 0 || v >= 1 {
		return errors.New("must be strictly between 0 and 1")
	}
	return nil
}

func validateOptionalPositiveFloat(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.New("must be a number")
	}
	if v < 0 {
		return errors.New("must not be negative")
	}
	return nil
}
