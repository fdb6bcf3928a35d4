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
	"github.com/KashuvY/EthicalWatermarking/pkg/ux"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	serverURL        string // Overrides WATERMARK_SERVICE_URL
	apiToken         string // Overrides WATERMARK_API_TOKEN
	personalityLevel string // Output personality: full, standard, minimal, machine
	outputJSON       bool   // Emit raw JSON instead of styled output

	// register flags
	registerModelID    string
	registerSecretFile string
	registerVocabFile  string
	registerGamma      float64
	registerDelta      float64

	// watermark flags
	watermarkModelID  string
	watermarkDistFile string
	watermarkPrev     string

	// detect flags
	detectModelID   string
	detectFile      string
	detectThreshold float64

	// generate flags
	generateModelID   string
	generateMaxTokens int

	rootCmd = &cobra.Command{
		Use:   "wmark",
		Short: "wmark is the CLI for the watermark scoring service",
		Long: `wmark manages watermark model registrations and scores text.

The service embeds a statistical watermark in generated text by biasing
token selection toward a secret green list. wmark registers the models,
requests watermarked tokens, and measures how strongly a piece of text
carries a given model's signal.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize UX personality from flag or environment
			if personalityLevel != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			} else {
				ux.InitPersonality()
			}
		},
	}

	registerCmd = &cobra.Command{
		Use:   "register",
		Short: "Register a model's watermark configuration",
		Long: `Registers a model with the scoring service.

With --model and --secret-file the registration is non-interactive.
Without them, and when run from a terminal, wmark prompts for the
configuration with an interactive form.

Examples:
  wmark register --model demo-model --secret-file ./secret.bin
  wmark register --model demo-model --secret-file ./secret.bin --gamma 0.25 --delta 4
  wmark register`,
		Run: runRegisterCommand, // Defined in cmd_register.go
	}

	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "Inspect registered models",
	}

	modelsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List every registered model",
		Run:   runModelsListCommand, // Defined in cmd_models.go
	}

	modelsGetCmd = &cobra.Command{
		Use:   "get [model-id]",
		Short: "Show one model's watermark parameters",
		Args:  cobra.ExactArgs(1),
		Run:   runModelsGetCommand, // Defined in cmd_models.go
	}

	watermarkCmd = &cobra.Command{
		Use:   "watermark",
		Short: "Sample one watermarked token from a distribution",
		Long: `Submits a next-token distribution and receives the biased draw.

The distribution is a JSON object mapping tokens to probabilities, read
from --dist-file or from stdin.

Examples:
  wmark watermark --model demo-model --dist-file ./dist.json --prev "the"
  echo '{"cat":0.6,"dog":0.4}' | wmark watermark --model demo-model`,
		Run: runWatermarkCommand, // Defined in cmd_watermark.go
	}

	detectCmd = &cobra.Command{
		Use:   "detect [text]",
		Short: "Score text against one model's watermark",
		Long: `Scores a token sequence against a single registered model.

Text is taken from the argument, from --file, or from stdin, and is
whitespace tokenized before scoring. The verdict compares the z-score
against --threshold locally; the service only reports the score.

Examples:
  wmark detect --model demo-model "text to score"
  wmark detect --model demo-model --file ./sample.txt
  cat sample.txt | wmark detect --model demo-model`,
		Run: runDetectCommand, // Defined in cmd_detect.go
	}

	generateCmd = &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate watermarked text from the demo language model",
		Long: `Runs the service's demo generation loop.

Only available when watermarkd is configured with a language model
backend. The response carries the sampled tokens and the joined text.

Examples:
  wmark generate --model demo-model "the quick brown"
  wmark generate --model demo-model --max-tokens 32 "once upon a"`,
		Run: runGenerateCommand, // Defined in cmd_generate.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full (default, rich styling), standard, minimal, or machine (scripting)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"Base URL of the watermark service (overrides WATERMARK_SERVICE_URL)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "",
		"Bearer token for the service API (overrides WATERMARK_API_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false,
		"Print raw JSON responses instead of styled output")

	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVar(&registerModelID, "model", "", "Model identifier to register")
	registerCmd.Flags().StringVar(&registerSecretFile, "secret-file", "", "File holding the watermark secret key")
	registerCmd.Flags().StringVar(&registerVocabFile, "vocab-file", "", "Optional vocabulary file, one token per line")
	registerCmd.Flags().Float64Var(&registerGamma, "gamma", 0, "Green list fraction in (0,1), 0 means service default")
	registerCmd.Flags().Float64Var(&registerDelta, "delta", 0, "Green token bias strength, 0 means service default")

	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsGetCmd)

	rootCmd.AddCommand(watermarkCmd)
	watermarkCmd.Flags().StringVar(&watermarkModelID, "model", "", "Model whose watermark biases the draw")
	watermarkCmd.Flags().StringVar(&watermarkDistFile, "dist-file", "", "JSON file mapping tokens to probabilities")
	watermarkCmd.Flags().StringVar(&watermarkPrev, "prev", "", "Previous token seeding the green list")

	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().StringVar(&detectModelID, "model", "", "Model whose watermark to score against")
	detectCmd.Flags().StringVar(&detectFile, "file", "", "Read the text to score from this file")
	detectCmd.Flags().Float64Var(&detectThreshold, "threshold", 4.0, "Flag when the z-score meets this value")

	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&generateModelID, "model", "", "Model whose watermark biases generation")
	generateCmd.Flags().IntVar(&generateMaxTokens, "max-tokens", 64, "Maximum tokens to generate")
}
