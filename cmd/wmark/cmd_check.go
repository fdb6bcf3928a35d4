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
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KashuvY/EthicalWatermarking/pkg/ux"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	checkFile      string  // Read the text from this file
	checkThreshold float64 // Override the service flagging threshold
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// checkCmd scores text against every registered model.
//
// # Description
//
// Submits free text to the service's multi-model check. Text comes
// from the argument, --file, or piped stdin. With no text and a
// terminal attached, wmark enters an interactive loop: each line is
// checked as it is submitted, with up-arrow history, until "exit",
// "quit", or Ctrl+D.
//
// # Examples
//
//	wmark check "text to attribute"
//	wmark check --file ./sample.txt
//	cat sample.txt | wmark check
//	wmark check                       # interactive loop
//
// # Limitations
//
//   - Text is whitespace tokenized server side; scores on very short
//     inputs are weak evidence either way
//
// # Assumptions
//
//   - At least one model is registered
var checkCmd = &cobra.Command{
	Use:   "check [text]",
	Short: "Score text against every registered model",
	Long: `Checks which registered watermark, if any, a piece of text carries.

Scores the text against every registered model and flags models whose
z-score meets the threshold. Without text on the command line, --file,
or stdin, starts an interactive loop reading lines from the terminal.

Examples:
  wmark check "text to attribute"
  wmark check --file ./sample.txt
  cat sample.txt | wmark check
  wmark check --threshold 5.0 "stricter cutoff"`,
	Run: runCheckCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	checkCmd.Flags().StringVar(&checkFile, "file", "", "Read the text to check from this file")
	checkCmd.Flags().Float64Var(&checkThreshold, "threshold", 0,
		"Flagging threshold override, 0 uses the service default")
	rootCmd.AddCommand(checkCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runCheckCommand routes between one-shot and interactive checking.
func runCheckCommand(cmd *cobra.Command, args []string) {
	text, err := readTextInput(args, checkFile)
	if err != nil {
		fail("%v", err)
	}

	if strings.TrimSpace(text) != "" {
		resp, err := submitCheck(getServiceBaseURL(), text, checkThreshold)
		if err != nil {
			fail("Check failed: %v", err)
		}
		renderCheckResponse(resp)
		return
	}

	if !ux.IsInteractive() {
		fail("no text to check; pass it as an argument, via --file, or on stdin")
	}
	runCheckLoop(NewInteractiveInputReader(50))
}

// runCheckLoop reads lines until exit, checking each as it arrives.
func runCheckLoop(reader InputReader) {
	ux.Info("Checking text against every registered model. Type 'exit' or press Ctrl+D to stop.")

	flaggedTexts := 0
	cleanTexts := 0
	for {
		line, err := reader.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			fail("Input error: %v", err)
		}
		if line == "" {
			continue
		}
		if isExitCommand(line) {
			break
		}

		resp, err := submitCheck(getServiceBaseURL(), line, checkThreshold)
		if err != nil {
			ux.Warning(fmt.Sprintf("Check failed: %v", err))
			continue
		}
		renderCheckResponse(resp)
		if resp.Flagged {
			flaggedTexts++
		} else {
			cleanTexts++
		}
	}

	if flaggedTexts+cleanTexts > 0 {
		ux.Summary(flaggedTexts, cleanTexts, flaggedTexts+cleanTexts)
	}
}

// submitCheck posts one check request. A zero threshold defers to the
// service's configured default.
func submitCheck(baseURL, text string, threshold float64) (datatypes.CheckResponse, error) {
	req := datatypes.CheckRequest{Text: text}
	if threshold > 0 {
		req.Threshold = &threshold
	}
	var resp datatypes.CheckResponse
	if err := postJSON(baseURL, "/v1/check", req, &resp); err != nil {
		return datatypes.CheckResponse{}, err
	}
	return resp, nil
}

// renderCheckResponse prints the per-model rows and the verdict.
func renderCheckResponse(resp datatypes.CheckResponse) {
	if outputJSON {
		printJSON(resp)
		return
	}

	verdicts := make([]ux.Verdict, 0, len(resp.Results))
	for i := 0; i < len(resp.Results); i++ {
		row := resp.Results[i]
		if row.Error != "" {
			ux.Warning(fmt.Sprintf("%s: %s", row.ModelID, row.Error))
			continue
		}
		verdicts = append(verdicts, ux.Verdict{
			ModelID:    row.ModelID,
			ZScore:     row.ZScore,
			Threshold:  resp.Threshold,
			Flagged:    row.Flagged,
			TokenCount: resp.TokenCount,
		})
	}
	ux.PrintVerdictRows(verdicts)

	if ux.GetPersonality().Level != ux.PersonalityMachine {
		if resp.Flagged {
			fmt.Printf("%s %s\n", ux.IconFlag.Render(),
				ux.Styles.Error.Render(fmt.Sprintf("Watermark detected (%d tokens, threshold %.2f)", resp.TokenCount, resp.Threshold)))
		} else {
			ux.Muted(fmt.Sprintf("No watermark detected (%d tokens, threshold %.2f)", resp.TokenCount, resp.Threshold))
		}
	}
}
