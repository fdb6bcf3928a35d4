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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/KashuvY/EthicalWatermarking/pkg/ux"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
)

// runWatermarkCommand samples one biased token from a caller-supplied
// distribution.
func runWatermarkCommand(cmd *cobra.Command, args []string) {
	if watermarkModelID == "" {
		fail("--model is required")
	}

	dist, err := loadDistribution(watermarkDistFile)
	if err != nil {
		fail("%v", err)
	}

	req := datatypes.WatermarkRequest{
		ModelID:      watermarkModelID,
		Distribution: dist,
		PrevToken:    watermarkPrev,
	}
	var resp datatypes.WatermarkResponse
	if err := postJSON(getServiceBaseURL(), "/v1/watermark", req, &resp); err != nil {
		fail("Watermark request failed: %v", err)
	}

	if outputJSON {
		printJSON(resp)
		return
	}
	if ux.GetPersonality().Level == ux.PersonalityMachine {
		fmt.Println(resp.Token)
		return
	}
	fmt.Printf("%s %s\n", ux.IconArrow.Render(), ux.Styles.Highlight.Render(resp.Token))
}

// loadDistribution reads the token distribution from a JSON file, or
// from stdin when no file is given.
func loadDistribution(path string) (map[string]float64, error) {
	var data []byte
	var err error

	switch {
	case path != "":
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	case stdinIsPiped():
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	default:
		return nil, fmt.Errorf("provide a distribution via --dist-file or stdin")
	}

	var dist map[string]float64
	if err := json.Unmarshal(data, &dist); err != nil {
		return nil, fmt.Errorf("distribution is not a JSON object of token probabilities: %w", err)
	}
	if len(dist) == 0 {
		return nil, fmt.Errorf("distribution is empty")
	}
	return dist, nil
}
