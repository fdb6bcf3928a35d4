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
	"strings"

	"github.com/spf13/cobra"

	"github.com/KashuvY/EthicalWatermarking/pkg/ux"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
)

// runDetectCommand scores text against one model's watermark.
//
// The service reports the raw z-score; flagging against --threshold is
// applied here so scripted callers can pick their own cutoff.
func runDetectCommand(cmd *cobra.Command, args []string) {
	if detectModelID == "" {
		fail("--model is required")
	}

	text, err := readTextInput(args, detectFile)
	if err != nil {
		fail("%v", err)
	}
	if strings.TrimSpace(text) == "" {
		fail("no text to score; pass it as an argument, via --file, or on stdin")
	}

	req := datatypes.DetectRequest{
		ModelID: detectModelID,
		Tokens:  strings.Fields(text),
	}
	var resp datatypes.DetectResponse
	if err := postJSON(getServiceBaseURL(), "/v1/detect", req, &resp); err != nil {
		fail("Detection failed: %v", err)
	}

	if outputJSON {
		printJSON(resp)
		return
	}
	ux.PrintVerdict(ux.Verdict{
		ModelID:    resp.ModelID,
		ZScore:     resp.ZScore,
		Threshold:  detectThreshold,
		Flagged:    resp.ZScore > detectThreshold,
		TokenCount: resp.TokenCount,
	})
}
