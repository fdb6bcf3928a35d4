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
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KashuvY/EthicalWatermarking/pkg/ux"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
)

// runGenerateCommand runs the service's watermarked generation loop.
func runGenerateCommand(cmd *cobra.Command, args []string) {
	if generateModelID == "" {
		fail("--model is required")
	}

	req := datatypes.GenerateRequest{
		ModelID:   generateModelID,
		Prompt:    strings.Join(args, " "),
		MaxTokens: generateMaxTokens,
	}

	spinner := ux.NewSpinner("Generating watermarked text...")
	spinner.Start()
	var resp datatypes.GenerateResponse
	err := postJSON(getServiceBaseURL(), "/v1/generate", req, &resp)
	spinner.Stop()
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			fail("Generation is not enabled on this service; start watermarkd with a language model backend")
		}
		fail("Generation failed: %v", err)
	}

	if outputJSON {
		printJSON(resp)
		return
	}
	if ux.GetPersonality().Level == ux.PersonalityMachine {
		fmt.Println(resp.Text)
		return
	}
	ux.Box(resp.ModelID, resp.Text)
	ux.Muted(fmt.Sprintf("%d tokens generated", len(resp.Tokens)))
}
