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

	"github.com/spf13/cobra"

	"github.com/KashuvY/EthicalWatermarking/pkg/ux"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
)

// runModelsListCommand prints every registered model.
func runModelsListCommand(cmd *cobra.Command, args []string) {
	var resp datatypes.ListModelsResponse
	if err := getJSON(getServiceBaseURL(), "/v1/models", &resp); err != nil {
		fail("Failed to list models: %v", err)
	}

	if outputJSON {
		printJSON(resp)
		return
	}

	if resp.Count == 0 {
		ux.Info("No models registered")
		return
	}

	ux.Title(fmt.Sprintf("Registered models (%d)", resp.Count))
	for i := 0; i < len(resp.Models); i++ {
		printModelRow(resp.Models[i])
	}
}

// runModelsGetCommand prints one model's watermark parameters.
func runModelsGetCommand(cmd *cobra.Command, args []string) {
	modelID := args[0]

	var info greenlist.ModelInfo
	if err := getJSON(getServiceBaseURL(), "/v1/models/"+modelID, &info); err != nil {
		fail("Failed to fetch model %s: %v", modelID, err)
	}

	if outputJSON {
		printJSON(info)
		return
	}

	ux.Box(info.ModelID, formatModelDetail(info))
}

func printModelRow(info greenlist.ModelInfo) {
	if ux.GetPersonality().Level == ux.PersonalityMachine {
		fmt.Printf("%s\tgamma=%g\tdelta=%g\tvocab=%d\n",
			info.ModelID, info.Gamma, info.Delta, info.VocabularySize)
		return
	}
	fmt.Printf("  %s %-24s %s\n",
		ux.IconModel.Render(),
		info.ModelID,
		ux.Styles.Muted.Render(fmt.Sprintf("gamma=%g delta=%g vocab=%d", info.Gamma, info.Delta, info.VocabularySize)))
}

func formatModelDetail(info greenlist.ModelInfo) string {
	return fmt.Sprintf("gamma: %g\ndelta: %g\nvocabulary: %d tokens\nregistered: %s",
		info.Gamma, info.Delta, info.VocabularySize,
		info.RegisteredAt.Format("2006-01-02 15:04:05 MST"))
}
