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
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// healthCmd reports whether the watermark service is reachable.
//
// # Description
//
// Hits the service's liveness endpoint and reports the outcome along
// with the count of registered models. Exits non-zero when the service
// is unreachable, so scripts can gate on it.
//
// # Examples
//
//	wmark health
//	wmark health --json
//
// # Assumptions
//
//   - watermarkd is listening on WATERMARK_SERVICE_URL or the default port
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the watermark service is up",
	Run:   runHealthCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(healthCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

type healthReport struct {
	Status      string `json:"status"`
	Server      string `json:"server"`
	ModelCount  int    `json:"model_count"`
	ModelsError string `json:"models_error,omitempty"`
}

// runHealthCommand performs the liveness and model count probes.
func runHealthCommand(cmd *cobra.Command, args []string) {
	baseURL := getServiceBaseURL()

	var live struct {
		Status string `json:"status"`
	}
	if err := getJSON(baseURL, "/health", &live); err != nil {
		if outputJSON {
			printJSON(healthReport{Status: "unreachable", Server: baseURL})
		}
		fail("Service unreachable at %s: %v", baseURL, err)
	}

	report := healthReport{Status: live.Status, Server: baseURL}

	// Model listing may be behind auth; a failure here still counts as
	// a live service.
	var models struct {
		Count int `json:"count"`
	}
	if err := getJSON(baseURL, "/v1/models", &models); err != nil {
		report.ModelsError = err.Error()
	} else {
		report.ModelCount = models.Count
	}

	if outputJSON {
		printJSON(report)
		return
	}

	ux.Success(fmt.Sprintf("Service healthy at %s", baseURL))
	if report.ModelsError != "" {
		ux.Warning(fmt.Sprintf("Could not list models: %s", report.ModelsError))
		return
	}
	ux.Muted(fmt.Sprintf("  %d models registered", report.ModelCount))
}
