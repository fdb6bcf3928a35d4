// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package main implements wmark, the command line client for the
// watermark scoring service.
//
// wmark talks to a running watermarkd instance over HTTP. It registers
// models, samples watermarked tokens, scores token sequences, and
// checks free text against every registered model.
//
// # Environment Variables
//
//   - WATERMARK_SERVICE_URL: base URL of the service (default http://localhost:12240)
//   - WATERMARK_API_TOKEN: bearer token sent with every API request
//   - WATERMARK_PERSONALITY: output style (full, standard, minimal, machine)
//
// # Usage
//
//	wmark register --model demo-model --secret-file ./secret.bin
//	wmark models list
//	wmark detect --model demo-model "text to score"
//	wmark check "text to score against every model"
//	wmark backup --out models.tar.gz
package main

import (
	"log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
