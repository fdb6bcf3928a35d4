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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/KashuvY/EthicalWatermarking/pkg/ux"
)

// Constants for default connection settings
const (
	DefaultServicePort = 12240
	DefaultServiceHost = "localhost"
)

// getServiceBaseURL returns the address of the watermark service.
func getServiceBaseURL() string {
	// 1. Priority: --server flag
	if serverURL != "" {
		return strings.TrimSuffix(serverURL, "/")
	}
	// 2. Environment variable (used by tests and container overrides)
	if url := os.Getenv("WATERMARK_SERVICE_URL"); url != "" {
		return strings.TrimSuffix(url, "/")
	}
	// 3. Default: standard host/port
	return fmt.Sprintf("http://%s:%d", DefaultServiceHost, DefaultServicePort)
}

// getAPIToken returns the bearer token for authenticated endpoints, or
// empty when the service runs without auth.
func getAPIToken() string {
	if apiToken != "" {
		return apiToken
	}
	return os.Getenv("WATERMARK_API_TOKEN")
}

// apiError carries the status and body of a non-2xx service response.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("service returned status %d", e.Status)
	}
	return fmt.Sprintf("service returned status %d: %s", e.Status, body)
}

// postJSON sends payload to path under the service base URL and decodes
// the response into out. out may be nil when the body does not matter.
func postJSON(baseURL, path string, payload, out interface{}) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := getAPIToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return doRequest(client, req, out)
}

// getJSON fetches path under the service base URL and decodes the
// response into out.
func getJSON(baseURL, path string, out interface{}) error {
	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if token := getAPIToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return doRequest(client, req, out)
}

func doRequest(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach the watermark service at %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{Status: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// printJSON writes v to stdout as indented JSON for --json mode.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
	}
}

// fail prints a styled error and exits non-zero.
func fail(format string, args ...interface{}) {
	ux.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}

// readTextInput resolves the text for scoring commands: an explicit
// argument wins, then a file, then piped stdin.
func readTextInput(args []string, filePath string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", filePath, err)
		}
		return string(data), nil
	}
	if stdinIsPiped() {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	return "", nil
}

// stdinIsPiped reports whether stdin carries piped or redirected data.
func stdinIsPiped() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) == 0
}
