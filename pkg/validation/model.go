// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for
// security-critical identifiers.
//
// Model identifiers flow into storage keys, URL paths, and metric labels,
// so they are restricted to a conservative character set before any of
// those systems see them.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// modelIDPattern matches valid model identifiers.
// Allows: letters, digits, then dots, hyphens, underscores, colons
// (org:model conventions). Max length: 128 characters.
var modelIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]{0,127}$`)

// ValidateModelID validates a model identifier before it reaches storage
// keys, URL paths, or metric labels.
//
// Valid identifiers:
//   - 1-128 characters
//   - Start with a letter or digit
//   - Continue with letters, digits, dots, hyphens, underscores, colons
//
// Example:
//
//	if err := validation.ValidateModelID(id); err != nil {
//	    return fmt.Errorf("invalid model id: %w", err)
//	}
func ValidateModelID(id string) error {
	if id == "" {
		return fmt.Errorf("model id cannot be empty")
	}

	if !modelIDPattern.MatchString(id) {
		return fmt.Errorf("invalid model id format: %q (must be 1-128 alphanumeric chars, dots, hyphens, underscores, or colons)", id)
	}

	return nil
}

// SanitizeModelID normalizes and validates a model identifier. Returns
// the trimmed identifier if valid.
func SanitizeModelID(id string) (string, error) {
	normalized := strings.TrimSpace(id)
	if err := ValidateModelID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// IsValidModelID reports whether id passes ValidateModelID. Convenience
// form for validator hooks that only need the boolean.
func IsValidModelID(id string) bool {
	return ValidateModelID(id) == nil
}
