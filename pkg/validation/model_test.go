// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"strings"
	"testing"
)

func TestValidateModelID(t *testing.T) {
	valid := []string{
		"m",
		"gpt-4o",
		"llama3.1",
		"org:model",
		"Model_7B",
		"a" + strings.Repeat("b", 127),
	}
	for _, id := range valid {
		if err := ValidateModelID(id); err != nil {
			t.Errorf("ValidateModelID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{
		"",
		" ",
		".starts-with-dot",
		"-starts-with-hyphen",
		"has space",
		"has/slash",
		"has\ttab",
		"semi;colon",
		"a" + strings.Repeat("b", 128),
	}
	for _, id := range invalid {
		if err := ValidateModelID(id); err == nil {
			t.Errorf("ValidateModelID(%q) = nil, want error", id)
		}
	}
}

func TestSanitizeModelID(t *testing.T) {
	got, err := SanitizeModelID("  gpt-4o  ")
	if err != nil {
		t.Fatalf("SanitizeModelID: %v", err)
	}
	if got != "gpt-4o" {
		t.Errorf("SanitizeModelID = %q, want %q", got, "gpt-4o")
	}

	if _, err := SanitizeModelID("  "); err == nil {
		t.Error("SanitizeModelID(blank) = nil, want error")
	}
}
