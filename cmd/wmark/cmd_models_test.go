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
	"testing"
	"time"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
)

func TestPrintModelRow_MachineMode(t *testing.T) {
	useMachinePersonality(t)

	info := greenlist.ModelInfo{
		ModelID:        "demo-model",
		Gamma:          0.5,
		Delta:          2.0,
		VocabularySize: 50000,
	}

	out := captureStdout(t, func() { printModelRow(info) })
	if out != "demo-model\tgamma=0.5\tdelta=2\tvocab=50000\n" {
		t.Errorf("machine row = %q", out)
	}
}

func TestFormatModelDetail(t *testing.T) {
	info := greenlist.ModelInfo{
		ModelID:        "demo-model",
		Gamma:          0.25,
		Delta:          4.0,
		VocabularySize: 32000,
		RegisteredAt:   time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC),
	}

	detail := formatModelDetail(info)
	for _, want := range []string{"gamma: 0.25", "delta: 4", "32000 tokens", "2025-11-02"} {
		if !strings.Contains(detail, want) {
			t.Errorf("detail missing %q: %s", want, detail)
		}
	}
}
