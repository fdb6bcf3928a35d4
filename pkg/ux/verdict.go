// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"strings"
)

// Verdict is the displayable result of scoring a text against one model.
type Verdict struct {
	ModelID    string
	ZScore     float64
	Threshold  float64
	Flagged    bool
	TokenCount int
}

// Word returns the single-word verdict used in machine output.
func (v Verdict) Word() string {
	if v.Flagged {
		return "FLAGGED"
	}
	return "CLEAN"
}

func (v Verdict) icon() Icon {
	if v.Flagged {
		return IconFlag
	}
	return IconSuccess
}

func (v Verdict) headline() string {
	if v.Flagged {
		return Styles.Error.Bold(true).Render("Watermark detected")
	}
	return Styles.Success.Render("No watermark detected")
}

// FormatVerdict renders a full verdict block for a single model.
func FormatVerdict(v Verdict) string {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		return fmt.Sprintf("%s model=%s z=%.4f threshold=%.4f tokens=%d",
			v.Word(), v.ModelID, v.ZScore, v.Threshold, v.TokenCount)
	case PersonalityMinimal:
		return fmt.Sprintf("%s %s  z=%.2f (threshold %.2f, %d tokens)",
			v.icon().Render(), v.Word(), v.ZScore, v.Threshold, v.TokenCount)
	default:
		var b strings.Builder
		b.WriteString(fmt.Sprintf("%s %s\n", v.icon().Render(), v.headline()))
		b.WriteString(fmt.Sprintf("%s %s\n", Styles.Muted.Render("model"), v.ModelID))
		b.WriteString(fmt.Sprintf("%s %s\n", Styles.Muted.Render("z    "), ScoreBar(v.ZScore, v.Threshold, 20)))
		b.WriteString(Styles.Muted.Render(fmt.Sprintf("%d tokens scored, flag threshold %.2f", v.TokenCount, v.Threshold)))
		return Styles.Box.Render(b.String())
	}
}

// FormatVerdictRow renders a compact single-line verdict, used when a text
// is checked against every registered model at once.
func FormatVerdictRow(v Verdict) string {
	if GetPersonality().Level == PersonalityMachine {
		return fmt.Sprintf("%s model=%s z=%.4f threshold=%.4f tokens=%d",
			v.Word(), v.ModelID, v.ZScore, v.Threshold, v.TokenCount)
	}
	return fmt.Sprintf("%s %-24s %s", v.icon().Render(), v.ModelID, ScoreBar(v.ZScore, v.Threshold, 16))
}

// PrintVerdict prints a verdict block on stdout.
func PrintVerdict(v Verdict) {
	fmt.Println(FormatVerdict(v))
}

// PrintVerdictRows prints one compact row per verdict, flagged models first.
func PrintVerdictRows(verdicts []Verdict) {
	for _, v := range verdicts {
		if v.Flagged {
			fmt.Println(FormatVerdictRow(v))
		}
	}
	for _, v := range verdicts {
		if !v.Flagged {
			fmt.Println(FormatVerdictRow(v))
		}
	}
}
