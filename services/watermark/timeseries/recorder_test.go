// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package timeseries

import (
	"context"
	"testing"
)

func TestNopRecorder(t *testing.T) {
	var r Recorder = NopRecorder{}

	err := r.RecordDetection(context.Background(), Detection{
		ModelID: "demo",
		ZScore:  6.93,
	})
	if err != nil {
		t.Errorf("NopRecorder.RecordDetection returned error: %v", err)
	}
	r.Close()
}

func TestNewInfluxRecorder_RequiresURLAndToken(t *testing.T) {
	if _, err := NewInfluxRecorder(InfluxConfig{Token: "t"}); err == nil {
		t.Error("expected error for missing URL")
	}
	if _, err := NewInfluxRecorder(InfluxConfig{URL: "http://localhost:8086"}); err == nil {
		t.Error("expected error for missing token")
	}
}

func TestNewInfluxRecorder_Defaults(t *testing.T) {
	r, err := NewInfluxRecorder(InfluxConfig{
		URL:   "http://localhost:8086",
		Token: "test-token",
	})
	if err != nil {
		t.Fatalf("NewInfluxRecorder failed: %v", err)
	}
	defer r.Close()

	if r.writeAPI == nil {
		t.Error("writeAPI should be initialized")
	}
}
