// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package timeseries records detection outcomes to InfluxDB so operators
// can chart z-score drift per model over time.
package timeseries

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// Detection is one detection pass worth of telemetry.
type Detection struct {
	ModelID    string
	ZScore     float64
	TokenCount int
	Flagged    bool
	// Source names the surface that ran the detection: "api", "check",
	// "checker", or "stream".
	Source string
	// ObservedAt defaults to now when zero.
	ObservedAt time.Time
}

// Recorder persists detection telemetry. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordDetection(ctx context.Context, d Detection) error
	Close()
}

// NopRecorder discards all detections. Used when no InfluxDB endpoint is
// configured.
type NopRecorder struct{}

func (NopRecorder) RecordDetection(context.Context, Detection) error { return nil }

func (NopRecorder) Close() {}

// InfluxConfig carries the connection settings for an InfluxDB 2.x endpoint.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxRecorder writes one point per detection to the "detections"
// measurement, tagged by model and source.
type InfluxRecorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxRecorder connects to InfluxDB with the given settings.
// Org and Bucket default to "watermark" and "detections".
func NewInfluxRecorder(cfg InfluxConfig) (*InfluxRecorder, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("influx URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("influx token is required")
	}
	if cfg.Org == "" {
		cfg.Org = "watermark"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "detections"
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxRecorder{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

// RecordDetection writes the detection as a single point.
func (r *InfluxRecorder) RecordDetection(ctx context.Context, d Detection) error {
	when := d.ObservedAt
	if when.IsZero() {
		when = time.Now().UTC()
	}
	source := d.Source
	if source == "" {
		source = "api"
	}

	p := influxdb2.NewPoint(
		"detections",
		map[string]string{
			"model":  d.ModelID,
			"source": source,
		},
		map[string]interface{}{
			"z_score":     d.ZScore,
			"token_count": d.TokenCount,
			"flagged":     d.Flagged,
		},
		when,
	)
	if err := r.writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("write detection point: %w", err)
	}
	return nil
}

// Close releases the underlying HTTP client.
func (r *InfluxRecorder) Close() {
	r.client.Close()
}

var (
	_ Recorder = (*InfluxRecorder)(nil)
	_ Recorder = NopRecorder{}
)
