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
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/KashuvY/EthicalWatermarking/cmd/wmark/gcs"
	"github.com/KashuvY/EthicalWatermarking/pkg/ux"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	backupOut     string // Output path for the archive
	backupBucket  string // GCS bucket to upload to
	backupProject string // GCS project owning the bucket
	backupSAKey   string // Service account key path, empty for ADC
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// backupCmd archives the registered model configurations.
//
// # Description
//
// Fetches the model manifest from the service and writes it as a
// gzipped tarball: manifest.json plus one JSON file per model. The
// manifest never contains watermark secrets; those stay inside the
// service and its journal. With --bucket the archive is also uploaded
// to Google Cloud Storage.
//
// # Examples
//
//	wmark backup
//	wmark backup --out ./models.tar.gz
//	wmark backup --bucket wmark-backups --project my-project
//	wmark backup --bucket wmark-backups --sa-key ./sa.json
//
// # Limitations
//
//   - Secrets are not exported; restoring a backup means re-registering
//     each model with its secret through wmark register
//
// # Assumptions
//
//   - GCS credentials resolve via --sa-key or Application Default
//     Credentials when --bucket is set
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Archive registered model configurations",
	Long: `Archives every registered model's public configuration.

Writes a gzipped tarball holding the service's model manifest and one
JSON document per model. Watermark secrets are never included. Pass
--bucket to also upload the archive to Google Cloud Storage.

Examples:
  wmark backup --out ./models.tar.gz
  wmark backup --bucket wmark-backups --project my-project`,
	Run: runBackupCommand,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	backupCmd.Flags().StringVar(&backupOut, "out", "", "Archive path (default wmark-models-<date>.tar.gz)")
	backupCmd.Flags().StringVar(&backupBucket, "bucket", "", "GCS bucket to upload the archive to")
	backupCmd.Flags().StringVar(&backupProject, "project", "", "GCS project owning the bucket")
	backupCmd.Flags().StringVar(&backupSAKey, "sa-key", "", "Service account key file, empty for default credentials")
	rootCmd.AddCommand(backupCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runBackupCommand builds the archive and optionally uploads it.
func runBackupCommand(cmd *cobra.Command, args []string) {
	var manifest datatypes.ListModelsResponse
	if err := getJSON(getServiceBaseURL(), "/v1/models", &manifest); err != nil {
		fail("Failed to fetch model manifest: %v", err)
	}
	if manifest.Count == 0 {
		ux.Warning("No models registered; nothing to back up")
		return
	}

	outPath := backupOut
	if outPath == "" {
		outPath = defaultBackupName(time.Now())
	}

	if err := writeBackupArchive(manifest, outPath); err != nil {
		fail("%v", err)
	}
	ux.FileStatus(outPath, ux.IconSuccess, fmt.Sprintf("%d models archived", manifest.Count))

	if backupBucket == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := gcs.NewClient(ctx, backupProject, backupBucket, backupSAKey)
	if err != nil {
		fail("GCS client error: %v", err)
	}
	defer client.Close()

	objectPath := filepath.ToSlash(filepath.Join("backups", filepath.Base(outPath)))
	err = ux.WithSpinner(fmt.Sprintf("Uploading %s", filepath.Base(outPath)), func() error {
		return client.UploadFile(ctx, outPath, objectPath)
	})
	if err != nil {
		fail("Upload failed: %v", err)
	}
	ux.Success(fmt.Sprintf("Uploaded to %s", client.ObjectURL(objectPath)))
}

// defaultBackupName stamps the archive with the backup date.
func defaultBackupName(now time.Time) string {
	return fmt.Sprintf("wmark-models-%s.tar.gz", now.Format("2006-01-02"))
}

// writeBackupArchive creates the tarball file at outPath.
func writeBackupArchive(manifest datatypes.ListModelsResponse, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", outPath, err)
	}
	if err := buildBackupArchive(manifest, f); err != nil {
		f.Close()
		os.Remove(outPath)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close archive %s: %w", outPath, err)
	}
	return nil
}

// buildBackupArchive writes the gzipped tar stream: manifest.json at
// the root and models/<id>.json per registered model.
func buildBackupArchive(manifest datatypes.ListModelsResponse, w io.Writer) error {
	gzw := gzip.NewWriter(w)
	tw := tar.NewWriter(gzw)
	now := time.Now()

	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := writeTarFile(tw, "manifest.json", manifestBytes, now); err != nil {
		return err
	}

	for i := 0; i < len(manifest.Models); i++ {
		info := manifest.Models[i]
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode model %s: %w", info.ModelID, err)
		}
		name := filepath.ToSlash(filepath.Join("models", info.ModelID+".json"))
		if err := writeTarFile(tw, name, data, now); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finalize tar stream: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("failed to finalize gzip stream: %w", err)
	}
	return nil
}

func writeTarFile(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0640,
		Size:    int64(len(data)),
		ModTime: modTime,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write %s into archive: %w", name, err)
	}
	return nil
}
