// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
)

// HandleListModels enumerates registered models. Secrets never leave the
// key store; the listing carries parameters and registration times only.
func HandleListModels(store *greenlist.KeyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		models := store.List()
		c.JSON(http.StatusOK, datatypes.ListModelsResponse{
			Models: models,
			Count:  len(models),
		})
	}
}

// HandleGetModel returns one model's public parameters, or 404 when the
// ID is unknown.
func HandleGetModel(store *greenlist.KeyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		modelID := c.Param("id")
		cfg, err := store.Lookup(modelID)
		if err != nil {
			status, _ := scoringStatus(err)
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, greenlist.ModelInfo{
			ModelID:        cfg.ID(),
			Gamma:          cfg.Gamma(),
			Delta:          cfg.Delta(),
			VocabularySize: cfg.VocabularySize(),
			RegisteredAt:   cfg.RegisteredAt(),
		})
	}
}
