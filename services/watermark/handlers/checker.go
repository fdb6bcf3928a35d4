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
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/datatypes"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/observability"
	"github.com/KashuvY/EthicalWatermarking/services/watermark/timeseries"
)

//go:embed templates/*.html
var templatesFS embed.FS

var checkerTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// checkerView is the template model for the checker page.
type checkerView struct {
	Text       string
	Checked    bool
	Results    []datatypes.CheckRow
	Flagged    bool
	TokenCount int
	Threshold  float64
	ModelCount int
	Error      string
}

// HandleCheckerPage serves the empty checker form.
func HandleCheckerPage(store *greenlist.KeyStore, threshold float64) gin.HandlerFunc {
	return func(c *gin.Context) {
		renderChecker(c, checkerView{
			Threshold:  threshold,
			ModelCount: store.Len(),
		})
	}
}

// HandleCheckerSubmit scores a pasted form submission and renders the
// verdict table. This is the human twin of POST /v1/check; both run the
// same sweep, this one just answers in HTML.
func HandleCheckerSubmit(store *greenlist.KeyStore, detector *greenlist.Detector, recorder timeseries.Recorder, threshold float64) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := checkTracer.Start(c.Request.Context(), "HandleCheckerSubmit")
		defer span.End()

		text := c.PostForm("text")
		if strings.TrimSpace(text) == "" {
			recordError(observability.EndpointCheck, observability.ErrorCodeValidation)
			renderChecker(c, checkerView{
				Threshold:  threshold,
				ModelCount: store.Len(),
				Error:      "Enter some text to check.",
			})
			return
		}

		resp := runCheck(ctx, store, detector, strings.Fields(text), threshold)
		recordRequest(observability.EndpointCheck, true)

		go recordCheckDetections(recorder, resp, "checker")

		renderChecker(c, checkerView{
			Text:       text,
			Checked:    true,
			Results:    resp.Results,
			Flagged:    resp.Flagged,
			TokenCount: resp.TokenCount,
			Threshold:  resp.Threshold,
			ModelCount: len(resp.Results),
		})
	}
}

func renderChecker(c *gin.Context, view checkerView) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := checkerTemplates.ExecuteTemplate(c.Writer, "checker.html", view); err != nil {
		slog.Error("Failed to render checker page", "error", err)
	}
}
