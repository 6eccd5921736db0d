// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin handlers for the wizard HTTP API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tripscout-labs/tripscout/pkg/validation"
	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
	"github.com/tripscout-labs/tripscout/services/wizard/dialogue"
)

// HandleTurn processes POST /v1/turn.
func HandleTurn(ctrl *dialogue.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.TurnRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			slog.Warn("turn request rejected", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid turn request"})
			return
		}
		if err := validation.ValidateSessionID(req.SessionID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
			return
		}

		resp, err := ctrl.HandleTurn(c.Request.Context(), req)
		if err != nil {
			if errors.Is(err, dialogue.ErrResponderUnavailable) {
				c.JSON(http.StatusBadGateway, gin.H{"error": "assistant temporarily unavailable"})
				return
			}
			slog.Error("turn processing failed", "session_id", req.SessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process turn"})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
