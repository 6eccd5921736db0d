// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tripscout-labs/tripscout/pkg/validation"
	"github.com/tripscout-labs/tripscout/services/wizard/dialogue"
	"github.com/tripscout-labs/tripscout/services/wizard/store"
)

// GetSession returns the stored session envelope for GET /v1/sessions/:sessionId.
func GetSession(ctrl *dialogue.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("sessionId")
		if err := validation.ValidateSessionID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
			return
		}
		session, err := ctrl.Session(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if err != nil {
			slog.Error("session lookup failed", "session_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

// DeleteSession removes a session for DELETE /v1/sessions/:sessionId.
// Deleting a session that does not exist still reports success.
func DeleteSession(ctrl *dialogue.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("sessionId")
		if err := validation.ValidateSessionID(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
			return
		}
		if err := ctrl.DeleteSession(c.Request.Context(), id); err != nil {
			slog.Error("session delete failed", "session_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
			return
		}
		slog.Info("session deleted", "session_id", id)
		c.JSON(http.StatusOK, gin.H{"status": "success", "deleted_session_id": id})
	}
}
