// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tripscout-labs/tripscout/services/wizard/dialogue"
	"github.com/tripscout-labs/tripscout/services/wizard/handlers"
)

func SetupRoutes(router *gin.Engine, ctrl *dialogue.Controller) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/turn", handlers.HandleTurn(ctrl))
		// Session administration routes
		sessions := v1.Group("/sessions")
		{
			sessions.GET("/:sessionId", handlers.GetSession(ctrl))
			sessions.DELETE("/:sessionId", handlers.DeleteSession(ctrl))
		}
	}
}
