// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
	"github.com/tripscout-labs/tripscout/services/wizard/dialogue"
	"github.com/tripscout-labs/tripscout/services/wizard/engine"
	"github.com/tripscout-labs/tripscout/services/wizard/extract"
	"github.com/tripscout-labs/tripscout/services/wizard/render"
	"github.com/tripscout-labs/tripscout/services/wizard/store"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// stubLoader implements engine.Loader with a fixed program list.
type stubLoader struct {
	programs []datatypes.CandidateProgram
}

func (s *stubLoader) Load(_ context.Context, _ string) ([]datatypes.CandidateProgram, error) {
	return s.programs, nil
}

func testController() *dialogue.Controller {
	templates := render.NewStaticCatalog("it", map[string]map[string]string{
		"it": {
			"ask.budget":     "Che budget hai?",
			"ask.country":    "In che paese?",
			"offtopic.nudge": "Parliamo del viaggio!",
		},
	})
	loader := &stubLoader{programs: []datatypes.CandidateProgram{
		{Name: "London School", City: "London", TuitionPerWeek: 300, HousingPerWeek: 250, FixedFees: 200},
	}}
	return dialogue.NewController(dialogue.Config{
		Store:     store.NewMemoryStore(),
		Extractor: extract.NewRuleExtractor(),
		Engine:    engine.NewEngine(loader),
		Renderer:  render.NewRenderer(templates),
	})
}

func testRouter(ctrl *dialogue.Controller) *gin.Engine {
	router := gin.New()
	router.GET("/health", HealthCheck)
	v1 := router.Group("/v1")
	v1.POST("/turn", HandleTurn(ctrl))
	v1.GET("/sessions/:sessionId", GetSession(ctrl))
	v1.DELETE("/sessions/:sessionId", DeleteSession(ctrl))
	return router
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Tests
// =============================================================================

func TestHandleTurnSuccess(t *testing.T) {
	router := testRouter(testController())

	w := performRequest(router, "POST", "/v1/turn", datatypes.TurnRequest{
		SessionID: "web-1",
		Message:   "ho un budget di 9000 euro",
		Locale:    "it",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.TurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, datatypes.TurnTypeOK, resp.Type)
	assert.Equal(t, "web-1", resp.SessionID)
	assert.Contains(t, resp.Reply, "In che paese?")
	assert.NotEmpty(t, resp.ResponseID)
}

func TestHandleTurnRejectsBadInput(t *testing.T) {
	router := testRouter(testController())

	tests := []struct {
		name string
		body interface{}
	}{
		{"not json", "plain text"},
		{"missing message", datatypes.TurnRequest{SessionID: "web-1"}},
		{"missing session id", datatypes.TurnRequest{Message: "ciao"}},
		{"unsafe session id", datatypes.TurnRequest{SessionID: "../etc", Message: "ciao"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, "POST", "/v1/turn", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSessionEndpoints(t *testing.T) {
	router := testRouter(testController())

	// No session yet.
	w := performRequest(router, "GET", "/v1/sessions/web-2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// One turn creates it.
	w = performRequest(router, "POST", "/v1/turn", datatypes.TurnRequest{
		SessionID: "web-2",
		Message:   "ho 9000 euro",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, "GET", "/v1/sessions/web-2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var session datatypes.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, 9000, session.State.Budget)
	assert.Equal(t, 1, session.TurnCount)

	// Delete and verify it is gone.
	w = performRequest(router, "DELETE", "/v1/sessions/web-2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = performRequest(router, "GET", "/v1/sessions/web-2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Invalid ids are rejected before hitting the store.
	w = performRequest(router, "GET", "/v1/sessions/.bad", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthCheck(t *testing.T) {
	router := testRouter(testController())
	w := performRequest(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
