// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the wizard service.
//
// This file contains the request and response types for the turn endpoint.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	// MaxMessageBytes is the maximum size of one turn message. Checked in
	// bytes, not runes, to bound memory on hostile payloads.
	MaxMessageBytes = 8 * 1024

	// MaxSessionIDLength bounds client-supplied session identifiers.
	MaxSessionIDLength = 128
)

// Turn response types.
const (
	TurnTypeOK           = "ok"
	TurnTypeLimitReached = "limit_reached"
)

// turnValidate is the validator instance for turn datatypes.
var turnValidate *validator.Validate

func init() {
	turnValidate = validator.New()
	_ = turnValidate.RegisterValidation("maxbytes", validateMessageBytes)
}

// validateMessageBytes enforces MaxMessageBytes on string fields tagged
// with `maxbytes`.
func validateMessageBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageBytes
}

// TurnRequest is the body of POST /v1/turn.
//
// # Fields
//
//   - SessionID: Required. Client-chosen session key; all turns sharing
//     it share one WizardState.
//   - Message: Required. The user's free-form text for this turn.
//   - Locale: Optional. BCP-47-ish short code ("it", "en"). Unknown
//     locales fall back to the default catalog.
//
// # Validation
//
// Uses go-playground/validator:
//   - SessionID: required, 1-128 chars
//   - Message: required, max 8KB (byte length, custom `maxbytes` rule)
//   - Locale: optional, 2-8 chars when present
type TurnRequest struct {
	SessionID string `json:"session_id" validate:"required,min=1,max=128"`
	Message   string `json:"message" validate:"required,maxbytes"`
	Locale    string `json:"locale,omitempty" validate:"omitempty,min=2,max=8"`
}

// Validate validates the TurnRequest fields after JSON binding.
func (r *TurnRequest) Validate() error {
	return turnValidate.Struct(r)
}

// TurnResponse is the reply for one processed turn.
//
// Type is "ok" for every normally processed turn (including ask-more and
// off-topic replies) and "limit_reached" once the session quota is used
// up. CTAMarker is set when the reply ends with a call-to-action block
// the client may render specially.
type TurnResponse struct {
	Type       string `json:"type"`
	Reply      string `json:"reply"`
	CTAMarker  string `json:"cta_marker,omitempty"`
	SessionID  string `json:"session_id"`
	ResponseID string `json:"response_id"`
	Timestamp  int64  `json:"timestamp"`
}

// NewTurnResponse creates a TurnResponse with a generated ID and
// timestamp for audit correlation.
func NewTurnResponse(sessionID, turnType, reply string) TurnResponse {
	return TurnResponse{
		Type:       turnType,
		Reply:      reply,
		SessionID:  sessionID,
		ResponseID: uuid.NewString(),
		Timestamp:  time.Now().UnixMilli(),
	}
}
