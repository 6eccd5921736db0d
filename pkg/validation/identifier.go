// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// store keys or file paths. Using these validators prevents injection attacks
// (path traversal via country codes, malformed store keys via session ids).
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// countryCodePattern matches lowercase two-letter ISO-3166-ish codes.
// Country codes select reference-data files on disk, so anything else
// is rejected before it can reach a file path.
var countryCodePattern = regexp.MustCompile(`^[a-z]{2}$`)

// sessionIDPattern matches safe session identifiers.
// Allows: letters, digits, hyphens, underscores, dots. Max 128 chars.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,127}$`)

// ValidateCountryCode validates a destination country code.
//
// Valid codes are exactly two lowercase ASCII letters. Returns an error
// if the code is invalid.
//
// Example:
//
//	if err := validation.ValidateCountryCode(cc); err != nil {
//	    return nil, fmt.Errorf("invalid country: %w", err)
//	}
//	// Safe to use in a file path
func ValidateCountryCode(code string) error {
	if code == "" {
		return fmt.Errorf("country code cannot be empty")
	}
	if !countryCodePattern.MatchString(code) {
		return fmt.Errorf("invalid country code: %q (must be 2 lowercase letters)", code)
	}
	return nil
}

// SanitizeCountryCode normalizes and validates a country code.
// Returns the lowercase code if valid, or an error if invalid.
func SanitizeCountryCode(code string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if err := ValidateCountryCode(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ValidateSessionID validates a client-supplied session identifier before
// it is used as a store key.
//
// Valid session ids:
//   - 1-128 characters
//   - letters, digits, dots, hyphens, underscores
//   - must start with a letter or digit
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid session id format: %q", id)
	}
	return nil
}
