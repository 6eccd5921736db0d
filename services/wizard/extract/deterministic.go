// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
)

// budgetMarkerWindow is how many bytes around a numeric token are
// scanned for a currency marker.
const budgetMarkerWindow = 16

// minBareBudget is the smallest magnitude accepted as a budget without a
// currency marker. Rejects short numbers that are really durations.
const minBareBudget = 100

// monthWeeks converts months to weeks.
const monthWeeks = 4

var (
	// numberPattern matches an amount with optional thousand separators
	// and an optional thousand-style suffix ("9k", "9 mila"). The suffix
	// needs a word boundary so "milano" never reads as "mila".
	numberPattern = regexp.MustCompile(`(\d{1,3}(?:[.,]\d{3})+|\d+)\s*((?:k|mila)\b)?`)

	// durationPattern matches "<number> <unit>" with weeks or months.
	durationPattern = regexp.MustCompile(`(\d{1,3})\s*(settimane|settimana|weeks|week|mesi|mese|months|month)`)

	// durationUnitAfter detects a duration unit immediately after a
	// number, so "120 settimane" is never read as a bare budget.
	durationUnitAfter = regexp.MustCompile(`^\s*(settiman|week|mesi|mese|month)`)

	thousandSep = strings.NewReplacer(".", "", ",", "")
)

// RuleExtractor is the deterministic, keyword-driven strategy. It is
// stateless: applying it twice to the same (text, slots) pair yields
// identical results.
type RuleExtractor struct{}

// NewRuleExtractor returns the deterministic extraction strategy.
func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

func (e *RuleExtractor) Strategy() Strategy { return StrategyRules }

// ExtractTurn parses the text, merges deltas first-write-wins into a
// copy of current, and classifies the turn. Never returns an error.
func (e *RuleExtractor) ExtractTurn(_ context.Context, text string, current datatypes.WizardState) (Decision, error) {
	var delta datatypes.WizardState
	if budget, ok := e.ParseBudget(text); ok {
		delta.Budget = budget
	}
	if code, ok := e.ParseCountry(text); ok {
		delta.CountryCode = code
	}
	if weeks, ok := e.ParseDuration(text); ok {
		delta.DurationWeeks = weeks
	}
	if goal, ok := e.ParseGoal(text); ok {
		delta.Goal = goal
	}

	// The city hint belongs to whichever country is in play this turn.
	code := delta.CountryCode
	if code == "" {
		code = current.CountryCode
	}
	if code != "" {
		if city, ok := e.ParseCity(text, code); ok {
			delta.City = city
		}
	}

	merged := current
	changed := merged.Merge(delta)
	return Decision{
		Slots:   merged,
		Changed: changed,
		Action:  classify(merged, e.TopicRelevant(text)),
	}, nil
}

// ParseBudget locates a numeric token and accepts it as a budget when it
// carries a currency marker near it, a thousand-style suffix, or a
// magnitude of at least 100.
func (e *RuleExtractor) ParseBudget(text string) (int, bool) {
	norm := strings.ToLower(text)
	for _, loc := range numberPattern.FindAllStringSubmatchIndex(norm, -1) {
		token := norm[loc[2]:loc[3]]
		value, err := strconv.Atoi(thousandSep.Replace(token))
		if err != nil || value <= 0 {
			continue
		}
		hasSuffix := loc[4] >= 0
		if hasSuffix {
			return value * 1000, true
		}
		// A number glued to a duration unit is a duration, not a budget,
		// even when another amount's currency marker sits in the window.
		if durationUnitAfter.MatchString(norm[loc[1]:]) {
			continue
		}
		if e.markerNear(norm, loc[0], loc[1]) {
			return value, true
		}
		if value >= minBareBudget {
			return value, true
		}
	}
	return 0, false
}

// markerNear reports whether a currency marker appears within the
// window around the [start, end) token span.
func (e *RuleExtractor) markerNear(norm string, start, end int) bool {
	lo := start - budgetMarkerWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + budgetMarkerWindow
	if hi > len(norm) {
		hi = len(norm)
	}
	window := norm[lo:hi]
	for _, marker := range currencyMarkers {
		if hasKeyword(window, marker) {
			return true
		}
	}
	return false
}

// ParseCountry matches the ordered country lexicon; the first keyword
// hit wins.
func (e *RuleExtractor) ParseCountry(text string) (string, bool) {
	norm := strings.ToLower(text)
	for _, entry := range countryLexicon {
		if hasPhrase(norm, entry.Keyword) {
			return entry.Code, true
		}
	}
	return "", false
}

// ParseCity returns the city hint for the given country code, if the
// text names one of its lexicon cities.
func (e *RuleExtractor) ParseCity(text, countryCode string) (string, bool) {
	norm := strings.ToLower(text)
	for _, entry := range countryLexicon {
		if entry.City == "" || entry.Code != countryCode {
			continue
		}
		if hasPhrase(norm, entry.Keyword) {
			return entry.City, true
		}
	}
	return "", false
}

// ParseDuration checks season/term keywords first, then falls back to a
// "<number> <unit>" pattern where months count four weeks each.
func (e *RuleExtractor) ParseDuration(text string) (int, bool) {
	norm := strings.ToLower(text)
	for _, term := range durationTerms {
		if hasKeyword(norm, term.Keyword) {
			return term.Weeks, true
		}
	}
	m := durationPattern.FindStringSubmatch(norm)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	if strings.HasPrefix(m[2], "mes") || strings.HasPrefix(m[2], "month") {
		n *= monthWeeks
	}
	return n, true
}

// ParseGoal accepts the entire raw text verbatim as the goal when any
// motivational keyword is present. The keyword gates acceptance; it does
// not extract a sub-span.
func (e *RuleExtractor) ParseGoal(text string) (string, bool) {
	norm := strings.ToLower(text)
	for _, kw := range goalKeywords {
		if hasKeyword(norm, kw) {
			return strings.TrimSpace(text), true
		}
	}
	return "", false
}

// TopicRelevant reports whether the message belongs to the wizard at
// all: a country, duration, or program keyword is present, or a budget
// parses. Used to route empty-state messages to the generic responder.
func (e *RuleExtractor) TopicRelevant(text string) bool {
	norm := strings.ToLower(text)
	for _, entry := range countryLexicon {
		if hasPhrase(norm, entry.Keyword) {
			return true
		}
	}
	for _, term := range durationTerms {
		if hasKeyword(norm, term.Keyword) {
			return true
		}
	}
	for _, kw := range topicKeywords {
		if hasKeyword(norm, kw) {
			return true
		}
	}
	_, ok := e.ParseBudget(text)
	return ok
}
