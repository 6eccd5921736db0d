// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package render formats controller and engine output into display
// text. Rendering is deterministic and side-effect-free; the text
// templates themselves come from the locale catalog.
package render

import (
	"fmt"
	"strings"

	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
)

// CTAConsultation marks replies that end with the consultation
// call-to-action block.
const CTAConsultation = "consultation"

// Renderer turns wizard outcomes into reply text for one locale.
type Renderer struct {
	catalog *Catalog
}

// NewRenderer creates a renderer over the given template catalog.
func NewRenderer(catalog *Catalog) *Renderer {
	return &Renderer{catalog: catalog}
}

// AskMore builds the prompt for the next missing slot, prefaced with a
// summary of what is already known so nothing is re-asked.
func (r *Renderer) AskMore(locale string, state datatypes.WizardState, missing datatypes.Slot) string {
	locale = r.catalog.Resolve(locale)
	var sb strings.Builder
	if summary := r.summary(locale, state); summary != "" {
		sb.WriteString(fmt.Sprintf(r.catalog.Get(locale, "summary.prefix"), summary))
		sb.WriteString("\n")
	}
	sb.WriteString(r.catalog.Get(locale, "ask."+string(missing)))
	return sb.String()
}

// Comparison renders a non-empty comparison result: header, one block
// per candidate, optional closest-alternative note, CTA line. Returns
// the reply and the CTA marker.
func (r *Renderer) Comparison(locale string, input datatypes.ComparisonInput, result datatypes.ComparisonResult) (string, string) {
	locale = r.catalog.Resolve(locale)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(r.catalog.Get(locale, "results.header"),
		r.CountryName(locale, input.CountryCode), input.DurationWeeks, input.Budget))
	sb.WriteString("\n")

	for i, entry := range result.Entries {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf(r.catalog.Get(locale, "results.block"),
			i+1,
			entry.Program.Name,
			entry.Program.City,
			entry.TuitionTotal,
			entry.HousingTotal,
			entry.Program.FixedFees,
			entry.Total,
			entry.MatchScore,
			r.tagLine(locale, entry.Tags),
		))
		sb.WriteString("\n")
		if entry.Program.Notes != "" {
			sb.WriteString(fmt.Sprintf(r.catalog.Get(locale, "results.notes"), entry.Program.Notes))
			sb.WriteString("\n")
		}
	}

	if result.CityHintMissing {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf(r.catalog.Get(locale, "results.cityhint"), input.City))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(r.catalog.Get(locale, "results.cta"))
	return sb.String(), CTAConsultation
}

// NoMatch renders the zero-candidate reply. The wizard state survives
// this path, so the text invites adjusting a single parameter.
func (r *Renderer) NoMatch(locale string) string {
	locale = r.catalog.Resolve(locale)
	return r.catalog.Get(locale, "results.nomatch")
}

// LimitReached renders the quota-exhausted reply.
func (r *Renderer) LimitReached(locale string) string {
	locale = r.catalog.Resolve(locale)
	return r.catalog.Get(locale, "limit.reached")
}

// OffTopic nudges an off-topic conversation back to trip planning. Used
// when no free-text responder is configured.
func (r *Renderer) OffTopic(locale string) string {
	locale = r.catalog.Resolve(locale)
	return r.catalog.Get(locale, "offtopic.nudge")
}

// Reprompt is the generic re-prompt used when the delegated extractor's
// output had to be discarded.
func (r *Renderer) Reprompt(locale string) string {
	locale = r.catalog.Resolve(locale)
	return r.catalog.Get(locale, "fallback.reprompt")
}

// CountryName localizes a destination code for display.
func (r *Renderer) CountryName(locale, code string) string {
	return r.catalog.Get(locale, "country."+code)
}

// summary lists the filled slots in priority order.
func (r *Renderer) summary(locale string, state datatypes.WizardState) string {
	var parts []string
	for _, slot := range state.Filled() {
		switch slot {
		case datatypes.SlotBudget:
			parts = append(parts, fmt.Sprintf(r.catalog.Get(locale, "summary.budget"), state.Budget))
		case datatypes.SlotCountry:
			parts = append(parts, fmt.Sprintf(r.catalog.Get(locale, "summary.country"), r.CountryName(locale, state.CountryCode)))
		case datatypes.SlotDuration:
			parts = append(parts, fmt.Sprintf(r.catalog.Get(locale, "summary.duration"), state.DurationWeeks))
		case datatypes.SlotGoal:
			parts = append(parts, fmt.Sprintf(r.catalog.Get(locale, "summary.goal"), state.Goal))
		case datatypes.SlotCity:
			parts = append(parts, fmt.Sprintf(r.catalog.Get(locale, "summary.city"), state.City))
		}
	}
	return strings.Join(parts, ", ")
}

// tagLine localizes and joins an entry's tags.
func (r *Renderer) tagLine(locale string, tags []string) string {
	labels := make([]string, 0, len(tags))
	for _, tag := range tags {
		labels = append(labels, r.catalog.Get(locale, "tag."+tag))
	}
	return strings.Join(labels, " · ")
}
