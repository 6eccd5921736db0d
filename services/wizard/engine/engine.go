// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine ranks candidate programs against a complete slot set.
//
// The engine is deterministic and never raises business errors: an
// unknown country or a reference-data failure degrades to an empty
// result set, and only genuinely unexpected infrastructure problems are
// logged.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
	"github.com/tripscout-labs/tripscout/services/wizard/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("tripscout.wizard.engine")

// maxResults is how many candidates a comparison keeps.
const maxResults = 3

// Budget-fit and match-tier tags attached to comparison entries. Tags
// are stable machine tokens; the renderer localizes them.
const (
	TagInBudget      = "in-budget"
	TagOverBudget    = "over-budget"
	TagMatchVeryHigh = "match-very-high"
	TagMatchGood     = "match-good"
	TagCompromise    = "match-compromise"
	TagReferenceOnly = "match-reference-only"
)

// cityTagRules attach lifestyle tags from keyword matches on the
// candidate's city name. Purely string-keyword based, no geocoding.
var cityTagRules = []struct {
	Keyword string
	Tag     string
}{
	{Keyword: "oxford", Tag: "academic-hub"},
	{Keyword: "cambridge", Tag: "academic-hub"},
	{Keyword: "boston", Tag: "academic-hub"},
	{Keyword: "san diego", Tag: "outdoor-lifestyle"},
	{Keyword: "brisbane", Tag: "outdoor-lifestyle"},
	{Keyword: "gold coast", Tag: "outdoor-lifestyle"},
	{Keyword: "galway", Tag: "outdoor-lifestyle"},
	{Keyword: "sliema", Tag: "outdoor-lifestyle"},
	{Keyword: "london", Tag: "big-city"},
	{Keyword: "new york", Tag: "big-city"},
	{Keyword: "miami", Tag: "big-city"},
	{Keyword: "toronto", Tag: "big-city"},
	{Keyword: "vancouver", Tag: "big-city"},
	{Keyword: "sydney", Tag: "big-city"},
	{Keyword: "dublin", Tag: "big-city"},
}

// Engine scores and ranks candidate programs for a complete slot set.
type Engine struct {
	catalog Loader
	logger  *slog.Logger
}

// NewEngine creates an engine over the given reference-data loader.
func NewEngine(catalog Loader) *Engine {
	return &Engine{catalog: catalog, logger: slog.Default()}
}

// Compare loads the candidates for the input's country, derives totals
// and scores, sorts ascending by total cost, and keeps the top 3.
//
// Display order is by cost, NOT by match score. That ordering appears in
// every revision of the product flow and is kept on purpose; see
// DESIGN.md before changing it.
func (e *Engine) Compare(ctx context.Context, input datatypes.ComparisonInput) datatypes.ComparisonResult {
	ctx, span := tracer.Start(ctx, "Engine.Compare")
	defer span.End()
	span.SetAttributes(
		attribute.String("compare.country", input.CountryCode),
		attribute.Int("compare.budget", input.Budget),
		attribute.Int("compare.weeks", input.DurationWeeks),
	)

	programs, err := e.catalog.Load(ctx, input.CountryCode)
	if err != nil {
		// Infrastructure failure: log and degrade to an empty result.
		e.logger.Error("reference data load failed", "country", input.CountryCode, "error", err)
		observability.RecordComparison(input.CountryCode, false)
		return datatypes.ComparisonResult{}
	}
	if len(programs) == 0 {
		observability.RecordComparison(input.CountryCode, false)
		return datatypes.ComparisonResult{}
	}

	entries := make([]datatypes.ComparisonEntry, 0, len(programs))
	for _, p := range programs {
		tuition := p.TuitionPerWeek * input.DurationWeeks
		housing := p.HousingPerWeek * input.DurationWeeks
		total := tuition + housing + p.FixedFees
		entries = append(entries, datatypes.ComparisonEntry{
			Program:      p,
			TuitionTotal: tuition,
			HousingTotal: housing,
			Total:        total,
			FitsBudget:   total <= input.Budget,
			MatchScore:   MatchScore(total, input.Budget),
		})
	}

	// Cheapest first. Stable so equal totals keep reference-data order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Total < entries[j].Total
	})

	cityHintMissing := input.City != "" && !cityPresent(programs, input.City)

	if len(entries) > maxResults {
		entries = entries[:maxResults]
	}
	for i := range entries {
		entries[i].Tags = buildTags(entries[i])
	}

	observability.RecordComparison(input.CountryCode, true)
	span.SetAttributes(attribute.Int("compare.results", len(entries)))
	return datatypes.ComparisonResult{
		Entries:         entries,
		HasResults:      true,
		CityHintMissing: cityHintMissing,
	}
}

// MatchScore rates a candidate's total cost against the budget as a
// coarse step function. Ties are expected and acceptable; this is not a
// continuous metric.
func MatchScore(total, budget int) float64 {
	if total <= budget {
		return 5.0
	}
	ratio := float64(total-budget) / float64(budget)
	switch {
	case ratio < 0.10:
		return 4.5
	case ratio < 0.20:
		return 4.0
	case ratio < 0.30:
		return 3.5
	case ratio < 0.50:
		return 3.0
	default:
		return 2.5
	}
}

// buildTags assembles the ordered tag list for one entry: budget-fit
// tag, city keyword tags, match-tier tag.
func buildTags(entry datatypes.ComparisonEntry) []string {
	tags := make([]string, 0, 4)
	if entry.FitsBudget {
		tags = append(tags, TagInBudget)
	} else {
		tags = append(tags, TagOverBudget)
	}

	city := strings.ToLower(entry.Program.City)
	for _, rule := range cityTagRules {
		if strings.Contains(city, rule.Keyword) {
			tags = append(tags, rule.Tag)
		}
	}

	switch {
	case entry.MatchScore >= 4.5:
		tags = append(tags, TagMatchVeryHigh)
	case entry.MatchScore >= 4.0:
		tags = append(tags, TagMatchGood)
	case entry.MatchScore >= 3.5:
		tags = append(tags, TagCompromise)
	default:
		tags = append(tags, TagReferenceOnly)
	}
	return tags
}

// cityPresent reports a case-insensitive exact city match among all
// candidates for the country, before truncation to the top 3.
func cityPresent(programs []datatypes.CandidateProgram, city string) bool {
	for _, p := range programs {
		if strings.EqualFold(p.City, city) {
			return true
		}
	}
	return false
}
