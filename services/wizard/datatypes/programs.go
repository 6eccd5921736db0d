// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the wizard service.
//
// This file contains the reference-data and comparison result types.
// CandidateProgram records are externally supplied per country and are
// immutable for the duration of a comparison.
package datatypes

// CandidateProgram is one reference-data entry for a country: a school
// or location with weekly costs and fixed fees.
type CandidateProgram struct {
	Name           string `json:"name" yaml:"name"`
	City           string `json:"city" yaml:"city"`
	TuitionPerWeek int    `json:"tuition_per_week" yaml:"tuition_per_week"`
	HousingPerWeek int    `json:"housing_per_week" yaml:"housing_per_week"`
	FixedFees      int    `json:"fixed_fees" yaml:"fixed_fees"`
	Notes          string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// ComparisonInput is a complete slot set handed to the comparison engine.
type ComparisonInput struct {
	Budget        int    `json:"budget" validate:"required,gt=0"`
	CountryCode   string `json:"country_code" validate:"required"`
	DurationWeeks int    `json:"duration_weeks" validate:"required,gt=0"`
	Goal          string `json:"goal" validate:"required"`
	City          string `json:"city,omitempty"`
}

// InputFromState builds a ComparisonInput from a complete WizardState.
func InputFromState(w WizardState) ComparisonInput {
	return ComparisonInput{
		Budget:        w.Budget,
		CountryCode:   w.CountryCode,
		DurationWeeks: w.DurationWeeks,
		Goal:          w.Goal,
		City:          w.City,
	}
}

// ComparisonEntry is one scored, tagged candidate in a comparison result.
//
// MatchScore is a coarse step function over the cost/budget ratio; ties
// are expected. Tags are ordered: budget-fit tag first, then city keyword
// tags, then the match-tier tag.
type ComparisonEntry struct {
	Program      CandidateProgram `json:"program"`
	TuitionTotal int              `json:"tuition_total"`
	HousingTotal int              `json:"housing_total"`
	Total        int              `json:"total"`
	FitsBudget   bool             `json:"fits_budget"`
	MatchScore   float64          `json:"match_score"`
	Tags         []string         `json:"tags"`
}

// ComparisonResult is the ordered output of one comparison run.
// Entries are sorted ascending by Total (cheapest first), independent of
// MatchScore ordering.
type ComparisonResult struct {
	Entries         []ComparisonEntry `json:"entries"`
	HasResults      bool              `json:"has_results"`
	CityHintMissing bool              `json:"city_hint_missing,omitempty"`
}
