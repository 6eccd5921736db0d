// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the wizard service.
//
// This file contains the per-session wizard record: the slot set the
// dialogue fills across turns, and the session envelope that carries it.
package datatypes

import "time"

// Slot identifies one of the wizard parameters.
type Slot string

const (
	SlotBudget   Slot = "budget"
	SlotCountry  Slot = "country"
	SlotDuration Slot = "duration"
	SlotGoal     Slot = "goal"
	SlotCity     Slot = "city"
)

// DefaultTurnQuota is the number of turns a session may use before
// further slot mutation is blocked.
const DefaultTurnQuota = 20

// WizardState holds the trip parameters collected so far for one session.
//
// # Description
//
// A zero value means "unset" for every slot. Budget is a whole currency
// amount, DurationWeeks a positive week count, CountryCode one of the
// configured destination codes, Goal the user's own words. City is an
// optional hint and is never required for the wizard to complete.
//
// # Merge Semantics
//
// Under the rule-based strategy a slot is first-write-wins: once set it is
// never overwritten until Reset. The delegated strategy may replace a slot
// when the user clearly revises it; that replacement happens upstream and
// arrives here as a whole new state.
type WizardState struct {
	Budget        int    `json:"budget" validate:"gte=0"`
	CountryCode   string `json:"country_code"`
	DurationWeeks int    `json:"duration_weeks" validate:"gte=0"`
	Goal          string `json:"goal"`
	City          string `json:"city,omitempty"`
}

// Merge applies deltas first-write-wins and reports which slots changed.
// Zero-valued fields in delta are ignored.
func (w *WizardState) Merge(delta WizardState) []Slot {
	var changed []Slot
	if w.Budget == 0 && delta.Budget > 0 {
		w.Budget = delta.Budget
		changed = append(changed, SlotBudget)
	}
	if w.CountryCode == "" && delta.CountryCode != "" {
		w.CountryCode = delta.CountryCode
		changed = append(changed, SlotCountry)
	}
	if w.DurationWeeks == 0 && delta.DurationWeeks > 0 {
		w.DurationWeeks = delta.DurationWeeks
		changed = append(changed, SlotDuration)
	}
	if w.Goal == "" && delta.Goal != "" {
		w.Goal = delta.Goal
		changed = append(changed, SlotGoal)
	}
	if w.City == "" && delta.City != "" {
		w.City = delta.City
		changed = append(changed, SlotCity)
	}
	return changed
}

// Complete reports whether all four required slots are filled.
// City is a hint, not a requirement.
func (w *WizardState) Complete() bool {
	return w.Budget > 0 && w.CountryCode != "" && w.DurationWeeks > 0 && w.Goal != ""
}

// Empty reports whether no slot has been set yet.
func (w *WizardState) Empty() bool {
	return w.Budget == 0 && w.CountryCode == "" && w.DurationWeeks == 0 &&
		w.Goal == "" && w.City == ""
}

// NextMissing returns the first unfilled required slot in the fixed
// priority order budget > country > duration > goal, and false when
// the state is complete.
func (w *WizardState) NextMissing() (Slot, bool) {
	switch {
	case w.Budget == 0:
		return SlotBudget, true
	case w.CountryCode == "":
		return SlotCountry, true
	case w.DurationWeeks == 0:
		return SlotDuration, true
	case w.Goal == "":
		return SlotGoal, true
	}
	return "", false
}

// Filled returns the slots currently set, in priority order. Used to
// preface prompts with a summary so nothing is re-asked.
func (w *WizardState) Filled() []Slot {
	var filled []Slot
	if w.Budget > 0 {
		filled = append(filled, SlotBudget)
	}
	if w.CountryCode != "" {
		filled = append(filled, SlotCountry)
	}
	if w.DurationWeeks > 0 {
		filled = append(filled, SlotDuration)
	}
	if w.Goal != "" {
		filled = append(filled, SlotGoal)
	}
	if w.City != "" {
		filled = append(filled, SlotCity)
	}
	return filled
}

// Reset clears every slot. Called only after a comparison with results
// has been delivered; a zero-result comparison leaves the state intact
// so the user can amend one parameter and retry.
func (w *WizardState) Reset() {
	*w = WizardState{}
}

// Session is the per-session envelope stored in the session store.
type Session struct {
	SessionID string      `json:"session_id"`
	TurnCount int         `json:"turn_count"`
	Quota     int         `json:"quota"`
	Locale    string      `json:"locale,omitempty"`
	State     WizardState `json:"state"`
	UpdatedAt int64       `json:"updated_at"`
	CreatedAt int64       `json:"created_at"`
}

// NewSession creates a session with the given quota. A quota of 0 falls
// back to DefaultTurnQuota.
func NewSession(id string, quota int) *Session {
	if quota <= 0 {
		quota = DefaultTurnQuota
	}
	now := time.Now().UnixMilli()
	return &Session{
		SessionID: id,
		Quota:     quota,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// QuotaExhausted reports whether the session has used all its turns.
func (s *Session) QuotaExhausted() bool {
	return s.TurnCount >= s.Quota
}

// Touch bumps the turn counter and the update timestamp.
func (s *Session) Touch() {
	s.TurnCount++
	s.UpdatedAt = time.Now().UnixMilli()
}
