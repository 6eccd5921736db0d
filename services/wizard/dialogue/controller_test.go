// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripscout-labs/tripscout/services/llm"
	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
	"github.com/tripscout-labs/tripscout/services/wizard/engine"
	"github.com/tripscout-labs/tripscout/services/wizard/extract"
	"github.com/tripscout-labs/tripscout/services/wizard/render"
	"github.com/tripscout-labs/tripscout/services/wizard/store"
)

// =============================================================================
// Test doubles
// =============================================================================

// stubLoader implements engine.Loader with a fixed program list.
type stubLoader struct {
	programs []datatypes.CandidateProgram
}

func (s *stubLoader) Load(_ context.Context, _ string) ([]datatypes.CandidateProgram, error) {
	return s.programs, nil
}

// stubExtractor returns a canned decision or error, recording the state
// it was handed.
type stubExtractor struct {
	strategy extract.Strategy
	decision extract.Decision
	err      error
	gotState datatypes.WizardState
}

func (s *stubExtractor) Strategy() extract.Strategy { return s.strategy }

func (s *stubExtractor) ExtractTurn(_ context.Context, _ string, current datatypes.WizardState) (extract.Decision, error) {
	s.gotState = current
	return s.decision, s.err
}

// mockResponder implements llm.ChatClient for off-topic turns.
type mockResponder struct {
	reply string
	err   error
}

func (m *mockResponder) Chat(_ context.Context, _ []llm.Message, _ llm.GenerationParams) (string, error) {
	return m.reply, m.err
}

func testTemplates() *render.Catalog {
	return render.NewStaticCatalog("it", map[string]map[string]string{
		"it": {
			"summary.prefix":    "Finora: %s.",
			"summary.budget":    "budget %d",
			"summary.country":   "paese %s",
			"summary.duration":  "%d settimane",
			"summary.goal":      "obiettivo %s",
			"summary.city":      "città %s",
			"ask.budget":        "Che budget hai?",
			"ask.country":       "In che paese?",
			"ask.duration":      "Per quanto tempo?",
			"ask.goal":          "Con che obiettivo?",
			"country.uk":        "Regno Unito",
			"results.header":    "Risultati per %s, %d settimane, %d EUR:",
			"results.block":     "%d. %s (%s) %d %d %d tot %d score %.1f [%s]",
			"results.notes":     "Nota: %s",
			"results.cityhint":  "Niente a %s.",
			"results.cta":       "Prenota una consulenza.",
			"results.nomatch":   "Nessun risultato, cambia un parametro.",
			"tag.in-budget":     "nel budget",
			"limit.reached":     "Limite raggiunto, prenota una consulenza.",
			"fallback.reprompt": "Puoi ripetere?",
			"offtopic.nudge":    "Parliamo del tuo viaggio!",
		},
	})
}

type controllerOpts struct {
	extractor extract.Extractor
	responder llm.ChatClient
	programs  []datatypes.CandidateProgram
	quota     int
}

func newTestController(t *testing.T, opts controllerOpts) (*Controller, store.SessionStore) {
	t.Helper()
	if opts.extractor == nil {
		opts.extractor = extract.NewRuleExtractor()
	}
	if opts.programs == nil {
		opts.programs = []datatypes.CandidateProgram{
			{Name: "London School", City: "London", TuitionPerWeek: 300, HousingPerWeek: 250, FixedFees: 200},
			{Name: "Brighton School", City: "Brighton", TuitionPerWeek: 200, HousingPerWeek: 150, FixedFees: 100},
		}
	}
	sessions := store.NewMemoryStore()
	ctrl := NewController(Config{
		Store:     sessions,
		Extractor: opts.extractor,
		Engine:    engine.NewEngine(&stubLoader{programs: opts.programs}),
		Renderer:  render.NewRenderer(testTemplates()),
		Responder: opts.responder,
		TurnQuota: opts.quota,
	})
	return ctrl, sessions
}

func turn(t *testing.T, ctrl *Controller, sessionID, message string) datatypes.TurnResponse {
	t.Helper()
	resp, err := ctrl.HandleTurn(context.Background(), datatypes.TurnRequest{
		SessionID: sessionID,
		Message:   message,
		Locale:    "it",
	})
	require.NoError(t, err)
	return resp
}

// =============================================================================
// Tests
// =============================================================================

func TestFullWizardConversation(t *testing.T) {
	ctrl, sessions := newTestController(t, controllerOpts{})

	resp := turn(t, ctrl, "conv-1", "Ciao, ho un budget di 9000 euro")
	assert.Equal(t, datatypes.TurnTypeOK, resp.Type)
	assert.Contains(t, resp.Reply, "In che paese?")
	assert.Contains(t, resp.Reply, "budget 9000")

	resp = turn(t, ctrl, "conv-1", "Regno Unito, direi 12 settimane")
	assert.Contains(t, resp.Reply, "Con che obiettivo?")
	assert.Contains(t, resp.Reply, "paese Regno Unito")

	resp = turn(t, ctrl, "conv-1", "preparare l'esame IELTS")
	assert.Contains(t, resp.Reply, "Risultati per Regno Unito, 12 settimane, 9000 EUR:")
	assert.Contains(t, resp.Reply, "Prenota una consulenza.")
	assert.Equal(t, render.CTAConsultation, resp.CTAMarker)
	// Cheapest candidate listed first.
	assert.Contains(t, resp.Reply, "1. Brighton School")

	// Results delivered: the slot set restarts, the session survives.
	session, err := sessions.Get(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.True(t, session.State.Empty())
	assert.Equal(t, 3, session.TurnCount)
}

func TestVerbatimGoalFallback(t *testing.T) {
	ctrl, _ := newTestController(t, controllerOpts{})

	turn(t, ctrl, "conv-2", "9000 euro per 12 settimane nel Regno Unito")
	// No goal keyword matches, but goal is the only missing slot: the
	// whole answer becomes the goal and the comparison runs.
	resp := turn(t, ctrl, "conv-2", "fare nuove amicizie")
	assert.Contains(t, resp.Reply, "Risultati per")
	assert.Equal(t, render.CTAConsultation, resp.CTAMarker)
}

func TestVerbatimGoalFallbackWithCityMention(t *testing.T) {
	ctrl, sessions := newTestController(t, controllerOpts{})

	turn(t, ctrl, "conv-12", "9000 euro per 12 settimane nel Regno Unito")
	// The answer to the goal question names a known city. That fills the
	// optional city hint only; the answer must still become the goal
	// instead of the wizard re-asking for it.
	resp := turn(t, ctrl, "conv-12", "Un periodo a Brighton")
	assert.Contains(t, resp.Reply, "Risultati per Regno Unito, 12 settimane, 9000 EUR:")
	assert.Equal(t, render.CTAConsultation, resp.CTAMarker)
	// The city hint survived the fallback: Brighton has a candidate, so
	// no missing-city note appears.
	assert.NotContains(t, resp.Reply, "Niente a")

	session, err := sessions.Get(context.Background(), "conv-12")
	require.NoError(t, err)
	assert.True(t, session.State.Empty())
}

func TestQuotaGateBlocksMutation(t *testing.T) {
	ctrl, sessions := newTestController(t, controllerOpts{quota: 1})

	resp := turn(t, ctrl, "conv-3", "ho 9000 euro")
	assert.Equal(t, datatypes.TurnTypeOK, resp.Type)

	// Quota spent: the reply flips to limit_reached and nothing changes.
	resp = turn(t, ctrl, "conv-3", "Regno Unito per 12 settimane")
	assert.Equal(t, datatypes.TurnTypeLimitReached, resp.Type)
	assert.Contains(t, resp.Reply, "Limite raggiunto")

	session, err := sessions.Get(context.Background(), "conv-3")
	require.NoError(t, err)
	assert.Equal(t, 1, session.TurnCount)
	assert.Equal(t, 9000, session.State.Budget)
	assert.Empty(t, session.State.CountryCode)

	// Still blocked on the next attempt.
	resp = turn(t, ctrl, "conv-3", "e adesso?")
	assert.Equal(t, datatypes.TurnTypeLimitReached, resp.Type)
}

func TestEmptyComparisonPreservesState(t *testing.T) {
	ctrl, sessions := newTestController(t, controllerOpts{
		programs: []datatypes.CandidateProgram{},
	})

	turn(t, ctrl, "conv-4", "9000 euro per 12 settimane nel Regno Unito")
	resp := turn(t, ctrl, "conv-4", "preparare un esame")

	assert.Equal(t, datatypes.TurnTypeOK, resp.Type)
	assert.Contains(t, resp.Reply, "Nessun risultato")
	assert.Empty(t, resp.CTAMarker)

	// The filled slots survive so one amended parameter can retry.
	session, err := sessions.Get(context.Background(), "conv-4")
	require.NoError(t, err)
	assert.True(t, session.State.Complete())
}

func TestOffTopicWithoutResponder(t *testing.T) {
	ctrl, _ := newTestController(t, controllerOpts{})

	resp := turn(t, ctrl, "conv-5", "che tempo fa oggi?")
	assert.Equal(t, "Parliamo del tuo viaggio!", resp.Reply)
}

func TestOffTopicWithResponder(t *testing.T) {
	ctrl, _ := newTestController(t, controllerOpts{
		responder: &mockResponder{reply: "Bella giornata! Ma parliamo del viaggio."},
	})

	resp := turn(t, ctrl, "conv-6", "che tempo fa oggi?")
	assert.Equal(t, "Bella giornata! Ma parliamo del viaggio.", resp.Reply)
}

func TestOffTopicResponderFailure(t *testing.T) {
	ctrl, sessions := newTestController(t, controllerOpts{
		responder: &mockResponder{err: errors.New("backend down")},
	})

	_, err := ctrl.HandleTurn(context.Background(), datatypes.TurnRequest{
		SessionID: "conv-7",
		Message:   "che tempo fa oggi?",
	})
	assert.ErrorIs(t, err, ErrResponderUnavailable)

	// The failed turn was never persisted.
	_, err = sessions.Get(context.Background(), "conv-7")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExtractorFailureFallsBackToReprompt(t *testing.T) {
	failing := &stubExtractor{
		strategy: extract.StrategyDelegated,
		err:      errors.New("model returned garbage"),
	}
	ctrl, sessions := newTestController(t, controllerOpts{extractor: failing})

	resp := turn(t, ctrl, "conv-8", "vorrei partire")
	assert.Equal(t, datatypes.TurnTypeOK, resp.Type)
	assert.Equal(t, "Puoi ripetere?", resp.Reply)

	// The turn counts against the quota but the slots are untouched.
	session, err := sessions.Get(context.Background(), "conv-8")
	require.NoError(t, err)
	assert.Equal(t, 1, session.TurnCount)
	assert.True(t, session.State.Empty())
}

func TestDelegatedUserMessagePreferred(t *testing.T) {
	delegated := &stubExtractor{
		strategy: extract.StrategyDelegated,
		decision: extract.Decision{
			Slots:       datatypes.WizardState{Budget: 9000},
			Changed:     []datatypes.Slot{datatypes.SlotBudget},
			Action:      extract.ActionNeedMore,
			UserMessage: "Ottimo, 9000 euro! E dove vorresti andare?",
		},
	}
	ctrl, _ := newTestController(t, controllerOpts{extractor: delegated})

	resp := turn(t, ctrl, "conv-9", "9k")
	assert.Equal(t, "Ottimo, 9000 euro! E dove vorresti andare?", resp.Reply)
}

func TestVerbatimGoalFallbackIsRulesOnly(t *testing.T) {
	// A delegated turn with no changes and goal missing must NOT trigger
	// the verbatim fallback; the collaborator's own question wins.
	prior := datatypes.WizardState{Budget: 9000, CountryCode: "uk", DurationWeeks: 12}
	delegated := &stubExtractor{
		strategy: extract.StrategyDelegated,
		decision: extract.Decision{
			Slots:       prior,
			Action:      extract.ActionNeedMore,
			UserMessage: "Qual è il tuo obiettivo?",
		},
	}
	ctrl, sessions := newTestController(t, controllerOpts{extractor: delegated})
	seed := datatypes.NewSession("conv-10", 20)
	seed.State = prior
	require.NoError(t, sessions.Put(context.Background(), seed))

	resp := turn(t, ctrl, "conv-10", "boh, non so")
	assert.Equal(t, "Qual è il tuo obiettivo?", resp.Reply)
	assert.Empty(t, resp.CTAMarker)
}

func TestSessionLifecycle(t *testing.T) {
	ctrl, _ := newTestController(t, controllerOpts{})
	ctx := context.Background()

	turn(t, ctrl, "conv-11", "ho 9000 euro")
	session, err := ctrl.Session(ctx, "conv-11")
	require.NoError(t, err)
	assert.Equal(t, 9000, session.State.Budget)

	require.NoError(t, ctrl.DeleteSession(ctx, "conv-11"))
	_, err = ctrl.Session(ctx, "conv-11")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
