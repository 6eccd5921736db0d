// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripscout-labs/tripscout/services/llm"
	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
)

// mockChatClient implements llm.ChatClient for extractor testing.
type mockChatClient struct {
	response string
	err      error
	lastMsgs []llm.Message
}

func (m *mockChatClient) Chat(ctx context.Context, messages []llm.Message, params llm.GenerationParams) (string, error) {
	m.lastMsgs = messages
	return m.response, m.err
}

func newTestExtractor(t *testing.T, client llm.ChatClient) *DelegatedExtractor {
	t.Helper()
	e, err := NewDelegatedExtractor(client, DefaultDelegatedConfig())
	require.NoError(t, err)
	return e
}

func TestNewDelegatedExtractorRequiresClient(t *testing.T) {
	_, err := NewDelegatedExtractor(nil, DefaultDelegatedConfig())
	assert.Error(t, err)
}

func TestDelegatedExtractTurnSuccess(t *testing.T) {
	client := &mockChatClient{
		response: `{"updated_slots": {"budget": 9000, "country_code": "uk", "duration_weeks": 0, "goal": "", "city": ""}, "action": "need_more", "user_message": "Per quanto tempo vorresti partire?"}`,
	}
	e := newTestExtractor(t, client)

	decision, err := e.ExtractTurn(context.Background(), "9k per il Regno Unito", datatypes.WizardState{})
	require.NoError(t, err)

	assert.Equal(t, 9000, decision.Slots.Budget)
	assert.Equal(t, "uk", decision.Slots.CountryCode)
	assert.Equal(t, ActionNeedMore, decision.Action)
	assert.Equal(t, "Per quanto tempo vorresti partire?", decision.UserMessage)
	assert.ElementsMatch(t, []datatypes.Slot{datatypes.SlotBudget, datatypes.SlotCountry}, decision.Changed)

	// The collaborator sees the current slots in the user turn.
	require.Len(t, client.lastMsgs, 2)
	assert.Equal(t, llm.RoleSystem, client.lastMsgs[0].Role)
	assert.Contains(t, client.lastMsgs[1].Content, "Current slots:")
}

func TestDelegatedExtractTurnStripsMarkdownFences(t *testing.T) {
	client := &mockChatClient{
		response: "```json\n{\"updated_slots\": {\"budget\": 4000, \"country_code\": \"\", \"duration_weeks\": 0, \"goal\": \"\", \"city\": \"\"}, \"action\": \"need_more\", \"user_message\": \"ok\"}\n```",
	}
	e := newTestExtractor(t, client)

	decision, err := e.ExtractTurn(context.Background(), "4000", datatypes.WizardState{})
	require.NoError(t, err)
	assert.Equal(t, 4000, decision.Slots.Budget)
}

func TestDelegatedExtractTurnAllowsOverwrite(t *testing.T) {
	client := &mockChatClient{
		response: `{"updated_slots": {"budget": 9000, "country_code": "ie", "duration_weeks": 12, "goal": "esame", "city": "Dublin"}, "action": "ready", "user_message": "Perfetto!"}`,
	}
	e := newTestExtractor(t, client)

	current := datatypes.WizardState{Budget: 9000, CountryCode: "uk", DurationWeeks: 12, Goal: "esame"}
	decision, err := e.ExtractTurn(context.Background(), "non Londra, Dublino!", current)
	require.NoError(t, err)

	assert.Equal(t, "ie", decision.Slots.CountryCode)
	assert.Equal(t, ActionReady, decision.Action)
	assert.Contains(t, decision.Changed, datatypes.SlotCountry)
	assert.Contains(t, decision.Changed, datatypes.SlotCity)
}

func TestDelegatedExtractTurnRejectsBadReplies(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"empty response", ""},
		{"no json object", "sure, happy to help!"},
		{"malformed json", `{"updated_slots": {`},
		{"missing action", `{"updated_slots": {"budget": 0, "country_code": "", "duration_weeks": 0, "goal": "", "city": ""}, "user_message": "x"}`},
		{"unknown action", `{"updated_slots": {"budget": 0, "country_code": "", "duration_weeks": 0, "goal": "", "city": ""}, "action": "maybe", "user_message": "x"}`},
		{"negative budget", `{"updated_slots": {"budget": -5, "country_code": "", "duration_weeks": 0, "goal": "", "city": ""}, "action": "need_more", "user_message": "x"}`},
		{"duration out of range", `{"updated_slots": {"budget": 0, "country_code": "", "duration_weeks": 300, "goal": "", "city": ""}, "action": "need_more", "user_message": "x"}`},
		{"unsupported country", `{"updated_slots": {"budget": 0, "country_code": "jp", "duration_weeks": 0, "goal": "", "city": ""}, "action": "need_more", "user_message": "x"}`},
		{"ready with incomplete slots", `{"updated_slots": {"budget": 9000, "country_code": "uk", "duration_weeks": 0, "goal": "", "city": ""}, "action": "ready", "user_message": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor(t, &mockChatClient{response: tt.response})
			_, err := e.ExtractTurn(context.Background(), "hello", datatypes.WizardState{})
			assert.Error(t, err)
		})
	}
}

func TestDelegatedExtractTurnChatError(t *testing.T) {
	e := newTestExtractor(t, &mockChatClient{err: errors.New("connection refused")})
	_, err := e.ExtractTurn(context.Background(), "hello", datatypes.WizardState{})
	assert.Error(t, err)
}
