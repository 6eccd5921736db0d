// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extract turns raw user text into wizard slot values.
//
// Two interchangeable strategies share one contract: RuleExtractor, a
// deterministic keyword/pattern parser, and DelegatedExtractor, which
// defers the whole turn decision to an external reasoning collaborator
// under a strict output schema. The active strategy is selected by
// configuration, not by parallel code paths.
package extract

import (
	"context"

	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
)

// Strategy names the active extraction implementation.
type Strategy string

const (
	StrategyRules     Strategy = "rules"
	StrategyDelegated Strategy = "delegated"
)

// Action is the turn-level decision attached to an extraction result.
type Action string

const (
	ActionNeedMore Action = "need_more"
	ActionReady    Action = "ready"
	ActionOffTopic Action = "off_topic"
)

// Decision is the outcome of one extraction pass.
//
// # Fields
//
//   - Slots: The merged state after this turn. For the rule strategy the
//     merge is first-write-wins over the prior state; the delegated
//     strategy may overwrite a slot on explicit user revision.
//   - Changed: Which slots this turn changed, for the controller's
//     verbatim-goal fallback and for metrics.
//   - Action: need_more, ready, or off_topic.
//   - UserMessage: Delegated strategy only; the collaborator's own reply
//     text for need_more and off_topic turns. Empty for the rule
//     strategy, where the renderer builds the prompt.
type Decision struct {
	Slots       datatypes.WizardState
	Changed     []datatypes.Slot
	Action      Action
	UserMessage string
}

// Extractor is the single slot-extraction contract shared by both
// strategies.
//
// ExtractTurn must not mutate current. A non-nil error means the
// extraction could not be trusted at all; the caller applies the safe
// "need_more, slots unchanged, generic re-prompt" fallback instead of
// failing the turn.
type Extractor interface {
	Strategy() Strategy
	ExtractTurn(ctx context.Context, text string, current datatypes.WizardState) (Decision, error)
}

// classify derives the mechanical action for a merged state: off-topic
// when nothing is known and the text is not wizard-relevant, ready when
// all four required slots are set, need_more otherwise.
func classify(merged datatypes.WizardState, topicRelevant bool) Action {
	if merged.Empty() && !topicRelevant {
		return ActionOffTopic
	}
	if merged.Complete() {
		return ActionReady
	}
	return ActionNeedMore
}
