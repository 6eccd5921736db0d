// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package dialogue owns the turn lifecycle: load session, gate on quota,
// extract, merge, route to the engine or a follow-up question, persist.
//
// # Thread Safety
//
// The controller is safe for concurrent use. Turns for one session id
// are serialized through the store's keyed lock, so each session sees a
// strict turn order; turns for different sessions run in parallel.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tripscout-labs/tripscout/services/llm"
	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
	"github.com/tripscout-labs/tripscout/services/wizard/engine"
	"github.com/tripscout-labs/tripscout/services/wizard/extract"
	"github.com/tripscout-labs/tripscout/services/wizard/observability"
	"github.com/tripscout-labs/tripscout/services/wizard/render"
	"github.com/tripscout-labs/tripscout/services/wizard/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("tripscout.wizard.dialogue")

// ErrResponderUnavailable is returned when an off-topic turn needed the
// free-text responder and the call failed. The session is not persisted
// on this path; the client may simply retry the turn.
var ErrResponderUnavailable = errors.New("responder unavailable")

// responderSystemPrompt steers the free-text responder on off-topic
// turns. Kept short on purpose; the reply budget is one paragraph.
const responderSystemPrompt = "You are a friendly assistant for a study-trip " +
	"planning service. The user said something unrelated to planning a trip. " +
	"Reply briefly and courteously in the user's language, then gently steer " +
	"the conversation back to their trip: budget, destination, duration, and " +
	"what they want to get out of it. One short paragraph, no lists."

// Controller drives one wizard turn end to end.
type Controller struct {
	store     store.SessionStore
	extractor extract.Extractor
	engine    *engine.Engine
	renderer  *render.Renderer
	responder llm.ChatClient // optional; nil falls back to a canned nudge
	logger    *slog.Logger
	quota     int
}

// Config wires the controller's collaborators. Responder may be nil.
type Config struct {
	Store     store.SessionStore
	Extractor extract.Extractor
	Engine    *engine.Engine
	Renderer  *render.Renderer
	Responder llm.ChatClient
	Logger    *slog.Logger
	TurnQuota int
}

// NewController creates a dialogue controller.
func NewController(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	quota := cfg.TurnQuota
	if quota <= 0 {
		quota = datatypes.DefaultTurnQuota
	}
	return &Controller{
		store:     cfg.Store,
		extractor: cfg.Extractor,
		engine:    cfg.Engine,
		renderer:  cfg.Renderer,
		responder: cfg.Responder,
		logger:    logger,
		quota:     quota,
	}
}

// HandleTurn processes one user turn and returns the reply.
//
// # Description
//
// The turn pipeline is: lock the session id, load or create the
// session, gate on the turn quota, run the extractor, merge slots,
// then route on the action: ask for the next missing slot, answer an
// off-topic message, or run the comparison and deliver results. Only
// a responder failure surfaces as an error; every other degradation
// (extractor failure, empty comparison) turns into a safe reply with
// the state preserved.
func (c *Controller) HandleTurn(ctx context.Context, req datatypes.TurnRequest) (datatypes.TurnResponse, error) {
	ctx, span := tracer.Start(ctx, "Controller.HandleTurn")
	defer span.End()
	span.SetAttributes(
		attribute.String("turn.session_id", req.SessionID),
		attribute.String("turn.strategy", string(c.extractor.Strategy())),
	)

	unlock := c.store.Lock(req.SessionID)
	defer unlock()

	session, err := c.store.Get(ctx, req.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		session = datatypes.NewSession(req.SessionID, c.quota)
	} else if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session load failed")
		observability.RecordTurn("error")
		return datatypes.TurnResponse{}, fmt.Errorf("failed to load session: %w", err)
	}
	if req.Locale != "" {
		session.Locale = req.Locale
	}
	locale := session.Locale

	// Quota gate. Checked before any mutation so an exhausted session
	// never changes state again, no matter what the message says.
	if session.QuotaExhausted() {
		observability.RecordTurn("limit_reached")
		span.SetAttributes(attribute.String("turn.outcome", "limit_reached"))
		return datatypes.NewTurnResponse(session.SessionID, datatypes.TurnTypeLimitReached,
			c.renderer.LimitReached(locale)), nil
	}
	session.Touch()

	prior := session.State
	decision, err := c.extractor.ExtractTurn(ctx, req.Message, prior)
	if err != nil {
		// Untrusted extraction: keep the slots, re-prompt, count the turn.
		c.logger.Warn("extraction discarded",
			"session_id", session.SessionID,
			"strategy", c.extractor.Strategy(),
			"error", err)
		span.RecordError(err)
		if err := c.store.Put(ctx, session); err != nil {
			observability.RecordTurn("error")
			return datatypes.TurnResponse{}, fmt.Errorf("failed to persist session: %w", err)
		}
		observability.RecordTurn("ask_more")
		return datatypes.NewTurnResponse(session.SessionID, datatypes.TurnTypeOK,
			c.renderer.Reprompt(locale)), nil
	}

	// Verbatim-goal fallback, rule strategy only: when the wizard just
	// asked for the goal and the parser filled no required slot from the
	// answer, the answer itself is the goal. A city hint picked up along
	// the way does not block the fallback and survives the merge.
	if c.extractor.Strategy() == extract.StrategyRules &&
		decision.Slots.Goal == "" && !requiredSlotChanged(decision.Changed) {
		if missing, ok := prior.NextMissing(); ok && missing == datatypes.SlotGoal {
			if goal := strings.TrimSpace(req.Message); goal != "" {
				decision.Slots.Goal = goal
				decision.Changed = append(decision.Changed, datatypes.SlotGoal)
				decision.Action = extract.ActionReady
			}
		}
	}

	session.State = decision.Slots
	for _, slot := range decision.Changed {
		observability.RecordSlotFill(string(slot), string(c.extractor.Strategy()))
	}

	var (
		reply     string
		ctaMarker string
		outcome   string
	)
	switch decision.Action {
	case extract.ActionOffTopic:
		reply, err = c.respondOffTopic(ctx, req.Message, decision, locale)
		if err != nil {
			// State deliberately not persisted: the turn did not happen.
			span.RecordError(err)
			span.SetStatus(codes.Error, "responder failed")
			observability.RecordTurn("error")
			return datatypes.TurnResponse{}, ErrResponderUnavailable
		}
		outcome = "off_topic"

	case extract.ActionReady:
		result := c.engine.Compare(ctx, datatypes.InputFromState(session.State))
		if result.HasResults {
			reply, ctaMarker = c.renderer.Comparison(locale, datatypes.InputFromState(session.State), result)
			// Delivered results close the wizard round; the next turn
			// starts a fresh slot set on the same session.
			session.State.Reset()
		} else {
			// Zero candidates is a normal outcome. The slots survive so
			// the user can adjust one parameter and retry.
			reply = c.renderer.NoMatch(locale)
		}
		outcome = "ready"

	default: // extract.ActionNeedMore
		reply = decision.UserMessage
		if reply == "" {
			missing, ok := session.State.NextMissing()
			if !ok {
				// Should not happen: need_more with a complete state.
				missing = datatypes.SlotGoal
			}
			reply = c.renderer.AskMore(locale, session.State, missing)
		}
		outcome = "ask_more"
	}

	if err := c.store.Put(ctx, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session persist failed")
		observability.RecordTurn("error")
		return datatypes.TurnResponse{}, fmt.Errorf("failed to persist session: %w", err)
	}

	observability.RecordTurn(outcome)
	span.SetAttributes(attribute.String("turn.outcome", outcome))
	resp := datatypes.NewTurnResponse(session.SessionID, datatypes.TurnTypeOK, reply)
	resp.CTAMarker = ctaMarker
	return resp, nil
}

// requiredSlotChanged reports whether the turn filled any of the three
// required slots: budget, country, or duration.
func requiredSlotChanged(changed []datatypes.Slot) bool {
	for _, slot := range changed {
		switch slot {
		case datatypes.SlotBudget, datatypes.SlotCountry, datatypes.SlotDuration:
			return true
		}
	}
	return false
}

// respondOffTopic answers a message unrelated to the wizard. The
// delegated strategy ships its own reply; otherwise the configured
// responder is asked, and with no responder a canned nudge is used.
func (c *Controller) respondOffTopic(ctx context.Context, message string, decision extract.Decision, locale string) (string, error) {
	if decision.UserMessage != "" {
		return decision.UserMessage, nil
	}
	if c.responder == nil {
		return c.renderer.OffTopic(locale), nil
	}
	reply, err := c.responder.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: responderSystemPrompt},
		{Role: llm.RoleUser, Content: message},
	}, llm.GenerationParams{})
	if err != nil {
		return "", fmt.Errorf("responder chat failed: %w", err)
	}
	return reply, nil
}

// Session returns the stored session for id, or store.ErrNotFound.
func (c *Controller) Session(ctx context.Context, id string) (*datatypes.Session, error) {
	return c.store.Get(ctx, id)
}

// DeleteSession removes the session for id. Missing ids are a no-op.
func (c *Controller) DeleteSession(ctx context.Context, id string) error {
	unlock := c.store.Lock(id)
	defer unlock()
	return c.store.Delete(ctx, id)
}
