// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tripscout-labs/tripscout/services/llm"
	"github.com/tripscout-labs/tripscout/services/wizard/datatypes"
	"github.com/tripscout-labs/tripscout/services/wizard/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("tripscout.wizard.extract")

// DelegatedExtractor defers slot extraction and the whole turn decision
// to an external reasoning collaborator.
//
// # Description
//
// One blocking chat call per turn. The collaborator receives the current
// slots and the raw message and must answer with a strict JSON object
// {updated_slots, action, user_message}. Anything that deviates from the
// schema — transport error, timeout, malformed JSON, invalid action,
// out-of-range slot values, "ready" with incomplete slots — is never
// merged into state: ExtractTurn returns an error and the caller applies
// the safe "need_more, slots unchanged, generic re-prompt" fallback.
//
// Unlike the rule strategy, the collaborator may overwrite a slot when
// the user clearly revises it, and it handles unsupported or fictitious
// destinations conversationally without setting a country.
//
// # Thread Safety
//
// DelegatedExtractor is safe for concurrent use.
type DelegatedExtractor struct {
	chatClient llm.ChatClient
	config     DelegatedConfig
	limiter    *rate.Limiter
	validate   *validator.Validate
	logger     *slog.Logger
	supported  map[string]bool
}

// DelegatedConfig configures the delegated extraction strategy.
type DelegatedConfig struct {
	// Timeout is the maximum time for one extraction call.
	// Default: 8s.
	Timeout time.Duration `json:"timeout"`

	// Temperature controls randomness. Lower = more deterministic.
	// Default: 0.1.
	Temperature float32 `json:"temperature"`

	// MaxTokens limits the response length. Default: 512.
	MaxTokens int `json:"max_tokens"`

	// RatePerSecond throttles calls to the collaborator across all
	// sessions. Default: 5.
	RatePerSecond float64 `json:"rate_per_second"`

	// RateBurst is the limiter burst size. Default: 10.
	RateBurst int `json:"rate_burst"`
}

// DefaultDelegatedConfig returns sensible defaults.
func DefaultDelegatedConfig() DelegatedConfig {
	return DelegatedConfig{
		Timeout:       8 * time.Second,
		Temperature:   0.1,
		MaxTokens:     512,
		RatePerSecond: 5,
		RateBurst:     10,
	}
}

// delegatedReply is the strict output contract. Every field is required;
// a missing or malformed field discards the whole reply.
type delegatedReply struct {
	UpdatedSlots *delegatedSlots `json:"updated_slots" validate:"required"`
	Action       string          `json:"action" validate:"required,oneof=need_more ready off_topic"`
	UserMessage  string          `json:"user_message" validate:"required"`
}

type delegatedSlots struct {
	Budget        int    `json:"budget" validate:"gte=0"`
	CountryCode   string `json:"country_code"`
	DurationWeeks int    `json:"duration_weeks" validate:"gte=0,lte=104"`
	Goal          string `json:"goal"`
	City          string `json:"city"`
}

// NewDelegatedExtractor creates a delegated extractor over the given
// chat client. The supported-country set comes from the same lexicon the
// rule strategy uses, so both strategies agree on the destination enum.
func NewDelegatedExtractor(chatClient llm.ChatClient, config DelegatedConfig) (*DelegatedExtractor, error) {
	if chatClient == nil {
		return nil, fmt.Errorf("chatClient must not be nil")
	}
	supported := make(map[string]bool)
	for _, code := range SupportedCountries() {
		supported[code] = true
	}
	return &DelegatedExtractor{
		chatClient: chatClient,
		config:     config,
		limiter:    rate.NewLimiter(rate.Limit(config.RatePerSecond), config.RateBurst),
		validate:   validator.New(),
		logger:     slog.Default(),
		supported:  supported,
	}, nil
}

func (e *DelegatedExtractor) Strategy() Strategy { return StrategyDelegated }

// ExtractTurn sends the current slots and the message to the
// collaborator and returns its validated decision.
func (e *DelegatedExtractor) ExtractTurn(ctx context.Context, text string, current datatypes.WizardState) (Decision, error) {
	ctx, span := tracer.Start(ctx, "DelegatedExtractor.ExtractTurn")
	defer span.End()
	span.SetAttributes(attribute.String("extractor.strategy", string(StrategyDelegated)))

	startTime := time.Now()

	if err := e.limiter.Wait(ctx); err != nil {
		span.SetStatus(codes.Error, "rate limited")
		observability.RecordExtraction(string(StrategyDelegated), "rate_limited", time.Since(startTime).Seconds())
		return Decision{}, fmt.Errorf("delegated extraction rate limited: %w", err)
	}

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	slotsJSON, err := json.Marshal(current)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to marshal current slots: %w", err)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: e.buildSystemPrompt()},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Current slots: %s\nUser message: %s", slotsJSON, text)},
	}
	temp := e.config.Temperature
	maxTokens := e.config.MaxTokens
	params := llm.GenerationParams{Temperature: &temp, MaxTokens: &maxTokens}

	response, err := e.chatClient.Chat(ctx, messages, params)
	if err != nil {
		duration := time.Since(startTime)
		if ctx.Err() == context.DeadlineExceeded {
			span.SetStatus(codes.Error, "timeout")
			observability.RecordExtraction(string(StrategyDelegated), "timeout", duration.Seconds())
			return Decision{}, fmt.Errorf("delegated extraction timed out: %w", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat failed")
		observability.RecordExtraction(string(StrategyDelegated), "error", duration.Seconds())
		return Decision{}, fmt.Errorf("delegated extraction chat failed: %w", err)
	}

	decision, err := e.parseReply(response, current)
	duration := time.Since(startTime)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid reply")
		observability.RecordExtraction(string(StrategyDelegated), "invalid_reply", duration.Seconds())
		return Decision{}, err
	}

	observability.RecordExtraction(string(StrategyDelegated), "success", duration.Seconds())
	e.logger.Debug("delegated extraction succeeded",
		slog.String("action", string(decision.Action)),
		slog.Duration("duration", duration),
	)
	return decision, nil
}

// parseReply extracts and validates the JSON decision from the raw model
// output. Partially valid output is never trusted.
func (e *DelegatedExtractor) parseReply(response string, current datatypes.WizardState) (Decision, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return Decision{}, fmt.Errorf("empty response from collaborator")
	}

	// Clean up markdown code blocks
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx <= startIdx {
		return Decision{}, fmt.Errorf("no JSON object found in response: %s", truncate(response, 100))
	}

	var reply delegatedReply
	if err := json.Unmarshal([]byte(response[startIdx:endIdx+1]), &reply); err != nil {
		return Decision{}, fmt.Errorf("failed to parse collaborator JSON: %w", err)
	}
	if err := e.validate.Struct(&reply); err != nil {
		return Decision{}, fmt.Errorf("collaborator reply failed schema validation: %w", err)
	}
	if reply.UpdatedSlots.CountryCode != "" && !e.supported[reply.UpdatedSlots.CountryCode] {
		return Decision{}, fmt.Errorf("collaborator set unsupported country %q", reply.UpdatedSlots.CountryCode)
	}

	slots := datatypes.WizardState{
		Budget:        reply.UpdatedSlots.Budget,
		CountryCode:   reply.UpdatedSlots.CountryCode,
		DurationWeeks: reply.UpdatedSlots.DurationWeeks,
		Goal:          reply.UpdatedSlots.Goal,
		City:          reply.UpdatedSlots.City,
	}
	action := Action(reply.Action)
	if action == ActionReady && !slots.Complete() {
		return Decision{}, fmt.Errorf("collaborator declared ready with incomplete slots")
	}

	return Decision{
		Slots:       slots,
		Changed:     changedSlots(current, slots),
		Action:      action,
		UserMessage: reply.UserMessage,
	}, nil
}

// changedSlots diffs two states for metrics and the controller.
func changedSlots(before, after datatypes.WizardState) []datatypes.Slot {
	var changed []datatypes.Slot
	if before.Budget != after.Budget {
		changed = append(changed, datatypes.SlotBudget)
	}
	if before.CountryCode != after.CountryCode {
		changed = append(changed, datatypes.SlotCountry)
	}
	if before.DurationWeeks != after.DurationWeeks {
		changed = append(changed, datatypes.SlotDuration)
	}
	if before.Goal != after.Goal {
		changed = append(changed, datatypes.SlotGoal)
	}
	if before.City != after.City {
		changed = append(changed, datatypes.SlotCity)
	}
	return changed
}

// buildSystemPrompt describes the contract to the collaborator. The
// extraction conventions mirror the rule strategy so the two remain
// interchangeable.
func (e *DelegatedExtractor) buildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString(`You are the slot-filling brain of a study-trip planning wizard.
The user is planning a language trip abroad. Across turns you fill four slots:
  - budget: whole currency amount the user can spend (integer, 0 = unknown)
  - country_code: destination, one of: `)
	sb.WriteString(strings.Join(SupportedCountries(), ", "))
	sb.WriteString(`
  - duration_weeks: trip length in weeks (integer, 0 = unknown)
  - goal: the user's motivation, kept in their own words
  - city: optional city hint, never required

Normalization conventions:
- Currency: "9k", "9 mila", "9.000 euro" all mean 9000.
- Terms map to weeks: summer/estate = 12, semester/semestre = 24, year/anno = 48.
  "<n> mesi"/"<n> months" = n x 4 weeks.
- country_code is always lowercase two letters from the supported list.

Rules:
- Start from the current slots and return the FULL updated slot set.
- Keep already-filled slots unless the user clearly revises one; an
  explicit correction ("not London, Dublin") overwrites the old value.
- A real but unsupported destination (e.g. Japan): do NOT set country_code;
  in user_message steer toward the supported destinations.
- A fictitious destination (e.g. Hogwarts): do NOT set country_code;
  redirect gently in user_message.
- action is "ready" only when budget, country_code, duration_weeks and goal
  are ALL filled. Use "off_topic" only when no slot is filled and the
  message has nothing to do with trip planning. Otherwise "need_more".
- user_message: for "need_more", ask for exactly the next missing slot
  (budget first, then country, duration, goal) and summarize what you
  already know; for "off_topic", answer briefly and invite the user back.
  Reply in the user's language.

Respond with ONLY a JSON object, no explanation, no markdown:
{"updated_slots": {"budget": 0, "country_code": "", "duration_weeks": 0, "goal": "", "city": ""}, "action": "need_more", "user_message": "..."}
`)
	return sb.String()
}

// truncate shortens s for log and error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
