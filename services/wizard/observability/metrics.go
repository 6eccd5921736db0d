// Copyright (C) 2026 TripScout Labs (oss@tripscout.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the wizard.
//
// # Description
//
// Counters and histograms for turn processing, slot extraction, and
// comparison runs. Metrics are exposed on /metrics and registered once
// at package init via promauto.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "tripscout"
	wizardSubsystem  = "wizard"
)

var (
	// turnsTotal counts processed turns by outcome.
	// Labels: outcome (ask_more, ready, off_topic, limit_reached, error)
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: wizardSubsystem,
		Name:      "turns_total",
		Help:      "Processed wizard turns by outcome.",
	}, []string{"outcome"})

	// slotFillsTotal counts slot transitions unset->set.
	// Labels: slot (budget, country, duration, goal, city), strategy
	slotFillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: wizardSubsystem,
		Name:      "slot_fills_total",
		Help:      "Slot fills by slot name and extraction strategy.",
	}, []string{"slot", "strategy"})

	// extractionSeconds measures extraction latency.
	// Labels: strategy (rules, delegated), status (success, timeout,
	// error, invalid_reply, rate_limited)
	extractionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: wizardSubsystem,
		Name:      "extraction_seconds",
		Help:      "Slot extraction latency by strategy and status.",
		Buckets:   []float64{.005, .05, .25, .5, 1, 2, 5, 10},
	}, []string{"strategy", "status"})

	// comparisonsTotal counts comparison runs.
	// Labels: country, result (hit, empty)
	comparisonsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: wizardSubsystem,
		Name:      "comparisons_total",
		Help:      "Comparison runs by country and result.",
	}, []string{"country", "result"})
)

// RecordTurn records one processed turn with its outcome.
func RecordTurn(outcome string) {
	turnsTotal.WithLabelValues(outcome).Inc()
}

// RecordSlotFill records one unset->set slot transition.
func RecordSlotFill(slot, strategy string) {
	slotFillsTotal.WithLabelValues(slot, strategy).Inc()
}

// RecordExtraction records one extraction attempt.
func RecordExtraction(strategy, status string, seconds float64) {
	extractionSeconds.WithLabelValues(strategy, status).Observe(seconds)
}

// RecordComparison records one comparison run.
func RecordComparison(country string, hasResults bool) {
	result := "hit"
	if !hasResults {
		result = "empty"
	}
	comparisonsTotal.WithLabelValues(country, result).Inc()
}
