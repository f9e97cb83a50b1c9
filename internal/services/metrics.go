package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain counters. Labels are a small closed set so cardinality stays fixed.
var (
	suggestionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "suggestions_created_total",
		Help: "Suggestions successfully created.",
	})

	// votesTotal counts vote operations by op (add|remove) and result
	// (ok|conflict|not_found|invalid|error).
	votesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_total",
			Help: "Vote operations by outcome.",
		},
		[]string{"op", "result"},
	)

	repliesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replies_created_total",
		Help: "Admin replies successfully created.",
	})
)

func init() {
	prometheus.MustRegister(suggestionsCreated, votesTotal, repliesCreated)
}

// voteResult maps a service result to its votes_total label.
func voteResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
