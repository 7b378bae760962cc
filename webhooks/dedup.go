package webhooks

import (
	"context"
	"fmt"
	"strings"
)

// PriorOutcome is the slice of an audit record the deduplicator cares about.
type PriorOutcome struct {
	Succeeded bool
}

// OutcomeReader lists prior recorded outcomes for one
// (event id, idempotency key) pair.
type OutcomeReader interface {
	PriorOutcomes(ctx context.Context, eventID string, idempotencyKey string) ([]PriorOutcome, error)
}

// OutcomeDeduplicator decides whether a freshly computed resolution is novel.
// A resolution is a repeat when any prior record for the same key carries the
// same succeeded value; repeats are still logged but must not re-trigger
// side effects. Prior records with only the opposite outcome leave the
// resolution novel: a flipped state charges and alerts again.
type OutcomeDeduplicator struct {
	Reader OutcomeReader
}

func NewOutcomeDeduplicator(reader OutcomeReader) *OutcomeDeduplicator {
	return &OutcomeDeduplicator{Reader: reader}
}

func (d *OutcomeDeduplicator) IsNovel(
	ctx context.Context,
	eventID string,
	idempotencyKey string,
	succeeded bool,
) (bool, error) {
	if d == nil || d.Reader == nil {
		return false, fmt.Errorf("webhooks: outcome deduplicator requires a reader")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, fmt.Errorf("webhooks: event id is required")
	}

	prior, err := d.Reader.PriorOutcomes(ctx, eventID, strings.TrimSpace(idempotencyKey))
	if err != nil {
		return false, err
	}
	for _, outcome := range prior {
		if outcome.Succeeded == succeeded {
			return false, nil
		}
	}
	return true, nil
}
