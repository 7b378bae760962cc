package webhooks

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Prober reports the current pending delivery count for one provider event.
// A single synchronous round trip; retry is layered on top by the scheduler.
type Prober interface {
	PendingDeliveries(ctx context.Context, eventID string) (int, error)
}

// Resolution is the scheduler's terminal verdict: resolved at or below the
// baseline, or still pending once the wait schedule ran out.
type Resolution struct {
	Succeeded         bool
	PendingDeliveries int
	Probes            int
}

// RetryScheduler re-probes an event after each configured wait until the
// pending count drops to the baseline or the schedule is exhausted. The
// baseline is the number of registered hooks that never settle, so a count
// at or below it is overall success. A probe error aborts the loop
// and surfaces as a hard failure distinct from "still pending".
type RetryScheduler struct {
	Waits    []time.Duration
	Baseline int
	Sleep    func(ctx context.Context, d time.Duration) error
}

func NewRetryScheduler(baseline int, waits ...time.Duration) *RetryScheduler {
	return &RetryScheduler{
		Waits:    append([]time.Duration(nil), waits...),
		Baseline: baseline,
		Sleep:    sleepContext,
	}
}

func (s *RetryScheduler) Resolve(
	ctx context.Context,
	prober Prober,
	eventID string,
	initialPending int,
) (Resolution, error) {
	if s == nil {
		return Resolution{}, fmt.Errorf("webhooks: retry scheduler is not configured")
	}
	if prober == nil {
		return Resolution{}, fmt.Errorf("webhooks: prober is required")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return Resolution{}, fmt.Errorf("webhooks: event id is required")
	}

	pending := initialPending
	if pending <= s.baseline() {
		return Resolution{Succeeded: true, PendingDeliveries: pending}, nil
	}

	sleep := s.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	probes := 0
	for _, wait := range s.Waits {
		if err := sleep(ctx, wait); err != nil {
			return Resolution{PendingDeliveries: pending, Probes: probes}, err
		}
		updated, err := prober.PendingDeliveries(ctx, eventID)
		if err != nil {
			return Resolution{PendingDeliveries: pending, Probes: probes},
				fmt.Errorf("webhooks: probe event %q: %w", eventID, err)
		}
		probes++
		pending = updated
		if pending <= s.baseline() {
			return Resolution{Succeeded: true, PendingDeliveries: pending, Probes: probes}, nil
		}
	}

	return Resolution{Succeeded: false, PendingDeliveries: pending, Probes: probes}, nil
}

func (s *RetryScheduler) baseline() int {
	if s != nil && s.Baseline > 0 {
		return s.Baseline
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
