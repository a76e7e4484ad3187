// Copyright 2026 Thawd Authors
// SPDX-License-Identifier: Apache-2.0

package restore

import (
	"context"
	"errors"
	"fmt"

	"github.com/frostworks/thawd/pkg/logger"
)

// OrphanedRetrievalError reports the one inconsistency this worker can
// produce: the archive service accepted a retrieval but the store update
// failed afterwards, so a job is running with no persisted identifier.
type OrphanedRetrievalError struct {
	JobID        string
	RestoreJobID string
	Err          error
}

func (e *OrphanedRetrievalError) Error() string {
	return fmt.Sprintf("orphaned retrieval %s for job_id=%s: %v", e.RestoreJobID, e.JobID, e.Err)
}

func (e *OrphanedRetrievalError) Unwrap() error {
	return e.Err
}

// InitiationResult is the outcome of driving one item through the tiered
// retrieval state machine.
type InitiationResult struct {
	State        State
	Tier         Tier   // tier that accepted, when State is StateAccepted
	RestoreJobID string // id returned by the accepting tier
	Attempts     []RetrievalAttempt
	Err          error // terminal failure or orphaned-retrieval error
}

// Initiator executes the Expedited-then-Standard retrieval protocol for one
// archived item and persists the accepted job id.
type Initiator struct {
	archive Archive
	store   RecordStore
}

func NewInitiator(archive Archive, store RecordStore) *Initiator {
	return &Initiator{archive: archive, store: store}
}

// Initiate runs rec through the state machine. Capacity exhaustion on the
// Expedited tier falls back to Standard; any other provider error is
// terminal, since it would fail identically on the other tier. On terminal
// failure nothing is persisted and the item stays eligible for a later pass.
func (i *Initiator) Initiate(ctx context.Context, rec ArchivedItemRecord) InitiationResult {
	res := InitiationResult{State: StatePending}

	for !res.State.Terminal() {
		tier, requested, ok := RequestTier(res.State)
		if !ok {
			// No outgoing request edge and not terminal: the machine is
			// stuck, which the transition table makes impossible.
			res.Err = fmt.Errorf("no transition from state %s", res.State)
			res.State = StateFailed
			return res
		}
		res.State = requested

		restoreJobID, err := i.archive.InitiateRetrieval(ctx, rec.ResultsFileArchiveID, tier)
		ev := classify(err)
		res.Attempts = append(res.Attempts, RetrievalAttempt{Tier: tier, Event: ev, Err: err})
		res.State = Next(res.State, ev)

		switch res.State {
		case StateAccepted:
			res.Tier = tier
			res.RestoreJobID = restoreJobID
		case StateThrottled:
			logger.Info().
				Str("archive_id", rec.ResultsFileArchiveID).
				Str("job_id", rec.JobID).
				Msg("expedited retrieval throttled, falling back to standard")
		case StateFailed:
			res.Err = err
		}
	}

	if res.State != StateAccepted {
		return res
	}

	// The retrieval is running before we touch the store. An update failure
	// here leaves a job the store does not know about, which must surface
	// as its own error class rather than be folded into ordinary failures.
	if err := i.store.SetRestoreJobID(ctx, rec.JobID, res.RestoreJobID); err != nil {
		res.Err = &OrphanedRetrievalError{
			JobID:        rec.JobID,
			RestoreJobID: res.RestoreJobID,
			Err:          err,
		}
	}

	return res
}

func classify(err error) Event {
	switch {
	case err == nil:
		return EventAccepted
	case errors.Is(err, ErrCapacityExceeded):
		return EventCapacityExceeded
	default:
		return EventProviderError
	}
}
