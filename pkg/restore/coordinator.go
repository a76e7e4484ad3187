// Copyright 2026 Thawd Authors
// SPDX-License-Identifier: Apache-2.0

package restore

import (
	"context"

	"github.com/frostworks/thawd/pkg/logger"
)

// ItemOutcome is the per-record result of one restore pass.
type ItemOutcome struct {
	JobID  string
	Result InitiationResult
}

// Outcome aggregates a user's restore pass. A single item's terminal failure
// never aborts its siblings.
type Outcome struct {
	UserID          string
	NoArchivedItems bool
	Skipped         int // records never archived, nothing to retrieve
	Accepted        int
	Failed          int
	Items           []ItemOutcome
}

// Coordinator resolves a user's archived records and drives the initiator
// over each retrieval candidate.
type Coordinator struct {
	store     RecordStore
	initiator *Initiator
}

func NewCoordinator(store RecordStore, initiator *Initiator) *Coordinator {
	return &Coordinator{store: store, initiator: initiator}
}

// Restore processes one restore request. The returned error is reserved for
// the record scan failing (ErrStoreUnavailable); per-item failures are
// reported inside the outcome.
func (c *Coordinator) Restore(ctx context.Context, userID string) (Outcome, error) {
	out := Outcome{UserID: userID}

	records, err := c.store.ListForUser(ctx, userID)
	if err != nil {
		return out, err
	}

	if len(records) == 0 {
		out.NoArchivedItems = true
		logger.Info().Str("user_id", userID).Msg("no archived items for user")
		return out, nil
	}

	for _, rec := range records {
		if !rec.Archived() {
			out.Skipped++
			logger.Debug().
				Str("user_id", userID).
				Str("job_id", rec.JobID).
				Msg("record has no archive id, skipping")
			continue
		}

		res := c.initiator.Initiate(ctx, rec)
		out.Items = append(out.Items, ItemOutcome{JobID: rec.JobID, Result: res})

		switch {
		case res.State == StateAccepted && res.Err == nil:
			out.Accepted++
			retrievalsInitiated.WithLabelValues(string(res.Tier)).Inc()
			logger.Info().
				Str("user_id", userID).
				Str("job_id", rec.JobID).
				Str("restore_job_id", res.RestoreJobID).
				Str("tier", string(res.Tier)).
				Msg("retrieval initiated")
		case res.State == StateAccepted:
			// Accepted but the store update failed: an orphaned retrieval.
			out.Accepted++
			retrievalsInitiated.WithLabelValues(string(res.Tier)).Inc()
			orphanedRetrievals.Inc()
			logger.Error().
				Err(res.Err).
				Str("user_id", userID).
				Str("job_id", rec.JobID).
				Str("restore_job_id", res.RestoreJobID).
				Msg("retrieval accepted but job id not persisted")
		default:
			out.Failed++
			tier := TierExpedited
			if n := len(res.Attempts); n > 0 {
				tier = res.Attempts[n-1].Tier
			}
			retrievalFailures.WithLabelValues(string(tier)).Inc()
			logger.Error().
				Err(res.Err).
				Str("user_id", userID).
				Str("job_id", rec.JobID).
				Str("archive_id", rec.ResultsFileArchiveID).
				Msg("retrieval initiation failed")
		}
	}

	return out, nil
}
