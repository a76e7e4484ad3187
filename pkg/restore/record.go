// Copyright 2026 Thawd Authors
// SPDX-License-Identifier: Apache-2.0

package restore

import (
	"context"
	"errors"
)

// ErrStoreUnavailable wraps record store failures (network, permissions).
// A scan failure abandons the current pass; the message stays in the queue
// for redelivery.
var ErrStoreUnavailable = errors.New("record store unavailable")

// ArchivedItemRecord is one archived result file, keyed by job_id. It is
// created by the upstream archival process; this worker only reads it and
// sets glacier_restore_job_id once a retrieval has been accepted.
type ArchivedItemRecord struct {
	JobID                string `dynamodbav:"job_id"`
	UserID               string `dynamodbav:"user_id"`
	ResultsFileArchiveID string `dynamodbav:"results_file_archive_id,omitempty"`
	GlacierRestoreJobID  string `dynamodbav:"glacier_restore_job_id,omitempty"`
}

// Archived reports whether the record's results file was ever archived.
// Records without an archive id are never retrieval candidates.
func (r ArchivedItemRecord) Archived() bool {
	return r.ResultsFileArchiveID != ""
}

// RecordStore is the persisted view of archived-item records.
type RecordStore interface {
	// ListForUser returns every record belonging to userID. A user with no
	// records yields an empty slice, not an error.
	ListForUser(ctx context.Context, userID string) ([]ArchivedItemRecord, error)

	// SetRestoreJobID writes glacier_restore_job_id on the record keyed by
	// jobID. The update is single-field so concurrent writers of other
	// fields are never clobbered.
	SetRestoreJobID(ctx context.Context, jobID, restoreJobID string) error
}
