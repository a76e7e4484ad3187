// Copyright 2026 Thawd Authors
// SPDX-License-Identifier: Apache-2.0

package restore_test

import (
	"context"
	"sync"

	"github.com/frostworks/thawd/pkg/restore"
)

type archiveCall struct {
	ArchiveID string
	Tier      restore.Tier
}

// fakeArchive records initiation calls and answers them via respond.
type fakeArchive struct {
	mu      sync.Mutex
	calls   []archiveCall
	respond func(archiveID string, tier restore.Tier) (string, error)
}

func (f *fakeArchive) InitiateRetrieval(ctx context.Context, archiveID string, tier restore.Tier) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, archiveCall{ArchiveID: archiveID, Tier: tier})
	f.mu.Unlock()
	if f.respond == nil {
		return "", nil
	}
	return f.respond(archiveID, tier)
}

func (f *fakeArchive) callsFor(archiveID string, tier restore.Tier) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.ArchiveID == archiveID && c.Tier == tier {
			n++
		}
	}
	return n
}

// fakeStore is an in-memory RecordStore.
type fakeStore struct {
	mu        sync.Mutex
	records   []restore.ArchivedItemRecord
	listErr   error
	updateErr func(jobID string) error
	updates   map[string]string // job_id -> glacier_restore_job_id
}

func (f *fakeStore) ListForUser(ctx context.Context, userID string) ([]restore.ArchivedItemRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []restore.ArchivedItemRecord
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) SetRestoreJobID(ctx context.Context, jobID, restoreJobID string) error {
	if f.updateErr != nil {
		if err := f.updateErr(jobID); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = make(map[string]string)
	}
	f.updates[jobID] = restoreJobID
	return nil
}

func (f *fakeStore) restoreJobID(jobID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.updates[jobID]
	return id, ok
}
