// Copyright 2026 Thawd Authors
// SPDX-License-Identifier: Apache-2.0

package restore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/frostworks/thawd/pkg/restore"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeQueue serves queued batches, then idles until the context ends.
type fakeQueue struct {
	mu       sync.Mutex
	batches  [][]sqstypes.Message
	errs     []error
	deleted  []string // receipt handles
	receives int
}

func (q *fakeQueue) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	q.mu.Lock()
	q.receives++
	if len(q.errs) > 0 {
		err := q.errs[0]
		q.errs = q.errs[1:]
		q.mu.Unlock()
		return nil, err
	}
	if len(q.batches) > 0 {
		batch := q.batches[0]
		q.batches = q.batches[1:]
		q.mu.Unlock()
		return &sqs.ReceiveMessageOutput{Messages: batch}, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return &sqs.ReceiveMessageOutput{}, nil
	}
}

func (q *fakeQueue) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (q *fakeQueue) deletedHandles() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.deleted...)
}

func (q *fakeQueue) receiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.receives
}

func message(id, body string) sqstypes.Message {
	return sqstypes.Message{
		MessageId:     aws.String(id),
		Body:          aws.String(body),
		ReceiptHandle: aws.String("rh-" + id),
	}
}

// runPoller starts p and returns a stop function that cancels it and waits
// for the loop to exit.
func runPoller(t *testing.T, p *restore.Poller) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()

	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("poller did not stop")
		}
	}
}

func envelopeBody(t *testing.T, userID string) string {
	t.Helper()
	return envelope(t, map[string]string{"user_id": userID})
}

func TestPoller_EndToEnd(t *testing.T) {
	t.Parallel()

	body := `{"Message": "{\"default\": \"{\\\"user_id\\\": \\\"u1\\\"}\"}"}`
	queue := &fakeQueue{batches: [][]sqstypes.Message{{message("m1", body)}}}
	store := &fakeStore{
		records: []restore.ArchivedItemRecord{
			{JobID: "j1", UserID: "u1", ResultsFileArchiveID: "a1"},
		},
	}
	archive := &fakeArchive{
		respond: func(archiveID string, tier restore.Tier) (string, error) {
			return "r1", nil
		},
	}

	p := restore.NewPoller(queue, newCoordinator(store, archive), restore.PollerConfig{
		ID:             "test-poller",
		QueueURL:       "https://sqs.test/restore",
		ReceiveBackoff: time.Millisecond,
	})
	stop := runPoller(t, p)
	defer stop()

	require.Eventually(t, func() bool {
		return len(queue.deletedHandles()) == 1
	}, 5*time.Second, 5*time.Millisecond)

	// The Expedited acceptance is persisted and the message deleted exactly once.
	got, ok := store.restoreJobID("j1")
	require.True(t, ok)
	assert.Equal(t, "r1", got)
	assert.Equal(t, []string{"rh-m1"}, queue.deletedHandles())
	assert.Equal(t, 1, archive.callsFor("a1", restore.TierExpedited))
	assert.Equal(t, 0, archive.callsFor("a1", restore.TierStandard))
}

func TestPoller_MalformedMessageDeleted(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{batches: [][]sqstypes.Message{{message("m1", "not json")}}}
	store := &fakeStore{}
	archive := &fakeArchive{}

	p := restore.NewPoller(queue, newCoordinator(store, archive), restore.PollerConfig{
		QueueURL:       "https://sqs.test/restore",
		ReceiveBackoff: time.Millisecond,
	})
	stop := runPoller(t, p)
	defer stop()

	// Redelivery cannot fix it, so it is acknowledged immediately.
	require.Eventually(t, func() bool {
		return len(queue.deletedHandles()) == 1
	}, 5*time.Second, 5*time.Millisecond)
	assert.Empty(t, archive.calls)
}

func TestPoller_StoreUnavailableLeavesMessage(t *testing.T) {
	t.Parallel()

	body := envelopeBody(t, "u1")
	queue := &fakeQueue{batches: [][]sqstypes.Message{{message("m1", body)}}}
	store := &fakeStore{listErr: restore.ErrStoreUnavailable}
	archive := &fakeArchive{}

	p := restore.NewPoller(queue, newCoordinator(store, archive), restore.PollerConfig{
		QueueURL:       "https://sqs.test/restore",
		ReceiveBackoff: time.Millisecond,
	})
	stop := runPoller(t, p)

	// Wait until the message was consumed and the loop has gone idle again.
	require.Eventually(t, func() bool {
		return queue.receiveCount() >= 3
	}, 5*time.Second, 5*time.Millisecond)
	stop()

	assert.Empty(t, queue.deletedHandles(), "scan failure must leave the message for redelivery")
}

func TestPoller_ReceiveErrorBacksOffAndRecovers(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{
		errs:    []error{errBoom},
		batches: [][]sqstypes.Message{{message("m1", "not json")}},
	}
	store := &fakeStore{}
	archive := &fakeArchive{}

	p := restore.NewPoller(queue, newCoordinator(store, archive), restore.PollerConfig{
		QueueURL:       "https://sqs.test/restore",
		ReceiveBackoff: time.Millisecond,
	})
	stop := runPoller(t, p)
	defer stop()

	require.Eventually(t, func() bool {
		return len(queue.deletedHandles()) == 1
	}, 5*time.Second, 5*time.Millisecond)
}

func TestPoller_AckPolicyOnItemFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		policy     restore.AckPolicy
		wantDelete bool
	}{
		// The historical behavior: failures do not block acknowledgment.
		{"always", restore.AckAlways, true},
		{"on_item_success", restore.AckOnItemSuccess, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			queue := &fakeQueue{batches: [][]sqstypes.Message{{message("m1", envelopeBody(t, "u1"))}}}
			store := &fakeStore{
				records: []restore.ArchivedItemRecord{
					{JobID: "j1", UserID: "u1", ResultsFileArchiveID: "a1"},
				},
			}
			archive := &fakeArchive{
				respond: func(archiveID string, tier restore.Tier) (string, error) {
					return "", errBoom
				},
			}

			p := restore.NewPoller(queue, newCoordinator(store, archive), restore.PollerConfig{
				QueueURL:       "https://sqs.test/restore",
				ReceiveBackoff: time.Millisecond,
				Policy:         tt.policy,
			})
			stop := runPoller(t, p)

			require.Eventually(t, func() bool {
				return queue.receiveCount() >= 3
			}, 5*time.Second, 5*time.Millisecond)
			stop()

			if tt.wantDelete {
				assert.Equal(t, []string{"rh-m1"}, queue.deletedHandles())
			} else {
				assert.Empty(t, queue.deletedHandles())
			}
		})
	}
}
