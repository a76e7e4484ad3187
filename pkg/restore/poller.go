// Copyright 2026 Thawd Authors
// SPDX-License-Identifier: Apache-2.0

package restore

import (
	"context"
	"errors"
	"time"

	"github.com/frostworks/thawd/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Default long-poll configuration.
const (
	DefaultBatchSize      = 10
	DefaultWaitTime       = 20 * time.Second
	DefaultReceiveBackoff = time.Minute
)

// QueueAPI is the slice of the SQS client the poller uses.
type QueueAPI interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// AckPolicy decides when a successfully decoded message is deleted from the
// queue. Malformed messages are always deleted regardless of policy, and a
// record-store scan failure always leaves the message for redelivery.
type AckPolicy int

const (
	// AckAlways deletes the message once processing completes, even when
	// retrieval initiation failed for some or all items. A failed item is
	// then never retried through redelivery; it only becomes retryable
	// again through a later restore request for the same user. This is the
	// historical behavior and the default.
	AckAlways AckPolicy = iota

	// AckOnItemSuccess deletes the message only when no item terminally
	// failed, trading at-most-once acknowledgment for redelivery-driven
	// retries. Items that already got a restore job id are re-initiated on
	// redelivery, so duplicate retrieval jobs are possible under it.
	AckOnItemSuccess
)

// PollerConfig configures the consumer loop.
type PollerConfig struct {
	ID             string // instance id, appears in logs
	QueueURL       string
	BatchSize      int32
	WaitTime       time.Duration
	ReceiveBackoff time.Duration
	Policy         AckPolicy
}

// Poller is the outer consumer loop: long-polls the restore queue and runs
// each message through decode and the coordinator, strictly one message at a
// time.
type Poller struct {
	queue       QueueAPI
	coordinator *Coordinator
	cfg         PollerConfig
}

func NewPoller(queue QueueAPI, coordinator *Coordinator, cfg PollerConfig) *Poller {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.WaitTime == 0 {
		cfg.WaitTime = DefaultWaitTime
	}
	if cfg.ReceiveBackoff == 0 {
		cfg.ReceiveBackoff = DefaultReceiveBackoff
	}

	return &Poller{
		queue:       queue,
		coordinator: coordinator,
		cfg:         cfg,
	}
}

// Run polls until ctx is cancelled. Cancellation is observed between
// receive calls and between messages, never in the middle of an item's
// retrieval attempts.
func (p *Poller) Run(ctx context.Context) error {
	logger.Info().
		Str("poller_id", p.cfg.ID).
		Str("queue_url", p.cfg.QueueURL).
		Int32("batch_size", p.cfg.BatchSize).
		Dur("wait_time", p.cfg.WaitTime).
		Msg("restore poller starting")

	for {
		if err := ctx.Err(); err != nil {
			logger.Info().Str("poller_id", p.cfg.ID).Msg("restore poller stopping")
			return err
		}

		out, err := p.queue.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(p.cfg.QueueURL),
			MaxNumberOfMessages:   p.cfg.BatchSize,
			WaitTimeSeconds:       int32(p.cfg.WaitTime / time.Second),
			MessageAttributeNames: []string{"All"},
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			receiveErrors.Inc()
			logger.Error().Err(err).Msg("receive from restore queue failed")
			sleep(ctx, p.cfg.ReceiveBackoff)
			continue
		}

		for _, msg := range out.Messages {
			if ctx.Err() != nil {
				break
			}
			p.processMessage(ctx, msg)
		}
	}
}

func (p *Poller) processMessage(ctx context.Context, msg types.Message) {
	messagesReceived.Inc()

	req, err := DecodeRestoreRequest(aws.ToString(msg.Body))
	if err != nil {
		// Redelivery cannot fix malformed content; drop the message now.
		kind := "parse"
		var derr *DecodeError
		if errors.As(err, &derr) {
			kind = derr.Kind.String()
		}
		decodeFailures.WithLabelValues(kind).Inc()
		logger.Warn().
			Err(err).
			Str("message_id", aws.ToString(msg.MessageId)).
			Msg("malformed restore message, discarding")
		p.ack(ctx, msg, "malformed")
		return
	}

	outcome, err := p.coordinator.Restore(ctx, req.UserID)
	if err != nil {
		// Scan failure: leave the message in the queue for redelivery.
		restoresProcessed.WithLabelValues("store_unavailable").Inc()
		logger.Error().
			Err(err).
			Str("user_id", req.UserID).
			Str("message_id", aws.ToString(msg.MessageId)).
			Msg("restore pass abandoned, message left for redelivery")
		return
	}

	if outcome.NoArchivedItems {
		restoresProcessed.WithLabelValues("no_items").Inc()
	} else {
		restoresProcessed.WithLabelValues("ok").Inc()
	}

	if p.cfg.Policy == AckOnItemSuccess && outcome.Failed > 0 {
		logger.Warn().
			Str("user_id", req.UserID).
			Int("failed", outcome.Failed).
			Msg("items failed, message left for redelivery")
		return
	}

	p.ack(ctx, msg, "processed")
}

func (p *Poller) ack(ctx context.Context, msg types.Message, reason string) {
	_, err := p.queue.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.cfg.QueueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		logger.Error().
			Err(err).
			Str("message_id", aws.ToString(msg.MessageId)).
			Msg("delete message failed")
		return
	}
	messagesAcked.WithLabelValues(reason).Inc()
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
