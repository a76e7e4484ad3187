// Copyright 2026 Thawd Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/frostworks/thawd/pkg/awsclient"
	"github.com/frostworks/thawd/pkg/debug"
	"github.com/frostworks/thawd/pkg/env"
	"github.com/frostworks/thawd/pkg/logger"
	"github.com/frostworks/thawd/pkg/restore"
	"github.com/frostworks/thawd/pkg/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// WorkerOpts holds the restore worker configuration, resolved once at
// startup from flags, worker.toml and environment.
type WorkerOpts struct {
	Region    string
	AccountID string
	Vault     string
	QueueURL  string
	TopicARN  string
	Table     string

	BatchSize      int32
	WaitTime       time.Duration
	ReceiveBackoff time.Duration
	AckPolicy      string

	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	DebugPort int
	LogLevel  string
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the restore worker",
	Long: `Start the thawd restore worker. It long-polls the restore request
queue and, for each requesting user, initiates tiered Glacier retrievals
for that user's archived result files.`,
	Run: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	f := workerCmd.Flags()
	f.String("region", "us-east-1", "AWS region")
	f.String("account_id", "", "AWS account id owning the vault")
	f.String("vault", "", "Glacier vault holding archived results files")
	f.String("queue_url", "", "URL of the restore request queue")
	f.String("topic_arn", "", "SNS topic for retrieval completion notifications")
	f.String("table", "", "DynamoDB table holding archived-item records")
	f.Int32("batch_size", restore.DefaultBatchSize, "Max messages per receive call")
	f.Duration("wait_time", restore.DefaultWaitTime, "Long-poll wait per receive call")
	f.Duration("receive_backoff", restore.DefaultReceiveBackoff, "Pause after a failed receive call")
	f.String("ack_policy", "always", "When to delete processed messages: always, on_item_success")
	f.String("endpoint", "", "AWS endpoint override (local stacks)")
	f.String("access_key_id", "", "Static AWS access key (default credential chain if empty)")
	f.String("secret_access_key", "", "Static AWS secret key")
	f.Int("debug_port", 9321, "Debug HTTP port (metrics, pprof, health)")
	f.String("log_level", "", "Log level override (trace, debug, info, warn, error)")
}

func loadWorkerOpts(cmd *cobra.Command) (WorkerOpts, error) {
	utils.LoadConfiguration("worker", false)
	fl := NewFlagLoader(cmd)

	opts := WorkerOpts{
		Region:          fl.String("region"),
		AccountID:       fl.String("account_id"),
		Vault:           fl.String("vault"),
		QueueURL:        fl.String("queue_url"),
		TopicARN:        fl.String("topic_arn"),
		Table:           fl.String("table"),
		BatchSize:       fl.Int32("batch_size"),
		WaitTime:        fl.Duration("wait_time"),
		ReceiveBackoff:  fl.Duration("receive_backoff"),
		AckPolicy:       fl.String("ack_policy"),
		Endpoint:        fl.String("endpoint"),
		AccessKeyID:     fl.String("access_key_id"),
		SecretAccessKey: fl.String("secret_access_key"),
		DebugPort:       fl.Int("debug_port"),
		LogLevel:        fl.String("log_level"),
	}

	switch {
	case opts.QueueURL == "":
		return opts, errors.New("queue_url is required")
	case opts.Table == "":
		return opts, errors.New("table is required")
	case opts.Vault == "":
		return opts, errors.New("vault is required")
	case opts.AccountID == "":
		return opts, errors.New("account_id is required")
	case opts.TopicARN == "":
		return opts, errors.New("topic_arn is required")
	}

	return opts, nil
}

func ackPolicy(name string) (restore.AckPolicy, error) {
	switch name {
	case "", "always":
		return restore.AckAlways, nil
	case "on_item_success":
		return restore.AckOnItemSuccess, nil
	}
	return restore.AckAlways, fmt.Errorf("unknown ack_policy %q", name)
}

func runWorker(cmd *cobra.Command, args []string) {
	opts, err := loadWorkerOpts(cmd)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid worker configuration")
	}

	if opts.LogLevel != "" {
		level, err := zerolog.ParseLevel(opts.LogLevel)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid log_level")
		}
		logger.SetLevel(level)
	} else if env.IsLocal() {
		logger.SetLevel(zerolog.DebugLevel)
	}

	policy, err := ackPolicy(opts.AckPolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid worker configuration")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsclient.Load(ctx, awsclient.Config{
		Region:          opts.Region,
		Endpoint:        opts.Endpoint,
		AccessKeyID:     opts.AccessKeyID,
		SecretAccessKey: opts.SecretAccessKey,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load AWS configuration")
	}

	store := restore.NewDynamoStore(awsclient.NewDynamoDB(awsCfg, opts.Endpoint), opts.Table)
	archive := restore.NewGlacierArchive(
		awsclient.NewGlacier(awsCfg, opts.Endpoint),
		opts.AccountID,
		opts.Vault,
		opts.TopicARN,
	)
	initiator := restore.NewInitiator(archive, store)
	coordinator := restore.NewCoordinator(store, initiator)

	poller := restore.NewPoller(
		awsclient.NewSQS(awsCfg, opts.Endpoint),
		coordinator,
		restore.PollerConfig{
			ID:             uuid.NewString(),
			QueueURL:       opts.QueueURL,
			BatchSize:      opts.BatchSize,
			WaitTime:       opts.WaitTime,
			ReceiveBackoff: opts.ReceiveBackoff,
			Policy:         policy,
		},
	)

	go func() {
		addr := fmt.Sprintf(":%d", opts.DebugPort)
		logger.Info().Str("addr", addr).Msg("debug server listening")
		if err := http.ListenAndServe(addr, debug.GetMux()); err != nil {
			logger.Error().Err(err).Msg("debug server exited")
		}
	}()

	debug.SetReady()
	defer debug.SetNotReady()

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("restore poller exited")
	}
}
