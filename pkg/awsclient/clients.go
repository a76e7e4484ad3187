// Copyright 2026 Thawd Authors
// SPDX-License-Identifier: Apache-2.0

// Package awsclient builds the AWS service clients the worker depends on.
// All clients share one aws.Config and one HTTP client for connection reuse.
package awsclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/glacier"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Config holds connection settings for the AWS service clients.
// Endpoint is only set when pointing at a local stack; AccessKeyID and
// SecretAccessKey are only set when the default credential chain is bypassed.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Timeout         time.Duration
	MaxIdleConns    int
}

// Load resolves an aws.Config from cfg, falling back to the default
// credential chain when no static credentials are given.
func Load(ctx context.Context, cfg Config) (aws.Config, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 100
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConns / 10, // 10% per host
			IdleConnTimeout:     90 * time.Second,
		},
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
	}

	if cfg.AccessKeyID != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (empty for permanent credentials)
		)
		opts = append(opts, config.WithCredentialsProvider(staticCreds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}

	return awsCfg, nil
}

// NewSQS returns an SQS client, honoring the endpoint override if set.
func NewSQS(awsCfg aws.Config, endpoint string) *sqs.Client {
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// NewGlacier returns a Glacier client, honoring the endpoint override if set.
func NewGlacier(awsCfg aws.Config, endpoint string) *glacier.Client {
	return glacier.NewFromConfig(awsCfg, func(o *glacier.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// NewDynamoDB returns a DynamoDB client, honoring the endpoint override if set.
func NewDynamoDB(awsCfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}
