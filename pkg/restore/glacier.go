// Copyright 2026 Thawd Authors
// SPDX-License-Identifier: Apache-2.0

package restore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glacier"
	"github.com/aws/aws-sdk-go-v2/service/glacier/types"
	"github.com/aws/smithy-go"
)

// ErrCapacityExceeded reports that the requested retrieval tier had no
// capacity. It is the only archive error the initiator recovers from.
var ErrCapacityExceeded = errors.New("retrieval capacity exceeded")

// Archive initiates retrieval of an archived object. Implementations return
// the provider's retrieval-job identifier on acceptance, ErrCapacityExceeded
// when the tier is out of capacity, and any other error verbatim.
type Archive interface {
	InitiateRetrieval(ctx context.Context, archiveID string, tier Tier) (string, error)
}

// GlacierAPI is the slice of the Glacier client the archive uses.
type GlacierAPI interface {
	InitiateJob(ctx context.Context, in *glacier.InitiateJobInput, optFns ...func(*glacier.Options)) (*glacier.InitiateJobOutput, error)
}

// GlacierArchive drives archive-retrieval jobs against one Glacier vault.
// Completion is announced asynchronously on the SNS topic; consuming that
// notification is a separate flow.
type GlacierArchive struct {
	client    GlacierAPI
	accountID string
	vault     string
	snsTopic  string
}

func NewGlacierArchive(client GlacierAPI, accountID, vault, snsTopic string) *GlacierArchive {
	return &GlacierArchive{
		client:    client,
		accountID: accountID,
		vault:     vault,
		snsTopic:  snsTopic,
	}
}

func (g *GlacierArchive) InitiateRetrieval(ctx context.Context, archiveID string, tier Tier) (string, error) {
	out, err := g.client.InitiateJob(ctx, &glacier.InitiateJobInput{
		AccountId: aws.String(g.accountID),
		VaultName: aws.String(g.vault),
		JobParameters: &types.JobParameters{
			Type:        aws.String("archive-retrieval"),
			ArchiveId:   aws.String(archiveID),
			Tier:        aws.String(string(tier)),
			Description: aws.String(fmt.Sprintf("%s retrieval", tier)),
			SNSTopic:    aws.String(g.snsTopic),
		},
	})
	if err != nil {
		if isCapacityExceeded(err) {
			return "", fmt.Errorf("%w: %s tier: %v", ErrCapacityExceeded, tier, err)
		}
		return "", fmt.Errorf("initiate %s retrieval: %w", tier, err)
	}

	if out.JobId == nil || *out.JobId == "" {
		return "", fmt.Errorf("initiate %s retrieval: no job id returned", tier)
	}

	return *out.JobId, nil
}

// isCapacityExceeded matches the modeled exception and, for responses the
// SDK could not deserialize into it, the raw error code.
func isCapacityExceeded(err error) bool {
	var ice *types.InsufficientCapacityException
	if errors.As(err, &ice) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "InsufficientCapacityException"
}
