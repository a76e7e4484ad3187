// Copyright 2026 Thawd Authors
// SPDX-License-Identifier: Apache-2.0

package restore_test

import (
	"context"
	"testing"

	"github.com/frostworks/thawd/pkg/restore"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glacier"
	"github.com/aws/aws-sdk-go-v2/service/glacier/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGlacier struct {
	inputs []*glacier.InitiateJobInput
	out    *glacier.InitiateJobOutput
	err    error
}

func (f *fakeGlacier) InitiateJob(ctx context.Context, in *glacier.InitiateJobInput, optFns ...func(*glacier.Options)) (*glacier.InitiateJobOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func newArchive(client *fakeGlacier) *restore.GlacierArchive {
	return restore.NewGlacierArchive(client, "123456789012", "results-vault", "arn:aws:sns:us-east-1:123456789012:thaw-complete")
}

func TestGlacierArchive_InitiateRetrieval(t *testing.T) {
	t.Parallel()

	client := &fakeGlacier{
		out: &glacier.InitiateJobOutput{JobId: aws.String("r1")},
	}

	jobID, err := newArchive(client).InitiateRetrieval(context.Background(), "a1", restore.TierExpedited)

	require.NoError(t, err)
	assert.Equal(t, "r1", jobID)

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "123456789012", aws.ToString(in.AccountId))
	assert.Equal(t, "results-vault", aws.ToString(in.VaultName))
	require.NotNil(t, in.JobParameters)
	assert.Equal(t, "archive-retrieval", aws.ToString(in.JobParameters.Type))
	assert.Equal(t, "a1", aws.ToString(in.JobParameters.ArchiveId))
	assert.Equal(t, "Expedited", aws.ToString(in.JobParameters.Tier))
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:thaw-complete", aws.ToString(in.JobParameters.SNSTopic))
}

func TestGlacierArchive_CapacityExceeded(t *testing.T) {
	t.Parallel()

	client := &fakeGlacier{err: &types.InsufficientCapacityException{}}

	_, err := newArchive(client).InitiateRetrieval(context.Background(), "a1", restore.TierExpedited)

	require.ErrorIs(t, err, restore.ErrCapacityExceeded)
}

func TestGlacierArchive_CapacityExceededByCode(t *testing.T) {
	t.Parallel()

	client := &fakeGlacier{err: &smithy.GenericAPIError{
		Code:    "InsufficientCapacityException",
		Message: "Expedited tier capacity is not available",
	}}

	_, err := newArchive(client).InitiateRetrieval(context.Background(), "a1", restore.TierExpedited)

	require.ErrorIs(t, err, restore.ErrCapacityExceeded)
}

func TestGlacierArchive_OtherProviderError(t *testing.T) {
	t.Parallel()

	cause := &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "no such archive"}
	client := &fakeGlacier{err: cause}

	_, err := newArchive(client).InitiateRetrieval(context.Background(), "a1", restore.TierStandard)

	require.Error(t, err)
	assert.NotErrorIs(t, err, restore.ErrCapacityExceeded)
	assert.ErrorAs(t, err, new(*smithy.GenericAPIError))
}

func TestGlacierArchive_MissingJobID(t *testing.T) {
	t.Parallel()

	client := &fakeGlacier{out: &glacier.InitiateJobOutput{}}

	_, err := newArchive(client).InitiateRetrieval(context.Background(), "a1", restore.TierStandard)

	require.Error(t, err)
}
