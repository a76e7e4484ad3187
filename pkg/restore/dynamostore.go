// Copyright 2026 Thawd Authors
// SPDX-License-Identifier: Apache-2.0

package restore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the slice of the DynamoDB client the store uses.
type DynamoAPI interface {
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoStore is a RecordStore backed by a DynamoDB table keyed by job_id.
// The table has no secondary index on user_id, so lookups are full scans
// with a filter expression.
type DynamoStore struct {
	client DynamoAPI
	table  string
}

func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

func (s *DynamoStore) ListForUser(ctx context.Context, userID string) ([]ArchivedItemRecord, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("user_id").Equal(expression.Value(userID))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build scan filter: %w", err)
	}

	var records []ArchivedItemRecord
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(s.table),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", ErrStoreUnavailable, s.table, err)
		}

		var page []ArchivedItemRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal records: %w", err)
		}
		records = append(records, page...)

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return records, nil
}

func (s *DynamoStore) SetRestoreJobID(ctx context.Context, jobID, restoreJobID string) error {
	expr, err := expression.NewBuilder().
		WithUpdate(expression.Set(
			expression.Name("glacier_restore_job_id"),
			expression.Value(restoreJobID),
		)).
		Build()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"job_id": &types.AttributeValueMemberS{Value: jobID},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("%w: update %s job_id=%s: %v", ErrStoreUnavailable, s.table, jobID, err)
	}

	return nil
}
