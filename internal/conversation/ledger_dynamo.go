package conversation

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoCostSink.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoCostSink mirrors cost records into a DynamoDB table keyed by
// organization_id and timestamp.
type DynamoCostSink struct {
	api   DynamoAPI
	table string
}

func NewDynamoCostSink(api DynamoAPI, table string) *DynamoCostSink {
	if api == nil {
		panic("conversation: dynamodb client cannot be nil")
	}
	return &DynamoCostSink{api: api, table: table}
}

func (s *DynamoCostSink) RecordCost(ctx context.Context, rec CostRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("conversation: marshal cost record: %w", err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("conversation: put cost record: %w", err)
	}
	return nil
}
