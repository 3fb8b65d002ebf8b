package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"tradeledger/internal/domain"
	"tradeledger/internal/storage"
)

// batchWriteMax is the DynamoDB limit on items per BatchWriteItem call.
const batchWriteMax = 25

// Client is the subset of the DynamoDB API the store uses.
type Client interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// ExecutionStore implements storage.ExecutionStore using DynamoDB.
// Items are keyed by userId (partition) and transactionId (sort), so each
// user's history reads back in transaction order and re-puts overwrite.
type ExecutionStore struct {
	client Client
	table  string
}

// NewExecutionStore creates a new ExecutionStore over a DynamoDB table.
func NewExecutionStore(client Client, table string) *ExecutionStore {
	return &ExecutionStore{client: client, table: table}
}

// Compile-time interface check.
var _ storage.ExecutionStore = (*ExecutionStore)(nil)

// Query retrieves executions for a user, optionally narrowed to a single
// ticker, following pagination until the table is exhausted.
func (s *ExecutionStore) Query(ctx context.Context, userID, ticker string) ([]*domain.Execution, error) {
	if userID == "" {
		return nil, storage.ErrInvalidInput
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("userId = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	}
	if ticker != "" {
		input.FilterExpression = aws.String("canonicalTicker = :ticker")
		input.ExpressionAttributeValues[":ticker"] = &types.AttributeValueMemberS{Value: ticker}
	}

	var execs []*domain.Execution
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query executions: %w", err)
		}

		var items []executionItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal executions: %w", err)
		}
		for i := range items {
			e, err := items[i].toDomain()
			if err != nil {
				return nil, fmt.Errorf("decode execution %d: %w", items[i].TransactionID, err)
			}
			execs = append(execs, e)
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	return execs, nil
}

// Put writes executions in BatchWriteItem chunks. Items that fail validation
// or remain unprocessed are counted, not fatal.
func (s *ExecutionStore) Put(ctx context.Context, execs []*domain.Execution) (domain.WriteResult, error) {
	var result domain.WriteResult

	var requests []types.WriteRequest
	for _, e := range execs {
		if e == nil || e.UserID == "" || e.TransactionID == 0 {
			result.Failed++
			continue
		}

		av, err := attributevalue.MarshalMap(fromDomain(e))
		if err != nil {
			result.Failed++
			continue
		}
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: av},
		})
	}

	for start := 0; start < len(requests); start += batchWriteMax {
		end := start + batchWriteMax
		if end > len(requests) {
			end = len(requests)
		}
		chunk := requests[start:end]

		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.table: chunk},
		})
		if err != nil {
			result.Failed += len(chunk)
			return result, fmt.Errorf("batch write executions: %w", err)
		}

		unprocessed := len(out.UnprocessedItems[s.table])
		result.Written += len(chunk) - unprocessed
		result.Failed += unprocessed
	}

	return result, nil
}
