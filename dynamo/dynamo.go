// Package dynamo is a phenotree.Store on a DynamoDB single table. Slots live
// under the partition key SESSION#<id> with sort key SLOT#<key>.
package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/meikuraledutech/phenotree"
)

// API is the subset of *dynamodb.Client the store calls.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// NewClient loads the default AWS configuration for region. A non-empty
// endpoint points the client at DynamoDB Local or another compatible server.
func NewClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("dynamo: load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

type slotKey struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

type slotItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Value     []byte `dynamodbav:"Value"`
	UpdatedAt int64  `dynamodbav:"UpdatedAt"`
}

// Store implements phenotree.Store for one session.
type Store struct {
	api       API
	table     string
	sessionID string
}

// New creates a Store on table for sessionID.
func New(api API, table, sessionID string) *Store {
	return &Store{api: api, table: table, sessionID: sessionID}
}

func (s *Store) key(slot string) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(slotKey{PK: "SESSION#" + s.sessionID, SK: "SLOT#" + slot})
}

// Get returns the value of key, or phenotree.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := s.key(key)
	if err != nil {
		return nil, fmt.Errorf("dynamo: marshal key: %w", err)
	}
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            k,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: get %s: %w", key, err)
	}
	if out.Item == nil {
		return nil, phenotree.ErrNotFound
	}

	var item slotItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("dynamo: unmarshal %s: %w", key, err)
	}
	return item.Value, nil
}

// Set overwrites the value of key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	item, err := attributevalue.MarshalMap(slotItem{
		PK:        "SESSION#" + s.sessionID,
		SK:        "SLOT#" + key,
		Value:     value,
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("dynamo: marshal %s: %w", key, err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dynamo: put %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. DeleteItem on an absent key succeeds.
func (s *Store) Remove(ctx context.Context, key string) error {
	k, err := s.key(key)
	if err != nil {
		return fmt.Errorf("dynamo: marshal key: %w", err)
	}
	if _, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       k,
	}); err != nil {
		return fmt.Errorf("dynamo: delete %s: %w", key, err)
	}
	return nil
}
