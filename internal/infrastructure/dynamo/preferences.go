package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PreferenceRepo stores opaque string blobs keyed by name, one item per key.
// It backs the notification store's persistence.
type PreferenceRepo struct {
	client    *dynamodb.Client
	tableName string
}

type prefItem struct {
	Key       string `dynamodbav:"pref_key"`
	Value     string `dynamodbav:"pref_value"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func NewPreferenceRepo(client *dynamodb.Client, tableName string) *PreferenceRepo {
	return &PreferenceRepo{client: client, tableName: tableName}
}

// Get returns the blob stored under key, reporting found=false when absent.
func (r *PreferenceRepo) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"pref_key": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("get preference %s: %w", key, err)
	}
	if out.Item == nil {
		return "", false, nil
	}
	var item prefItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", false, fmt.Errorf("unmarshal preference %s: %w", key, err)
	}
	return item.Value, true, nil
}

// Set overwrites the blob stored under key.
func (r *PreferenceRepo) Set(ctx context.Context, key, value string) error {
	item, err := attributevalue.MarshalMap(prefItem{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal preference %s: %w", key, err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put preference %s: %w", key, err)
	}
	return nil
}
