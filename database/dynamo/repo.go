// Package dynamo implements shelf.ItemRepo on Amazon DynamoDB.
//
// Items live in a single table keyed by id. Writes are conditional so that
// Create never overwrites and Update never creates.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sagarc03/shelf"
)

const (
	attrID          = "id"
	attrOwner       = "user_id"
	attrName        = "name"
	attrDescription = "description"
	attrCreatedAt   = "created_at"
	attrUpdatedAt   = "updated_at"
)

type record struct {
	ID          string    `dynamodbav:"id"`
	OwnerID     string    `dynamodbav:"user_id"`
	Name        string    `dynamodbav:"name"`
	Description string    `dynamodbav:"description"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	UpdatedAt   time.Time `dynamodbav:"updated_at"`
}

func (r record) item() shelf.Item {
	return shelf.Item{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type repo struct {
	client     API
	table      string
	ownerIndex string
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{attrID: &types.AttributeValueMemberS{Value: id}}
}

func decode(op string, av map[string]types.AttributeValue) (shelf.Item, error) {
	var r record
	if err := attributevalue.UnmarshalMap(av, &r); err != nil {
		return shelf.Item{}, fmt.Errorf("%s: decode item: %w", op, err)
	}
	return r.item(), nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, shelf.ErrStorageUnavailable, err)
}

func (r *repo) List(ctx context.Context, ownerID string) ([]shelf.Item, error) {
	names := map[string]string{"#owner": attrOwner}
	values := map[string]types.AttributeValue{":owner": &types.AttributeValueMemberS{Value: ownerID}}

	var pages func(context.Context) ([]map[string]types.AttributeValue, bool, error)

	if r.ownerIndex != "" {
		p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
			TableName:                 aws.String(r.table),
			IndexName:                 aws.String(r.ownerIndex),
			KeyConditionExpression:    aws.String("#owner = :owner"),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		})
		pages = func(ctx context.Context) ([]map[string]types.AttributeValue, bool, error) {
			out, err := p.NextPage(ctx)
			if err != nil {
				return nil, false, err
			}
			return out.Items, p.HasMorePages(), nil
		}
	} else {
		p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
			TableName:                 aws.String(r.table),
			FilterExpression:          aws.String("#owner = :owner"),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			ConsistentRead:            aws.Bool(true),
		})
		pages = func(ctx context.Context) ([]map[string]types.AttributeValue, bool, error) {
			out, err := p.NextPage(ctx)
			if err != nil {
				return nil, false, err
			}
			return out.Items, p.HasMorePages(), nil
		}
	}

	items := []shelf.Item{}
	for more := true; more; {
		var page []map[string]types.AttributeValue
		var err error

		page, more, err = pages(ctx)
		if err != nil {
			return nil, storageErr("list", err)
		}

		for _, av := range page {
			item, err := decode("list", av)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}

	return items, nil
}

func (r *repo) Get(ctx context.Context, id string) (shelf.Item, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return shelf.Item{}, storageErr("get", err)
	}

	if len(out.Item) == 0 {
		return shelf.Item{}, fmt.Errorf("get %s: %w", id, shelf.ErrNotFound)
	}

	return decode("get", out.Item)
}

func (r *repo) Create(ctx context.Context, item shelf.Item) (shelf.Item, error) {
	item.CreatedAt = shelf.Timestamp(item.CreatedAt)
	item.UpdatedAt = shelf.Timestamp(item.UpdatedAt)

	av, err := attributevalue.MarshalMap(record(item))
	if err != nil {
		return shelf.Item{}, fmt.Errorf("create: encode item: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.table),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": attrID},
	})
	if err != nil {
		if isConditionFailed(err) {
			return shelf.Item{}, fmt.Errorf("create %s: %w", item.ID, shelf.ErrConflict)
		}
		return shelf.Item{}, storageErr("create", err)
	}

	return item, nil
}

func (r *repo) Update(ctx context.Context, id string, u shelf.ItemUpdate) (shelf.Item, error) {
	updatedAt, err := attributevalue.Marshal(shelf.Timestamp(u.UpdatedAt))
	if err != nil {
		return shelf.Item{}, fmt.Errorf("update: encode time: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 key(id),
		UpdateExpression:    aws.String("SET #name = :name, #description = :description, #updated = :updated"),
		ConditionExpression: aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id":          attrID,
			"#name":        attrName,
			"#description": attrDescription,
			"#updated":     attrUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name":        &types.AttributeValueMemberS{Value: u.Name},
			":description": &types.AttributeValueMemberS{Value: u.Description},
			":updated":     updatedAt,
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return shelf.Item{}, fmt.Errorf("update %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("update", err)
	}

	return decode("update", out.Attributes)
}

func (r *repo) Delete(ctx context.Context, id string) (shelf.Item, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.table),
		Key:                      key(id),
		ConditionExpression:      aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": attrID},
		ReturnValues:             types.ReturnValueAllOld,
	})
	if err != nil {
		if isConditionFailed(err) {
			return shelf.Item{}, fmt.Errorf("delete %s: %w", id, shelf.ErrNotFound)
		}
		return shelf.Item{}, storageErr("delete", err)
	}

	if len(out.Attributes) == 0 {
		return shelf.Item{}, fmt.Errorf("delete %s: %w", id, shelf.ErrNotFound)
	}

	return decode("delete", out.Attributes)
}
