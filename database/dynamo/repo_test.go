package dynamo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sagarc03/shelf"
	"github.com/sagarc03/shelf/database/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DescribeTableOutput)
	return out, args.Error(1)
}

func (m *MockAPI) ListTables(ctx context.Context, in *dynamodb.ListTablesInput, _ ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.ListTablesOutput)
	return out, args.Error(1)
}

func (m *MockAPI) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.CreateTableOutput)
	return out, args.Error(1)
}

func (m *MockAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.QueryOutput)
	return out, args.Error(1)
}

func (m *MockAPI) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.ScanOutput)
	return out, args.Error(1)
}

func (m *MockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *MockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *MockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func (m *MockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}

var testItem = shelf.Item{
	ID:          "item-1",
	OwnerID:     "owner-a",
	Name:        "Test Item",
	Description: "A test",
	CreatedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	UpdatedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
}

func attrs(t *testing.T, item shelf.Item) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(map[string]any{
		"id":          item.ID,
		"user_id":     item.OwnerID,
		"name":        item.Name,
		"description": item.Description,
		"created_at":  item.CreatedAt,
		"updated_at":  item.UpdatedAt,
	})
	require.NoError(t, err)
	return av
}

func newRepo(t *testing.T, ownerIndex string) (shelf.ItemRepo, *MockAPI) {
	t.Helper()
	api := new(MockAPI)
	db, err := dynamo.New(api, dynamo.Config{Table: "shelf-items", OwnerIndex: ownerIndex})
	require.NoError(t, err)
	return db.GetRepo(), api
}

func TestNew_InvalidNames(t *testing.T) {
	_, err := dynamo.New(new(MockAPI), dynamo.Config{Table: "x"})
	assert.Error(t, err)

	_, err = dynamo.New(new(MockAPI), dynamo.Config{Table: "items", OwnerIndex: "bad index"})
	assert.Error(t, err)
}

func TestRepo_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, api := newRepo(t, "")
		ctx := context.Background()

		api.On("GetItem", ctx, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
			id := in.Key["id"].(*types.AttributeValueMemberS).Value
			return aws.ToString(in.TableName) == "shelf-items" && id == "item-1" && aws.ToBool(in.ConsistentRead)
		})).Return(&dynamodb.GetItemOutput{Item: attrs(t, testItem)}, nil)

		got, err := repo.Get(ctx, "item-1")
		require.NoError(t, err)
		assert.Equal(t, testItem, got)
		api.AssertExpectations(t)
	})

	t.Run("missing", func(t *testing.T) {
		repo, api := newRepo(t, "")
		ctx := context.Background()

		api.On("GetItem", ctx, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

		_, err := repo.Get(ctx, "item-1")
		assert.ErrorIs(t, err, shelf.ErrNotFound)
	})

	t.Run("service error", func(t *testing.T) {
		repo, api := newRepo(t, "")
		ctx := context.Background()

		api.On("GetItem", ctx, mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

		_, err := repo.Get(ctx, "item-1")
		assert.ErrorIs(t, err, shelf.ErrStorageUnavailable)
	})
}

func TestRepo_Create(t *testing.T) {
	t.Run("conditional put", func(t *testing.T) {
		repo, api := newRepo(t, "")
		ctx := context.Background()

		api.On("PutItem", ctx, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
			return aws.ToString(in.ConditionExpression) == "attribute_not_exists(#id)" &&
				in.Item["user_id"].(*types.AttributeValueMemberS).Value == "owner-a"
		})).Return(&dynamodb.PutItemOutput{}, nil)

		got, err := repo.Create(ctx, testItem)
		require.NoError(t, err)
		assert.Equal(t, testItem, got)
		api.AssertExpectations(t)
	})

	t.Run("existing id conflicts", func(t *testing.T) {
		repo, api := newRepo(t, "")
		ctx := context.Background()

		api.On("PutItem", ctx, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")})

		_, err := repo.Create(ctx, testItem)
		assert.ErrorIs(t, err, shelf.ErrConflict)
	})
}

func TestRepo_Update(t *testing.T) {
	t.Run("returns all new attributes", func(t *testing.T) {
		repo, api := newRepo(t, "")
		ctx := context.Background()

		updated := testItem
		updated.Name = "new"
		updated.UpdatedAt = testItem.UpdatedAt.Add(time.Minute)

		api.On("UpdateItem", ctx, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			return aws.ToString(in.ConditionExpression) == "attribute_exists(#id)" &&
				in.ReturnValues == types.ReturnValueAllNew &&
				in.ExpressionAttributeValues[":name"].(*types.AttributeValueMemberS).Value == "new"
		})).Return(&dynamodb.UpdateItemOutput{Attributes: attrs(t, updated)}, nil)

		got, err := repo.Update(ctx, "item-1", shelf.ItemUpdate{
			Name:        "new",
			Description: testItem.Description,
			UpdatedAt:   updated.UpdatedAt,
		})
		require.NoError(t, err)
		assert.Equal(t, updated, got)
	})

	t.Run("missing item", func(t *testing.T) {
		repo, api := newRepo(t, "")
		ctx := context.Background()

		api.On("UpdateItem", ctx, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

		_, err := repo.Update(ctx, "item-1", shelf.ItemUpdate{Name: "n", Description: "d", UpdatedAt: time.Now()})
		assert.ErrorIs(t, err, shelf.ErrNotFound)
	})
}

func TestRepo_Delete(t *testing.T) {
	t.Run("returns old attributes", func(t *testing.T) {
		repo, api := newRepo(t, "")
		ctx := context.Background()

		api.On("DeleteItem", ctx, mock.MatchedBy(func(in *dynamodb.DeleteItemInput) bool {
			return in.ReturnValues == types.ReturnValueAllOld
		})).Return(&dynamodb.DeleteItemOutput{Attributes: attrs(t, testItem)}, nil)

		got, err := repo.Delete(ctx, "item-1")
		require.NoError(t, err)
		assert.Equal(t, testItem, got)
	})

	t.Run("missing item", func(t *testing.T) {
		repo, api := newRepo(t, "")
		ctx := context.Background()

		api.On("DeleteItem", ctx, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

		_, err := repo.Delete(ctx, "item-1")
		assert.ErrorIs(t, err, shelf.ErrNotFound)
	})
}

func TestRepo_List(t *testing.T) {
	second := testItem
	second.ID = "item-2"

	t.Run("query on owner index follows pages", func(t *testing.T) {
		repo, api := newRepo(t, "user-index")
		ctx := context.Background()

		lastKey := map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "item-1"}}

		api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
			return aws.ToString(in.IndexName) == "user-index" && in.ExclusiveStartKey == nil
		})).Return(&dynamodb.QueryOutput{
			Items:            []map[string]types.AttributeValue{attrs(t, testItem)},
			LastEvaluatedKey: lastKey,
		}, nil).Once()
		api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
			return in.ExclusiveStartKey != nil
		})).Return(&dynamodb.QueryOutput{
			Items: []map[string]types.AttributeValue{attrs(t, second)},
		}, nil).Once()

		got, err := repo.List(ctx, "owner-a")
		require.NoError(t, err)
		assert.ElementsMatch(t, []shelf.Item{testItem, second}, got)
		api.AssertExpectations(t)
		api.AssertNotCalled(t, "Scan")
	})

	t.Run("scan with owner filter without index", func(t *testing.T) {
		repo, api := newRepo(t, "")
		ctx := context.Background()

		api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
			owner := in.ExpressionAttributeValues[":owner"].(*types.AttributeValueMemberS).Value
			return aws.ToString(in.FilterExpression) == "#owner = :owner" && owner == "owner-a"
		})).Return(&dynamodb.ScanOutput{}, nil)

		got, err := repo.List(ctx, "owner-a")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("service error", func(t *testing.T) {
		repo, api := newRepo(t, "")
		ctx := context.Background()

		api.On("Scan", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

		_, err := repo.List(ctx, "owner-a")
		assert.ErrorIs(t, err, shelf.ErrStorageUnavailable)
	})
}
